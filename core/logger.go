package core

// Logger is any service that can log messages at various levels,
// with optional structured arguments appended to each entry.
type Logger interface {
	Enable(enabled bool)

	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
