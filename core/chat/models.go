package chat

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

// Prompt is a conversation to continue, newest message last.
type Prompt struct {
	Messages []Message `json:"messages" validate:"required,min=1,dive"`
}
