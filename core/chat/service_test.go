package chat

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrembo/urembo/core"
)

type fakeProvider struct {
	chunks []string
	err    error
	got    []Message
}

func (f *fakeProvider) Stream(_ context.Context, messages []Message, w io.Writer) error {
	f.got = messages
	if f.err != nil {
		return f.err
	}
	for _, chunk := range f.chunks {
		if _, err := io.WriteString(w, chunk); err != nil {
			return err
		}
	}
	return nil
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func newTestService(provider Provider) Service {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	return NewService(provider, validate, nopLogger{})
}

func TestServiceStream(t *testing.T) {
	provider := &fakeProvider{chunks: []string{"Use a ", "base coat ", "first."}}
	svc := newTestService(provider)

	var out strings.Builder
	err := svc.Stream(context.Background(), Prompt{Messages: []Message{
		{Role: RoleUser, Content: "How do I prep nails?"},
	}}, &out)
	require.NoError(t, err)

	assert.Equal(t, "Use a base coat first.", out.String())
	require.Len(t, provider.got, 1)
	assert.Equal(t, RoleUser, provider.got[0].Role)
}

func TestServiceStreamValidation(t *testing.T) {
	provider := &fakeProvider{}
	svc := newTestService(provider)
	var out strings.Builder

	tests := []struct {
		name   string
		prompt Prompt
	}{
		{name: "no messages", prompt: Prompt{}},
		{name: "empty content", prompt: Prompt{Messages: []Message{{Role: RoleUser}}}},
		{name: "bad role", prompt: Prompt{Messages: []Message{{Role: "robot", Content: "hi"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Stream(context.Background(), tt.prompt, &out)
			assert.Error(t, err)
			assert.Nil(t, provider.got)
		})
	}
}

func TestServiceStreamRateLimited(t *testing.T) {
	svc := newTestService(&fakeProvider{err: ErrRateLimited})
	var out strings.Builder

	err := svc.Stream(context.Background(), Prompt{Messages: []Message{
		{Role: RoleUser, Content: "hi"},
	}}, &out)
	assert.Equal(t, ErrRateLimited, err)
}
