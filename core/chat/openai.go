package chat

import (
	"context"
	"io"
	"net/http"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/mrembo/urembo/core"
)

const systemPrompt = "You are a helpful beauty training assistant. " +
	"You answer questions about nail care, skin care, make-up and the lessons of this course. " +
	"Keep answers short and practical."

type openaiProvider struct {
	client *openai.Client
	model  string
}

var _ Provider = (*openaiProvider)(nil)

// NewOpenAIProvider returns a Provider backed by the OpenAI API, or any
// OpenAI-compatible API when conf.BaseURL is set.
func NewOpenAIProvider(conf core.AIConfig) (Provider, error) {
	if conf.APIKey == "" {
		return nil, errors.New("chat: API key is required")
	}
	cfg := openai.DefaultConfig(conf.APIKey)
	if conf.BaseURL != "" {
		cfg.BaseURL = conf.BaseURL
	}
	return &openaiProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  conf.Model,
	}, nil
}

func (p *openaiProvider) Stream(ctx context.Context, messages []Message, w io.Writer) error {
	chatMsgs := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: chatMsgs,
		Stream:   true,
	})
	if err != nil {
		return mapOpenAIError(err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return mapOpenAIError(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if _, err = io.WriteString(w, resp.Choices[0].Delta.Content); err != nil {
			return errors.Wrap(err, "chat: writing chunk")
		}
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

func mapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	return errors.Wrap(err, "chat: completion failed")
}
