package chat

import (
	"context"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/mrembo/urembo/core"
)

var ErrRateLimited = errors.New("too many requests")

type (
	// Provider streams an assistant reply for a conversation into w as
	// plain text chunks.
	Provider interface {
		Stream(ctx context.Context, messages []Message, w io.Writer) error
	}

	Service interface {
		Stream(ctx context.Context, prompt Prompt, w io.Writer) error
	}

	service struct {
		provider Provider
		validate *validator.Validate
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(provider Provider, validate *validator.Validate, logger core.Logger) Service {
	return &service{
		provider: provider,
		validate: validate,
		logger:   logger,
	}
}

func (svc *service) Stream(ctx context.Context, prompt Prompt, w io.Writer) error {
	if err := svc.validate.Struct(prompt); err != nil {
		return err
	}
	return svc.provider.Stream(ctx, prompt.Messages, w)
}
