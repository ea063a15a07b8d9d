package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mrembo/urembo/core/chat"
)

type chatApi struct {
	svc chat.Service
}

func registerChatAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc chat.Service) {
	api := chatApi{svc: svc}

	cg := g.Group("/ai", authed...)
	cg.POST("/chat", api.chat, chatRateLimiter())
}

// chat streams the assistant reply as plain text chunks. Once the first
// chunk is written the status is committed; later stream errors just end
// the response body early.
func (api *chatApi) chat(ctx echo.Context) error {
	var data chat.Prompt
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Prompt")
	}

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)

	if err := api.svc.Stream(ctx.Request().Context(), data, res); err != nil {
		if res.Committed {
			return nil
		}
		if errors.Cause(err) == chat.ErrRateLimited {
			return errTooManyRequests
		}
		return errors.Wrap(err, "streaming chat completion")
	}
	return nil
}
