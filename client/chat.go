package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/mrembo/urembo/core/chat"
)

// Chat streams the assistant reply into w as it arrives. Throttled
// requests map to chat.ErrRateLimited.
func (c *Client) Chat(ctx context.Context, prompt chat.Prompt, w io.Writer) error {
	data, err := json.Marshal(prompt)
	if err != nil {
		return errors.Wrap(err, "encoding prompt")
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/ai/chat", bytes.NewReader(data), "application/json")
	if err != nil {
		return err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "sending request")
	}
	defer res.Body.Close() // nolint:errcheck

	if res.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, res.Body)
		return chat.ErrRateLimited
	}
	if res.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(res)
	}

	_, err = io.Copy(w, res.Body)
	return errors.Wrap(err, "reading stream")
}
