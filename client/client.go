// Package client is a Go consumer of the REST API, used by front-end
// shells and integration tooling. It owns the access token, the refresh
// cookie jar and the error decoding for every call.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// APIError is a non-2xx response decoded from the backend's
// {"detail": ...} error body.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d: %s", e.Status, e.Detail)
}

// TokenSource holds the current access token. Writes are last-write-wins;
// every outgoing request reads it.
type TokenSource struct {
	mu    sync.RWMutex
	token string
}

func (ts *TokenSource) Token() string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.token
}

func (ts *TokenSource) Set(token string) {
	ts.mu.Lock()
	ts.token = token
	ts.mu.Unlock()
}

func (ts *TokenSource) Clear() { ts.Set("") }

type Client struct {
	baseURL string
	http    *http.Client
	tokens  *TokenSource
}

func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating cookie jar")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
		tokens: &TokenSource{},
	}, nil
}

func (c *Client) Tokens() *TokenSource { return c.tokens }

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do sends the request and decodes a JSON response into out (skipped when
// out is nil). Non-2xx responses come back as *APIError.
func (c *Client) do(req *http.Request, out interface{}) error {
	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "sending request")
	}
	defer res.Body.Close() // nolint:errcheck

	if res.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(res)
	}
	if out == nil {
		_, err = io.Copy(io.Discard, res.Body)
		return errors.Wrap(err, "draining response")
	}
	return errors.Wrap(json.NewDecoder(res.Body).Decode(out), "decoding response")
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		body = strings.NewReader(string(data))
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, body, "application/json")
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodPost, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func decodeAPIError(res *http.Response) error {
	apiErr := &APIError{Status: res.StatusCode, Detail: http.StatusText(res.StatusCode)}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return apiErr
	}
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil || len(body.Detail) == 0 {
		return apiErr
	}

	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err != nil {
		// field map or other structured detail; keep it verbatim
		detail = string(body.Detail)
	}
	apiErr.Detail = detail
	return apiErr
}
