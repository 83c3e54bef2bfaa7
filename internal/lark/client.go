package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://open.larksuite.com"

	defaultTimeout  = 30 * time.Second
	maxResponseBody = 1 << 20
)

// Client talks to the Lark/Feishu open platform. It holds no per-request
// state; the optional Cache is safe for concurrent use.
type Client struct {
	BaseURL   string
	AppID     string
	AppSecret string
	HTTP      *http.Client
	Cache     *TokenCache
}

// envelope is the common part of every open platform response.
type envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

var defaultHTTPClient = &http.Client{Timeout: defaultTimeout}

func (c *Client) httpClient() *http.Client {
	if c.HTTP == nil {
		return defaultHTTPClient
	}
	return c.HTTP
}

func (c *Client) url(path string) string {
	base := c.BaseURL
	if strings.TrimSpace(base) == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/") + path
}

// do sends one request and returns the status and the (size limited) body.
// A nil payload sends no body. Only network failures produce an error here;
// status handling is left to the caller.
func (c *Client) do(ctx context.Context, op, method, path, token string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return 0, nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, nil, &TransportError{Op: op, Err: err}
	}
	return resp.StatusCode, b, nil
}

func ok(status int) bool {
	return status >= 200 && status < 300
}
