package lark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

type TokenKind string

const (
	TenantToken TokenKind = "tenant"
	AppToken    TokenKind = "app"
)

func (k TokenKind) path() (string, error) {
	switch k {
	case TenantToken:
		return "/open-apis/auth/v3/tenant_access_token/internal", nil
	case AppToken:
		return "/open-apis/auth/v3/app_access_token/internal", nil
	}
	return "", fmt.Errorf("unknown token kind %q", string(k))
}

type tokenRequest struct {
	AppID     string `json:"app_id"`
	AppSecret string `json:"app_secret"`
}

type tokenResponse struct {
	envelope
	TenantAccessToken string `json:"tenant_access_token"`
	AppAccessToken    string `json:"app_access_token"`
	Expire            int    `json:"expire"`
}

// AcquireToken exchanges the app id/secret for a bearer token of the given
// kind. Without a Cache every call hits the auth endpoint. There is no retry.
func (c *Client) AcquireToken(ctx context.Context, kind TokenKind) (string, error) {
	path, err := kind.path()
	if err != nil {
		return "", &AuthError{Kind: kind, Err: err}
	}

	key := string(kind) + ":" + c.AppID
	if c.Cache != nil {
		if token, found := c.Cache.Get(key); found {
			return token, nil
		}
	}

	token, expire, err := c.requestToken(ctx, kind, path)
	if err != nil {
		return "", err
	}
	if c.Cache != nil {
		c.Cache.Set(key, token, expire)
	}
	return token, nil
}

func (c *Client) requestToken(ctx context.Context, kind TokenKind, path string) (string, time.Duration, error) {
	op := "auth " + string(kind)
	status, body, err := c.do(ctx, op, http.MethodPost, path, "", tokenRequest{AppID: c.AppID, AppSecret: c.AppSecret})
	if err != nil {
		return "", 0, &AuthError{Kind: kind, Status: status, Body: string(body), Err: err}
	}

	var r tokenResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return "", 0, &AuthError{Kind: kind, Status: status, Body: string(body), Err: fmt.Errorf("decode response: %w", err)}
	}
	if r.Code != 0 || !ok(status) {
		return "", 0, &AuthError{Kind: kind, Status: status, Code: r.Code, Body: string(body)}
	}

	token := r.TenantAccessToken
	if kind == AppToken {
		token = r.AppAccessToken
	}
	if token == "" {
		return "", 0, &AuthError{Kind: kind, Status: status, Body: string(body), Err: errors.New("empty token in response")}
	}
	return token, time.Duration(r.Expire) * time.Second, nil
}

// Codes the platform returns when a bearer token is expired or revoked.
const (
	codeTenantTokenInvalid = 99991663
	codeAccessTokenInvalid = 99991668
)

func isInvalidTokenCode(code int) bool {
	return code == codeTenantTokenInvalid || code == codeAccessTokenInvalid
}

// forgetRejected drops token from the cache when the platform refused it,
// so the next AcquireToken fetches a new one.
func (c *Client) forgetRejected(token string, code int) {
	if c.Cache != nil && isInvalidTokenCode(code) {
		c.Cache.Forget(token)
	}
}
