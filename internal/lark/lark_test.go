package lark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &Client{BaseURL: srv.URL, AppID: "cli_a", AppSecret: "s3cret", HTTP: srv.Client()}, srv
}

func TestAcquireTokenTenant(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/open-apis/auth/v3/tenant_access_token/internal", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "cli_a", body["app_id"])
		assert.Equal(t, "s3cret", body["app_secret"])

		_, _ = io.WriteString(w, `{"code":0,"msg":"ok","tenant_access_token":"t-123","expire":7200}`)
	})

	token, err := c.AcquireToken(context.Background(), TenantToken)
	require.NoError(t, err)
	assert.Equal(t, "t-123", token)
}

func TestAcquireTokenApp(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/open-apis/auth/v3/app_access_token/internal", r.URL.Path)
		_, _ = io.WriteString(w, `{"code":0,"app_access_token":"a-456","expire":7200}`)
	})

	token, err := c.AcquireToken(context.Background(), AppToken)
	require.NoError(t, err)
	assert.Equal(t, "a-456", token)
}

func TestAcquireTokenNonZeroCode(t *testing.T) {
	const raw = `{"code":10003,"msg":"invalid param"}`
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, raw)
	})

	token, err := c.AcquireToken(context.Background(), TenantToken)
	require.Error(t, err)
	assert.Empty(t, token)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, 10003, authErr.Code)
	assert.Equal(t, raw, authErr.Body)
}

func TestAcquireTokenTransportError(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := c.AcquireToken(context.Background(), TenantToken)
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	var transportErr *TransportError
	assert.True(t, errors.As(err, &transportErr))
}

func TestAcquireTokenUnknownKind(t *testing.T) {
	c := &Client{}
	_, err := c.AcquireToken(context.Background(), TokenKind("user"))
	var authErr *AuthError
	assert.True(t, errors.As(err, &authErr))
}

func TestAcquireTokenWithoutCacheHitsNetworkEveryTime(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = io.WriteString(w, `{"code":0,"tenant_access_token":"t","expire":7200}`)
	})

	for i := 0; i < 3; i++ {
		_, err := c.AcquireToken(context.Background(), TenantToken)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestAcquireTokenCached(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = io.WriteString(w, `{"code":0,"tenant_access_token":"t","expire":7200}`)
	})
	c.Cache = NewTokenCache(10 * time.Minute)

	for i := 0; i < 3; i++ {
		token, err := c.AcquireToken(context.Background(), TenantToken)
		require.NoError(t, err)
		assert.Equal(t, "t", token)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTokenCacheRespectsPlatformExpiry(t *testing.T) {
	tc := NewTokenCache(time.Hour)
	tc.Set("k", "v", 30*time.Second)
	_, found := tc.Get("k")
	assert.False(t, found, "token expiring inside the margin must not be cached")

	tc.Set("k", "v", 0)
	v, found := tc.Get("k")
	assert.True(t, found)
	assert.Equal(t, "v", v)

	tc.Set("other", "w", 0)
	tc.Forget("v")
	_, found = tc.Get("k")
	assert.False(t, found)
	_, found = tc.Get("other")
	assert.True(t, found, "forget only drops entries holding that token")
}

func TestNewTokenCacheDisabled(t *testing.T) {
	assert.Nil(t, NewTokenCache(0))
}

func TestReplyByMessageID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/open-apis/im/v1/messages/om_1/reply", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "text", body["msg_type"])
		assert.JSONEq(t, `{"text":"hi \"there\""}`, body["content"])
		_, _ = io.WriteString(w, `{"code":0,"msg":"success"}`)
	})

	require.NoError(t, c.Reply(context.Background(), "tok", ByMessage("om_1"), `hi "there"`))
}

func TestReplyByChatID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/open-apis/im/v1/messages", r.URL.Path)
		assert.Equal(t, "chat_id", r.URL.Query().Get("receive_id_type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "oc_9", body["receive_id"])
		assert.Equal(t, "text", body["msg_type"])
		assert.JSONEq(t, `{"text":"report"}`, body["content"])
		_, _ = io.WriteString(w, `{"code":0}`)
	})

	require.NoError(t, c.Reply(context.Background(), "tok", ByChat("oc_9"), "report"))
}

func TestReplyFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "http error", status: http.StatusInternalServerError, body: `{"code":0}`},
		{name: "platform code", status: http.StatusOK, body: `{"code":230002,"msg":"bot not in chat"}`},
		{name: "success status with non-json body", status: http.StatusOK, body: `<html>gateway</html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			err := c.Reply(context.Background(), "tok", ByChat("oc_1"), "x")
			var dispatchErr *DispatchError
			require.True(t, errors.As(err, &dispatchErr))
			assert.Equal(t, tt.status, dispatchErr.Status)
		})
	}
}

// staleTokenServer issues t-1, t-2, ... from the auth endpoint and rejects
// the first token it sees on any other path with the given code.
func staleTokenServer(t *testing.T, code int, authCalls *int32) *Client {
	t.Helper()
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/open-apis/auth/v3/tenant_access_token/internal" {
			n := atomic.AddInt32(authCalls, 1)
			_, _ = fmt.Fprintf(w, `{"code":0,"tenant_access_token":"t-%d","expire":7200}`, n)
			return
		}
		if r.Header.Get("Authorization") == "Bearer t-1" {
			_, _ = fmt.Fprintf(w, `{"code":%d,"msg":"invalid access token"}`, code)
			return
		}
		_, _ = io.WriteString(w, `{"code":0,"data":{"items":[]}}`)
	})
	c.Cache = NewTokenCache(time.Hour)
	return c
}

func TestReplyRejectedTokenIsDropped(t *testing.T) {
	for _, code := range []int{codeTenantTokenInvalid, codeAccessTokenInvalid} {
		t.Run(fmt.Sprint(code), func(t *testing.T) {
			var authCalls int32
			c := staleTokenServer(t, code, &authCalls)
			ctx := context.Background()

			token, err := c.AcquireToken(ctx, TenantToken)
			require.NoError(t, err)
			err = c.Reply(ctx, token, ByChat("oc_1"), "x")
			var dispatchErr *DispatchError
			require.True(t, errors.As(err, &dispatchErr))
			assert.Equal(t, code, dispatchErr.Code)

			token, err = c.AcquireToken(ctx, TenantToken)
			require.NoError(t, err)
			assert.Equal(t, "t-2", token)
			require.NoError(t, c.Reply(ctx, token, ByChat("oc_1"), "x"))
			assert.Equal(t, int32(2), atomic.LoadInt32(&authCalls))
		})
	}
}

func TestReplyOtherFailureKeepsToken(t *testing.T) {
	var authCalls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/open-apis/auth/v3/tenant_access_token/internal" {
			atomic.AddInt32(&authCalls, 1)
			_, _ = io.WriteString(w, `{"code":0,"tenant_access_token":"t","expire":7200}`)
			return
		}
		_, _ = io.WriteString(w, `{"code":230002,"msg":"bot not in chat"}`)
	})
	c.Cache = NewTokenCache(time.Hour)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		token, err := c.AcquireToken(ctx, TenantToken)
		require.NoError(t, err)
		require.Error(t, c.Reply(ctx, token, ByChat("oc_1"), "x"))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&authCalls))
}

func TestListRecordsRejectedTokenIsDropped(t *testing.T) {
	var authCalls int32
	c := staleTokenServer(t, codeTenantTokenInvalid, &authCalls)
	ctx := context.Background()

	token, err := c.AcquireToken(ctx, TenantToken)
	require.NoError(t, err)
	_, err = c.ListRecords(ctx, token, "bas1", "tbl1", 0)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))

	token, err = c.AcquireToken(ctx, TenantToken)
	require.NoError(t, err)
	_, err = c.ListRecords(ctx, token, "bas1", "tbl1", 0)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&authCalls))
}

func TestReplyEmptyTarget(t *testing.T) {
	c := &Client{}
	var dispatchErr *DispatchError
	assert.True(t, errors.As(c.Reply(context.Background(), "tok", Target{}, "x"), &dispatchErr))
}

func TestListRecords(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/open-apis/bitable/v1/apps/bas1/tables/tbl1/records", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("page_size"))
		assert.Equal(t, "Bearer app-tok", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"code":0,"data":{"has_more":true,"page_token":"p2","total":3,"items":[
			{"record_id":"r1","fields":{"Name":"An"}},
			{"record_id":"r2","fields":{"Name":"Binh"}}
		]}}`)
	})

	page, err := c.ListRecords(context.Background(), "app-tok", "bas1", "tbl1", 20)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "r1", page.Items[0].RecordID)
	assert.Equal(t, "Binh", page.Items[1].Fields["Name"])
	assert.True(t, page.HasMore)
	assert.Equal(t, "p2", page.PageToken)
}

func TestListRecordsAPIError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":91402,"msg":"NOTEXIST"}`)
	})

	_, err := c.ListRecords(context.Background(), "app-tok", "bas1", "tbl1", 0)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 91402, apiErr.Code)
}
