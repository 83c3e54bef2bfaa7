package lark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Target says where a text message goes. Exactly one field is used:
// MessageID replies in thread to that message, otherwise ChatID sends a new
// message into the chat.
type Target struct {
	MessageID string
	ChatID    string
}

func ByMessage(id string) Target { return Target{MessageID: id} }
func ByChat(id string) Target    { return Target{ChatID: id} }

type textContent struct {
	Text string `json:"text"`
}

type replyRequest struct {
	MsgType string `json:"msg_type"`
	Content string `json:"content"`
}

type sendRequest struct {
	ReceiveID string `json:"receive_id"`
	MsgType   string `json:"msg_type"`
	Content   string `json:"content"`
}

// TextContent encodes text the way the im/v1 API expects the content field:
// a JSON document carried as a string.
func TextContent(text string) (string, error) {
	b, err := json.Marshal(textContent{Text: text})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Reply posts text to target using the given bearer token. Failures come
// back as *DispatchError; nothing is retried.
func (c *Client) Reply(ctx context.Context, token string, target Target, text string) error {
	content, err := TextContent(text)
	if err != nil {
		return &DispatchError{Op: "encode message", Err: err}
	}

	var (
		op      string
		path    string
		payload any
	)
	switch {
	case target.MessageID != "":
		op = "reply message"
		path = "/open-apis/im/v1/messages/" + url.PathEscape(target.MessageID) + "/reply"
		payload = replyRequest{MsgType: "text", Content: content}
	case target.ChatID != "":
		op = "send message"
		path = "/open-apis/im/v1/messages?receive_id_type=chat_id"
		payload = sendRequest{ReceiveID: target.ChatID, MsgType: "text", Content: content}
	default:
		return &DispatchError{Op: "send message", Err: errors.New("no message id or chat id to reply to")}
	}

	status, body, err := c.do(ctx, op, http.MethodPost, path, token, payload)
	if err != nil {
		return &DispatchError{Op: op, Status: status, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil && ok(status) {
		return &DispatchError{Op: op, Status: status, Body: string(body), Err: fmt.Errorf("decode response: %w", err)}
	}
	if !ok(status) || env.Code != 0 {
		c.forgetRejected(token, env.Code)
		return &DispatchError{Op: op, Status: status, Code: env.Code, Body: string(body)}
	}
	return nil
}
