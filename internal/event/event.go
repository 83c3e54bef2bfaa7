package event

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

type Kind int

const (
	KindUnrecognized Kind = iota
	KindHandshake
	KindMessage
)

func (k Kind) String() string {
	switch k {
	case KindHandshake:
		return "handshake"
	case KindMessage:
		return "message"
	}
	return "unrecognized"
}

const (
	TypeURLVerification = "url_verification"
	TypeMessageReceive  = "im.message.receive_v1"
	typeEventCallback   = "event_callback"
)

var (
	ErrInvalidJSON  = errors.New("invalid json body")
	ErrMissingEvent = errors.New("missing event data")
)

// Event is the classified form of one inbound callback. For KindHandshake
// only Challenge is set; for KindMessage Text and at least one of MessageID
// or ChatID are set; for KindUnrecognized Reason says why it was skipped.
type Event struct {
	Kind      Kind
	Type      string
	Challenge string
	MessageID string
	ChatID    string
	SenderID  string
	Text      string
	Reason    string
}

type callback struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Header    *struct {
		EventType string `json:"event_type"`
	} `json:"header"`
	Event json.RawMessage `json:"event"`
}

type messageEvent struct {
	Sender struct {
		SenderType string `json:"sender_type"`
		SenderID   struct {
			OpenID string `json:"open_id"`
		} `json:"sender_id"`
	} `json:"sender"`
	Message *struct {
		MessageID   string `json:"message_id"`
		ChatID      string `json:"chat_id"`
		MessageType string `json:"message_type"`
		Content     string `json:"content"`
		Text        string `json:"text"`
	} `json:"message"`
}

var mentionRe = regexp.MustCompile(`@_user_\d+`)

// Classify decodes a callback body. It only fails when the body is not JSON
// or carries neither a handshake nor any event; everything else that cannot
// be relayed comes back as KindUnrecognized.
func Classify(body []byte) (Event, error) {
	var cb callback
	if err := json.Unmarshal(body, &cb); err != nil {
		return Event{}, ErrInvalidJSON
	}

	typ := cb.Type
	if cb.Header != nil && cb.Header.EventType != "" {
		typ = cb.Header.EventType
	}
	if cb.Type == TypeURLVerification {
		return Event{Kind: KindHandshake, Type: TypeURLVerification, Challenge: cb.Challenge}, nil
	}

	if len(cb.Event) == 0 || string(cb.Event) == "null" {
		return Event{}, ErrMissingEvent
	}
	ev := Event{Kind: KindUnrecognized, Type: typ}

	switch typ {
	case "", TypeMessageReceive, typeEventCallback:
	default:
		ev.Reason = "unsupported event type"
		return ev, nil
	}

	var me messageEvent
	if err := json.Unmarshal(cb.Event, &me); err != nil || me.Message == nil {
		ev.Reason = "not a message event"
		return ev, nil
	}
	msg := me.Message
	ev.MessageID = msg.MessageID
	ev.ChatID = msg.ChatID
	ev.SenderID = me.Sender.SenderID.OpenID

	if me.Sender.SenderType == "app" {
		ev.Reason = "sent by an app"
		return ev, nil
	}
	if msg.MessageType != "" && msg.MessageType != "text" {
		ev.Reason = "message type " + msg.MessageType
		return ev, nil
	}

	text, err := messageText(msg.Text, msg.Content)
	if err != nil {
		ev.Reason = "unreadable message content"
		return ev, nil
	}
	if text == "" {
		ev.Reason = "empty text"
		return ev, nil
	}
	if ev.MessageID == "" && ev.ChatID == "" {
		ev.Reason = "no reply target"
		return ev, nil
	}

	ev.Kind = KindMessage
	ev.Text = text
	return ev, nil
}

// messageText supports both payload shapes seen in the wild: a plain
// message.text field, and message.content holding a JSON {"text": ...}.
func messageText(text, content string) (string, error) {
	if text == "" && content != "" {
		var c struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(content), &c); err != nil {
			return "", err
		}
		text = c.Text
	}
	return strings.TrimSpace(mentionRe.ReplaceAllString(text, "")), nil
}
