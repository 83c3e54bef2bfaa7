package event

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	const name = "X-Lark-Verification-Token"
	tests := []struct {
		name     string
		header   string
		set      bool
		expected string
		want     bool
	}{
		{name: "match", header: "abc", set: true, expected: "abc", want: true},
		{name: "mismatch", header: "abd", set: true, expected: "abc", want: false},
		{name: "case sensitive", header: "ABC", set: true, expected: "abc", want: false},
		{name: "missing header", expected: "abc", want: false},
		{name: "empty secret accepts missing header", expected: "", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.set {
				h.Set(name, tt.header)
			}
			assert.Equal(t, tt.want, Verify(h, name, tt.expected))
		})
	}
}

func TestClassifyHandshake(t *testing.T) {
	ev, err := Classify([]byte(`{"type":"url_verification","challenge":"ajls384kdjx98XX","token":"t"}`))
	require.NoError(t, err)
	assert.Equal(t, KindHandshake, ev.Kind)
	assert.Equal(t, "ajls384kdjx98XX", ev.Challenge)
}

func TestClassifyPlainTextShape(t *testing.T) {
	ev, err := Classify([]byte(`{"type":"im.message.receive_v1","event":{"message":{"message_id":"m1","text":"hello"}}}`))
	require.NoError(t, err)
	assert.Equal(t, KindMessage, ev.Kind)
	assert.Equal(t, "m1", ev.MessageID)
	assert.Equal(t, "hello", ev.Text)
}

func TestClassifyEmbeddedContentShape(t *testing.T) {
	body := `{
		"schema":"2.0",
		"header":{"event_type":"im.message.receive_v1","token":"v"},
		"event":{
			"sender":{"sender_type":"user","sender_id":{"open_id":"ou_1"}},
			"message":{"message_id":"om_2","chat_id":"oc_3","message_type":"text","content":"{\"text\":\"@_user_1 tóm tắt giúp tôi\"}"}
		}
	}`
	ev, err := Classify([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, KindMessage, ev.Kind)
	assert.Equal(t, TypeMessageReceive, ev.Type)
	assert.Equal(t, "om_2", ev.MessageID)
	assert.Equal(t, "oc_3", ev.ChatID)
	assert.Equal(t, "ou_1", ev.SenderID)
	assert.Equal(t, "tóm tắt giúp tôi", ev.Text)
}

func TestClassifyUnrecognized(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "other event type", body: `{"header":{"event_type":"im.chat.member.bot.added_v1"},"event":{"chat_id":"oc_1"}}`},
		{name: "no message", body: `{"type":"im.message.receive_v1","event":{"foo":1}}`},
		{name: "bot sender", body: `{"event":{"sender":{"sender_type":"app"},"message":{"message_id":"m","text":"hi"}}}`},
		{name: "image message", body: `{"event":{"message":{"message_id":"m","message_type":"image","content":"{\"image_key\":\"k\"}"}}}`},
		{name: "bad content", body: `{"event":{"message":{"message_id":"m","content":"not json"}}}`},
		{name: "only mention", body: `{"event":{"message":{"message_id":"m","text":"@_user_1"}}}`},
		{name: "no target", body: `{"event":{"message":{"text":"hi"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Classify([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, KindUnrecognized, ev.Kind)
			assert.NotEmpty(t, ev.Reason)
		})
	}
}

func TestClassifyErrors(t *testing.T) {
	_, err := Classify([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidJSON)

	_, err = Classify([]byte(`{"type":"im.message.receive_v1"}`))
	assert.ErrorIs(t, err, ErrMissingEvent)

	_, err = Classify([]byte(`{"event":null}`))
	assert.ErrorIs(t, err, ErrMissingEvent)
}
