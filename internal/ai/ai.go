package ai

import (
	"context"
	"errors"
	"fmt"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ErrNoChoices is wrapped by CompletionError when the endpoint answered
// successfully but returned nothing to relay.
var ErrNoChoices = errors.New("no choices returned")

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer turns user text into a single reply string.
type Completer interface {
	Complete(ctx context.Context, model, systemPrompt, userText string) (string, error)
}

// CompletionError wraps every failure of a completion call.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion failed: %v", e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// BuildMessages returns the prompt sent to the model: an optional system
// entry followed by the user entry.
func BuildMessages(systemPrompt, userText string) []ChatMessage {
	msgs := make([]ChatMessage, 0, 2)
	if systemPrompt != "" {
		msgs = append(msgs, ChatMessage{Role: RoleSystem, Content: systemPrompt})
	}
	return append(msgs, ChatMessage{Role: RoleUser, Content: userText})
}
