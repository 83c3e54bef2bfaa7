package ai

import (
	"context"
	"fmt"
)

// EchoCompleter answers without calling any model. It is used when no
// completion endpoint is configured so the relay can still be exercised.
type EchoCompleter struct {
	Prefix string
}

func (e EchoCompleter) Complete(ctx context.Context, model, systemPrompt, userText string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &CompletionError{Err: err}
	}
	prefix := e.Prefix
	if prefix == "" {
		prefix = "echo"
	}
	return fmt.Sprintf("[%s] %s", prefix, userText), nil
}
