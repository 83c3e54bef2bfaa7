package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/larkrelay/backend/internal/ai"
	"github.com/larkrelay/backend/internal/config"
	"github.com/larkrelay/backend/internal/event"
	"github.com/larkrelay/backend/internal/lark"
)

const (
	StageCompletion = "completion"
	StageAuth       = "auth"
	StageDispatch   = "dispatch"
)

// Messenger is the part of the Lark client the relay needs.
type Messenger interface {
	AcquireToken(ctx context.Context, kind lark.TokenKind) (string, error)
	Reply(ctx context.Context, token string, target lark.Target, text string) error
}

// StageError tells which outbound step of a relay failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

type RelayService struct {
	Completer    ai.Completer
	Lark         Messenger
	Model        string
	SystemPrompt string
	ReplyMode    string
	Logger       zerolog.Logger
}

// Relay asks the model about the message text and posts the answer back to
// where the message came from. Each outbound call is made once, in order:
// completion, tenant token, reply.
func (s *RelayService) Relay(ctx context.Context, ev event.Event) error {
	reply, err := s.Completer.Complete(ctx, s.Model, s.SystemPrompt, ev.Text)
	if err != nil {
		return &StageError{Stage: StageCompletion, Err: err}
	}

	token, err := s.Lark.AcquireToken(ctx, lark.TenantToken)
	if err != nil {
		return &StageError{Stage: StageAuth, Err: err}
	}

	target := s.target(ev)
	if err := s.Lark.Reply(ctx, token, target, reply); err != nil {
		return &StageError{Stage: StageDispatch, Err: err}
	}

	s.Logger.Info().
		Str("message_id", ev.MessageID).
		Str("chat_id", ev.ChatID).
		Int("reply_len", len(reply)).
		Msg("reply sent")
	return nil
}

// target picks the reply form for the configured mode, falling back to the
// other form when the event lacks the preferred id.
func (s *RelayService) target(ev event.Event) lark.Target {
	if s.ReplyMode == config.ReplyModeChat {
		if ev.ChatID != "" {
			return lark.ByChat(ev.ChatID)
		}
		return lark.ByMessage(ev.MessageID)
	}
	if ev.MessageID != "" {
		return lark.ByMessage(ev.MessageID)
	}
	return lark.ByChat(ev.ChatID)
}
