package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/larkrelay/backend/internal/event"
	"github.com/larkrelay/backend/internal/http/middleware"
	"github.com/larkrelay/backend/internal/service"
)

const maxBodyBytes = 1 << 20

// Relayer answers one inbound chat message.
type Relayer interface {
	Relay(ctx context.Context, ev event.Event) error
}

type Handler struct {
	Relay          Relayer
	Logger         zerolog.Logger
	RequestTimeout time.Duration
}

type WebhookAck struct {
	Status string `json:"status"`
}

type ChallengeResponse struct {
	Challenge string `json:"challenge"`
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Lark event callback
// @Description Receives url_verification handshakes and im.message.receive_v1 events.
// @Description Message events are answered through the completion API and acknowledged with 200 even when relaying fails.
// @Description A 400 (body not JSON, or no event) is final for that payload: nothing is relayed, and a redelivered copy gets the same 400.
// @Tags webhook
// @Accept json
// @Produce json
// @Param X-Lark-Verification-Token header string true "shared verification token"
// @Success 200 {object} WebhookAck
// @Success 200 {object} ChallengeResponse
// @Failure 400 {object} map[string]any "not JSON or no event; final for that payload"
// @Failure 401 {object} map[string]any
// @Router /webhook [post]
func (h *Handler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to read body", err.Error())
		return
	}

	ev, err := event.Classify(body)
	switch {
	case errors.Is(err, event.ErrInvalidJSON):
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Body must be JSON", nil)
		return
	case errors.Is(err, event.ErrMissingEvent):
		writeError(c, http.StatusBadRequest, "MISSING_EVENT", "Missing event data", nil)
		return
	case err != nil:
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	rid := c.GetString(middleware.RequestIDHeader)
	switch ev.Kind {
	case event.KindHandshake:
		c.JSON(http.StatusOK, ChallengeResponse{Challenge: ev.Challenge})
		return
	case event.KindMessage:
		h.relay(c.Request.Context(), rid, ev)
	default:
		h.Logger.Debug().
			Str("request_id", rid).
			Str("event_type", ev.Type).
			Str("reason", ev.Reason).
			Msg("event ignored")
	}

	// Always acknowledge: a non-2xx makes the platform redeliver the event.
	c.JSON(http.StatusOK, WebhookAck{Status: "ok"})
}

// relay runs detached from the inbound request: the platform hanging up
// must not abort a reply that is already on its way. RequestTimeout bounds it.
func (h *Handler) relay(ctx context.Context, rid string, ev event.Event) {
	ctx = context.WithoutCancel(ctx)
	if h.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.RequestTimeout)
		defer cancel()
	}

	err := h.Relay.Relay(ctx, ev)
	if err == nil {
		return
	}

	stage := "unknown"
	var stageErr *service.StageError
	if errors.As(err, &stageErr) {
		stage = stageErr.Stage
	}
	h.Logger.Error().
		Err(err).
		Str("request_id", rid).
		Str("stage", stage).
		Str("message_id", ev.MessageID).
		Str("chat_id", ev.ChatID).
		Str("user_text", ev.Text).
		Msg("relay failed")
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
