package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/larkrelay/backend/internal/lark"
)

const (
	EmptySummary = "📋 Không có đơn thanh toán nào."
	placeholder  = "?"
)

// SummaryFields names the bitable columns shown in each summary line.
type SummaryFields struct {
	Employee string
	Amount   string
	Status   string
}

// Bitable is the part of the Lark client the summary needs.
type Bitable interface {
	AcquireToken(ctx context.Context, kind lark.TokenKind) (string, error)
	ListRecords(ctx context.Context, token, appToken, tableID string, pageSize int) (lark.RecordPage, error)
	Reply(ctx context.Context, token string, target lark.Target, text string) error
}

type SummaryService struct {
	Lark     Bitable
	Fields   SummaryFields
	PageSize int
	Logger   zerolog.Logger
}

// FetchSummary reads the first page of the table with an app token and
// renders it. Rows beyond the first page are not fetched.
func (s *SummaryService) FetchSummary(ctx context.Context, appToken, tableID string) (string, error) {
	token, err := s.Lark.AcquireToken(ctx, lark.AppToken)
	if err != nil {
		return "", err
	}
	page, err := s.Lark.ListRecords(ctx, token, appToken, tableID, s.PageSize)
	if err != nil {
		return "", err
	}
	if page.HasMore {
		s.Logger.Warn().
			Int("fetched", len(page.Items)).
			Int("total", page.Total).
			Msg("bitable has more records than one page, summary is truncated")
	}
	return FormatSummary(page.Items, s.Fields), nil
}

// PublishSummary posts text into a chat. An empty token is acquired first.
func (s *SummaryService) PublishSummary(ctx context.Context, chatID, text, token string) error {
	if token == "" {
		t, err := s.Lark.AcquireToken(ctx, lark.TenantToken)
		if err != nil {
			return err
		}
		token = t
	}
	return s.Lark.Reply(ctx, token, lark.ByChat(chatID), text)
}

// FormatSummary renders one "i. employee - amount - status" line per record,
// 1-indexed and in the given order.
func FormatSummary(records []lark.Record, fields SummaryFields) string {
	if len(records) == 0 {
		return EmptySummary
	}
	lines := make([]string, 0, len(records))
	for i, r := range records {
		lines = append(lines, fmt.Sprintf("%d. %s - %s - %s",
			i+1,
			FieldText(r.Fields[fields.Employee]),
			FieldText(r.Fields[fields.Amount]),
			FieldText(r.Fields[fields.Status]),
		))
	}
	return strings.Join(lines, "\n")
}

// FieldText flattens a bitable cell value to display text. Missing or empty
// values render as "?".
func FieldText(v any) string {
	var s string
	switch val := v.(type) {
	case nil:
	case string:
		s = val
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(val)
	case map[string]any:
		s = segmentText(val)
	case []any:
		// Rich text arrives as segments to concatenate; anything else
		// (multi-select, people) is a list.
		sep := ""
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if m, ok := item.(map[string]any); !ok || m["text"] == nil {
				sep = ", "
			}
			if t := FieldText(item); t != placeholder {
				parts = append(parts, t)
			}
		}
		s = strings.Join(parts, sep)
	default:
		s = fmt.Sprint(val)
	}
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

// segmentText reads the object forms bitable uses for rich text, people and
// links.
func segmentText(m map[string]any) string {
	for _, key := range []string{"text", "name", "en_name", "link"} {
		if t, ok := m[key].(string); ok && t != "" {
			return t
		}
	}
	return ""
}
