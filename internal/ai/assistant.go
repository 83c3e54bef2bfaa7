package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 45 * time.Second
)

// OpenAICompatAssistant calls any OpenAI compatible /chat/completions endpoint.
type OpenAICompatAssistant struct {
	BaseURL   string
	Model     string
	APIKey    string
	MaxTokens int
	Client    *http.Client
}

type RateLimitError struct {
	RetryAfter time.Duration
}

func (r RateLimitError) Error() string {
	if r.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", r.RetryAfter)
	}
	return "rate limited"
}

type completionRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens,omitempty"`
	Messages  []ChatMessage `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the prompt and returns the first choice's content as is.
// An empty model falls back to the assistant's configured one.
func (a OpenAICompatAssistant) Complete(ctx context.Context, model, systemPrompt, userText string) (string, error) {
	if model == "" {
		model = a.Model
	}
	if strings.TrimSpace(model) == "" {
		return "", &CompletionError{Err: errors.New("OPENAI_MODEL is not set")}
	}
	base := a.BaseURL
	if strings.TrimSpace(base) == "" {
		base = DefaultBaseURL
	}

	payload := completionRequest{
		Model:     model,
		MaxTokens: a.MaxTokens,
		Messages:  BuildMessages(systemPrompt, userText),
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", &CompletionError{Err: err}
	}

	url := strings.TrimRight(base, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", &CompletionError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(a.APIKey) != "" {
		req.Header.Set("Authorization", "Bearer "+a.APIKey)
	}

	client := a.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &CompletionError{Err: fmt.Errorf("request timed out: %w", err)}
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", &CompletionError{Err: fmt.Errorf("request timed out: %w", err)}
		}
		return "", &CompletionError{Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var errBody map[string]any
		_ = json.Unmarshal(raw, &errBody)
		if resp.StatusCode == http.StatusTooManyRequests {
			return "", &CompletionError{Err: RateLimitError{RetryAfter: retryAfter(resp.Header.Get("Retry-After"), errBody)}}
		}
		return "", &CompletionError{Err: fmt.Errorf("http error: %s: %s", resp.Status, strings.TrimSpace(string(raw)))}
	}

	var res completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", &CompletionError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(res.Choices) == 0 {
		return "", &CompletionError{Err: ErrNoChoices}
	}
	return res.Choices[0].Message.Content, nil
}

// retryAfter reads the Retry-After header (delay-seconds or HTTP-date) and
// falls back to a RetryInfo detail in the error body. Zero means unknown.
func retryAfter(header string, errBody map[string]any) time.Duration {
	header = strings.TrimSpace(header)
	if header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
		if at, err := http.ParseTime(header); err == nil {
			if d := time.Until(at); d > 0 {
				return d
			}
			return 0
		}
	}
	return retryDelayFromBody(errBody)
}

func retryDelayFromBody(errBody map[string]any) time.Duration {
	errObj, ok := errBody["error"].(map[string]any)
	if !ok {
		return 0
	}
	details, ok := errObj["details"].([]any)
	if !ok {
		return 0
	}
	for _, d := range details {
		m, ok := d.(map[string]any)
		if !ok {
			continue
		}
		if t, ok := m["@type"].(string); ok && strings.Contains(t, "RetryInfo") {
			if s, ok := m["retryDelay"].(string); ok {
				if dur, err := time.ParseDuration(s); err == nil {
					return dur
				}
			}
		}
	}
	return 0
}
