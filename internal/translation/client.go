package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"msg-translator/internal/config"
	"msg-translator/internal/textutil"
)

var (
	// ErrEmptyResponse is returned when the endpoint answers with an empty
	// body or an empty completion.
	ErrEmptyResponse = errors.New("empty response")
	// ErrNoChoices is returned when a decoded response has no choices.
	ErrNoChoices = errors.New("response has no choices")
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer returns the model's reply to a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// ChatClient talks to an OpenAI-compatible chat completions endpoint.
type ChatClient struct {
	url         string
	apiKey      string
	model       string
	temperature float64
	maxRetries  int
	retryDelay  time.Duration
	httpClient  *http.Client
	sem         *semaphore.Weighted
}

// NewChatClient creates a client from cfg using apiKey for bearer auth.
func NewChatClient(cfg *config.Config, apiKey string) *ChatClient {
	return &ChatClient{
		url:         normalizeAPIURL(cfg.APIBaseURL),
		apiKey:      apiKey,
		model:       cfg.TranslationModel,
		temperature: cfg.Temperature,
		maxRetries:  max(1, cfg.MaxRetries),
		retryDelay:  cfg.RetryDelay,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		sem: semaphore.NewWeighted(int64(max(1, cfg.MaxConcurrentAPICalls))),
	}
}

// normalizeAPIURL accepts either a base URL or the full completions URL.
func normalizeAPIURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	return base + "/chat/completions"
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage,omitempty"`
}

// retryable marks an error worth another attempt.
type retryable struct{ err error }

func (r retryable) Error() string { return r.err.Error() }
func (r retryable) Unwrap() error { return r.err }

// Complete sends messages and returns the trimmed reply with one pair of
// surrounding quotes removed. Transport errors, 429 and 5xx responses,
// empty bodies and undecodable JSON are retried with a linearly growing
// delay.
func (c *ChatClient) Complete(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.retryDelay * time.Duration(attempt)
			log.Warn().Err(lastErr).Int("attempt", attempt+1).Dur("backoff", backoff).Msg("Retrying chat request")
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		reply, err := c.do(ctx, body)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var r retryable
		if !errors.As(err, &r) {
			return "", err
		}
	}
	return "", fmt.Errorf("chat request failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *ChatClient) do(ctx context.Context, body []byte) (string, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.sem.Release(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", retryable{fmt.Errorf("API call: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", retryable{fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", retryable{fmt.Errorf("retryable error (status %d): %s", resp.StatusCode, textutil.Truncate(string(respBody), 200))}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, textutil.Truncate(string(respBody), 200))
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return "", retryable{ErrEmptyResponse}
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", retryable{fmt.Errorf("unmarshal response: %w", err)}
	}
	if len(apiResp.Choices) == 0 {
		return "", ErrNoChoices
	}

	if apiResp.Usage != nil {
		log.Debug().
			Int("prompt_tokens", apiResp.Usage.PromptTokens).
			Int("output_tokens", apiResp.Usage.CompletionTokens).
			Msg("Chat request complete")
	}

	return textutil.TrimQuotes(strings.TrimSpace(apiResp.Choices[0].Message.Content)), nil
}
