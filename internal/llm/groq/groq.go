// Package groq implements the llm.Interpreter against Groq's
// chat-completions API (OpenAI wire format).
package groq

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

	"github.com/apex/log"

	"github.com/arko007/chexray-api/internal/llm"
	"github.com/arko007/chexray-api/internal/prompt"
)

const defaultEndpoint = "https://api.groq.com/openai/v1/chat/completions"

// Decoding is pinned low-temperature and length-bounded. Near-deterministic
// in practice; the provider offers no hard guarantee.
const (
	temperature = 0.3
	maxTokens   = 1000
)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client is a Groq chat-completions client. Safe for concurrent use.
type Client struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// Option adjusts client construction.
type Option func(*Client)

// WithEndpoint overrides the completions URL. Used by tests.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// NewClient creates a Groq client with a hard per-request timeout.
func NewClient(apiKey, model string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		model:    model,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SourceName identifies this provider in logs.
func (c *Client) SourceName() string {
	return "Groq"
}

// Interpret sends the prompt and returns the completion text. Transport
// failures and timeouts are retried once with identical input; rejections
// are never retried.
func (c *Client) Interpret(ctx context.Context, p prompt.Prompt) (string, error) {
	text, err := c.complete(ctx, p)
	if err == nil {
		return text, nil
	}
	if errors.Is(err, llm.ErrRejected) || ctx.Err() != nil {
		return "", err
	}

	log.WithError(err).Warn("llm call failed, retrying once")
	return c.complete(ctx, p)
}

func (c *Client) complete(ctx context.Context, p prompt.Prompt) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return "", fmt.Errorf("%w: %v", llm.ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", llm.ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: status %d", llm.ErrRejected, resp.StatusCode)
	default:
		return "", fmt.Errorf("%w: status %d", llm.ErrUnavailable, resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("%w: failed to parse response: %v", llm.ErrUnavailable, err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", llm.ErrUnavailable)
	}

	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", llm.ErrUnavailable)
	}
	return text, nil
}

func isClientTimeout(err error) bool {
	var ue interface{ Timeout() bool }
	return errors.As(err, &ue) && ue.Timeout()
}
