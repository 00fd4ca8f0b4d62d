// Package llm abstracts the external language-model provider behind a small
// capability interface so the orchestrator's failure handling can be tested
// without network access.
package llm

import (
	"context"
	"errors"

	"github.com/arko007/chexray-api/internal/prompt"
)

// Provider failure taxonomy. Callers classify with errors.Is; provider
// specific detail stays wrapped underneath and never crosses the HTTP
// boundary.
var (
	// ErrUnavailable covers transport failures and provider-side errors.
	ErrUnavailable = errors.New("llm provider unavailable")
	// ErrRejected covers authentication and quota failures. Never retried.
	ErrRejected = errors.New("llm provider rejected the request")
	// ErrTimeout covers a missing response within the configured deadline.
	ErrTimeout = errors.New("llm provider timed out")
)

// Interpreter sends a rendered prompt to a text-completion provider and
// returns raw text. Implementations must be safe for concurrent use.
type Interpreter interface {
	// Interpret fails with one of ErrUnavailable, ErrRejected or ErrTimeout.
	Interpret(ctx context.Context, p prompt.Prompt) (string, error)
	// SourceName returns a short provider label for logs.
	SourceName() string
}
