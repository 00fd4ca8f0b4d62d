// Package stubllm is a deterministic, no-network Interpreter intended for CI
// and local end-to-end tests. It echoes enough of the prompt back that
// downstream assertions can exercise the full pipeline.
package stubllm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/arko007/chexray-api/internal/prompt"
)

// Client implements llm.Interpreter without touching the network.
type Client struct {
	// Err, when set, is returned from every Interpret call.
	Err error

	// Calls counts Interpret invocations. Not synchronized; test-only.
	Calls int
}

func NewClient() *Client { return &Client{} }

func (c *Client) SourceName() string { return "Stub" }

// Interpret returns a deterministic per-input completion ending in a
// disclaimer sentence, so response-shape assertions hold in CI.
func (c *Client) Interpret(_ context.Context, p prompt.Prompt) (string, error) {
	c.Calls++
	if c.Err != nil {
		return "", c.Err
	}

	sum := sha256.Sum256([]byte(p.System + "\n" + p.User))
	short := hex.EncodeToString(sum[:8])
	return fmt.Sprintf(
		"Stub interpretation (%s). These are probabilistic model outputs, not findings. "+
			"Disclaimer: this is not medical advice; consult a healthcare professional.",
		short,
	), nil
}
