// Package llm provides language-generation clients for keyword extraction
// and semantic match scoring. It supports Anthropic and OpenAI providers
// behind a single Completer interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotConfigured is returned by the disabled provider; callers with a
// deterministic fallback path treat it like any other completion failure.
var ErrNotConfigured = errors.New("llm provider not configured")

// Provider defaults.
const (
	defaultAnthropicModel   = "claude-3-5-haiku-latest"
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultOpenAIBaseURL    = "https://api.openai.com"

	defaultTimeout     = 60 * time.Second
	defaultMaxTokens   = 1024
	defaultMaxRetries  = 3
	defaultBaseBackoff = time.Second

	// Requests per second and burst for the client-side rate limiter.
	defaultRateLimit = 2
	defaultBurst     = 5
)

// Completer generates a completion from a prompt.
type Completer interface {
	// Complete sends the prompt to the provider and returns the generated
	// text. Implementations handle rate limiting, retries on transient
	// errors, and context cancellation.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config holds provider-specific configuration.
type Config struct {
	// Provider selects the backend: "anthropic", "openai", or "disabled".
	Provider string `koanf:"provider"`

	Model     string `koanf:"model"`
	APIKey    string `koanf:"api_key"`
	BaseURL   string `koanf:"base_url"`
	MaxTokens int    `koanf:"max_tokens"`

	// Timeout is the per-request HTTP timeout in seconds.
	Timeout int `koanf:"timeout"`
}

// New creates a Completer for the configured provider.
func New(cfg Config) (Completer, error) {
	switch cfg.Provider {
	case "anthropic":
		return newAnthropicClient(cfg)
	case "openai":
		return newOpenAIClient(cfg)
	case "disabled", "":
		return disabledCompleter{}, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s (supported: anthropic, openai, disabled)", cfg.Provider)
	}
}

// disabledCompleter always fails, exercising callers' fallback paths.
type disabledCompleter struct{}

func (disabledCompleter) Complete(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

// retryableError marks errors worth retrying (rate limits, 5xx, network).
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// isRetryableError checks whether an error is transient.
func isRetryableError(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
