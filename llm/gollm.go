package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teilomillet/gollm"
)

// GollmClient implements Client on top of a gollm.LLM instance. Retries are
// handled here rather than inside gollm so the typed error hierarchy decides
// what is worth retrying.
type GollmClient struct {
	provider string
	llm      gollm.LLM
	policy   RetryPolicy
	log      *slog.Logger
}

// Config selects the provider backing a GollmClient.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	MaxTokens   int
	Temperature float64
	Retry       RetryPolicy
}

// NewGollmClient creates a client for the configured provider. An empty API
// key lets gollm fall back to the provider's environment variable.
func NewGollmClient(cfg Config) (*GollmClient, error) {
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.BaseDelay == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}

	opts := []gollm.ConfigOption{
		gollm.SetProvider(cfg.Provider),
		gollm.SetMaxTokens(cfg.MaxTokens),
		gollm.SetTemperature(cfg.Temperature),
		gollm.SetMaxRetries(0), // retries are ours
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.Model != "" {
		opts = append(opts, gollm.SetModel(cfg.Model))
	}
	if cfg.APIKey != "" {
		opts = append(opts, gollm.SetAPIKey(cfg.APIKey))
	}

	inner, err := gollm.NewLLM(opts...)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Provider, err)
	}

	return &GollmClient{
		provider: cfg.Provider,
		llm:      inner,
		policy:   cfg.Retry,
		log:      slog.With("component", "llm", "provider", cfg.Provider),
	}, nil
}

// Chat sends the conversation and returns the model's reply.
func (c *GollmClient) Chat(ctx context.Context, messages []Message) (*Reply, error) {
	prompt := c.buildPrompt(messages)

	policy := c.policy
	if policy.OnRetry == nil {
		policy.OnRetry = func(err error, attempt int, delay time.Duration) {
			c.log.Warn("retrying request", "attempt", attempt, "delay", delay, "error", err)
		}
	}

	text, err := Retry(ctx, policy, func(ctx context.Context) (string, error) {
		out, err := c.llm.Generate(ctx, prompt)
		if err != nil {
			return "", c.translateError(err)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	return &Reply{Content: text}, nil
}

// buildPrompt flattens the history into a single gollm prompt: leading
// system messages become the system prompt, the remaining turns are labeled
// inline.
func (c *GollmClient) buildPrompt(messages []Message) *gollm.Prompt {
	system, rest := SplitHistory(messages)

	var parts []string
	for _, m := range rest {
		switch m.Role {
		case RoleAssistant:
			parts = append(parts, "[Assistant]: "+m.Content)
		default:
			parts = append(parts, m.Content)
		}
	}
	body := strings.Join(parts, "\n")
	if body == "" {
		body = "Hello"
	}

	var opts []gollm.PromptOption
	if system != "" {
		opts = append(opts, gollm.WithSystemPrompt(system, gollm.CacheTypeEphemeral))
	}
	return gollm.NewPrompt(body, opts...)
}

// translateError converts a gollm error into the typed hierarchy. gollm
// surfaces provider failures as flat error strings, so classification is by
// message content.
func (c *GollmClient) translateError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key"):
		return &AuthenticationError{ProviderError: ProviderError{
			SDKError: SDKError{Message: msg, Cause: err}, Provider: c.provider, StatusCode: 401,
		}}
	case strings.Contains(lower, "403") || strings.Contains(lower, "forbidden"):
		return &AccessDeniedError{ProviderError: ProviderError{
			SDKError: SDKError{Message: msg, Cause: err}, Provider: c.provider, StatusCode: 403,
		}}
	case strings.Contains(lower, "404") || strings.Contains(lower, "not found"):
		return &NotFoundError{ProviderError: ProviderError{
			SDKError: SDKError{Message: msg, Cause: err}, Provider: c.provider, StatusCode: 404,
		}}
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		return &RateLimitError{ProviderError: ProviderError{
			SDKError: SDKError{Message: msg, Cause: err}, Provider: c.provider, StatusCode: 429, Retryable: true,
		}}
	case strings.Contains(lower, "context length") || strings.Contains(lower, "too many tokens"):
		return &ContextLengthError{ProviderError: ProviderError{
			SDKError: SDKError{Message: msg, Cause: err}, Provider: c.provider, StatusCode: 413,
		}}
	case strings.Contains(lower, "500") || strings.Contains(lower, "internal server"):
		return &ServerError{ProviderError: ProviderError{
			SDKError: SDKError{Message: msg, Cause: err}, Provider: c.provider, StatusCode: 500, Retryable: true,
		}}
	case strings.Contains(lower, "timeout"):
		return &RequestTimeoutError{SDKError: SDKError{Message: msg, Cause: err}}
	case strings.Contains(lower, "content filter") || strings.Contains(lower, "safety"):
		return &ContentFilterError{ProviderError: ProviderError{
			SDKError: SDKError{Message: msg, Cause: err}, Provider: c.provider,
		}}
	default:
		return &ProviderError{
			SDKError:  SDKError{Message: msg, Cause: err},
			Provider:  c.provider,
			Retryable: true,
		}
	}
}
