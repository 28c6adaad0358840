package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	consts "github.com/khanhnv2901/phishscope/internal/shared/constants"
)

// OpenAIConfig configures an OpenAIGenerator.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string // empty uses the public OpenAI endpoint
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration // per attempt
	Retry       RetryConfig
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// OpenAIGenerator talks to any OpenAI-compatible chat completions endpoint.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	retry       RetryConfig
	logger      *zap.Logger
}

// NewOpenAIGenerator builds a generator. The API key is held by the client
// instance only.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = consts.DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = consts.DefaultGenerationTimeout
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		retry:       cfg.Retry,
		logger:      cfg.Logger,
	}, nil
}

// Generate sends prompt as a single user message and returns the first
// choice's content. Transport failures, timeouts and rate limiting are
// retried with exponential backoff.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var text string
	attempt := 0

	op := func() error {
		attempt++
		out, err := g.complete(ctx, prompt)
		if err == nil {
			text = out
			return nil
		}
		if ctx.Err() != nil || !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		g.logger.Debug("generation attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(op, g.retry.newBackOff(ctx), notify); err != nil {
		var genErr *GenerationError
		if errors.As(err, &genErr) {
			return "", genErr
		}
		// Context ended while waiting between attempts.
		return "", classifyError(err)
	}
	return text, nil
}

func (g *OpenAIGenerator) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &GenerationError{Kind: KindEmptyResponse, Err: errors.New("response has no choices")}
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", &GenerationError{Kind: KindEmptyResponse, Err: errors.New("response content is empty")}
	}
	return content, nil
}

// classifyError maps client errors onto generation error kinds.
func classifyError(err error) *GenerationError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusError(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return statusError(reqErr.HTTPStatusCode, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &GenerationError{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &GenerationError{Kind: KindTimeout, Err: err}
	}
	return &GenerationError{Kind: KindTransport, Err: err}
}

func statusError(status int, err error) *GenerationError {
	switch {
	case status == http.StatusTooManyRequests:
		return &GenerationError{Kind: KindRateLimited, StatusCode: status, Err: err}
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return &GenerationError{Kind: KindTimeout, StatusCode: status, Err: err}
	case status >= http.StatusInternalServerError:
		return &GenerationError{Kind: KindTransport, StatusCode: status, Err: err}
	case status >= http.StatusBadRequest:
		return &GenerationError{Kind: KindRejected, StatusCode: status, Err: err}
	default:
		return &GenerationError{Kind: KindTransport, StatusCode: status, Err: fmt.Errorf("unexpected response: %w", err)}
	}
}
