package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/incidex/internal/domain"
	"github.com/kailas-cloud/incidex/internal/metrics"
)

// Oracle is a scoring oracle backed by an OpenAI-compatible chat completions API.
type Oracle struct {
	client   *openai.Client
	model    string
	user     string
	provider string
	logger   *zap.Logger
}

// Config holds the oracle provider settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	User     string
	Provider string
	// Timeout bounds one chat completion round trip. Zero means no client-side limit.
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewOracle creates an OpenAI-compatible scoring oracle.
func NewOracle(cfg *Config) *Oracle {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Oracle{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		user:     cfg.User,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// Complete implements domain.Oracle. Returns the first choice and usage with transport-level metrics.
func (o *Oracle) Complete(ctx context.Context, p domain.Prompt) (domain.Completion, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		User:        o.user,
	}
	if p.System != "" {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: p.System,
		})
	}
	req.Messages = append(req.Messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: p.User,
	})

	start := time.Now()

	resp, err := o.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.OracleRequestsTotal.WithLabelValues(o.provider, o.model, "error").Inc()
		metrics.OracleErrorsTotal.WithLabelValues(o.provider, o.model, errorType(err)).Inc()
		return domain.Completion{}, parseAPIError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.OracleRequestsTotal.WithLabelValues(o.provider, o.model, "error").Inc()
		metrics.OracleErrorsTotal.WithLabelValues(o.provider, o.model, "empty_response").Inc()
		return domain.Completion{}, fmt.Errorf("empty completion response: %w", domain.ErrOracleUnavailable)
	}

	metrics.OracleRequestsTotal.WithLabelValues(o.provider, o.model, "success").Inc()
	metrics.OracleRequestDuration.WithLabelValues(o.provider, o.model).Observe(duration.Seconds())

	totalTokens := resp.Usage.TotalTokens
	promptTokens := resp.Usage.PromptTokens
	if totalTokens > 0 {
		metrics.OracleTokensTotal.WithLabelValues(o.provider, o.model, "prompt").Add(float64(promptTokens))
		metrics.OracleTokensTotal.WithLabelValues(o.provider, o.model, "completion").Add(float64(resp.Usage.CompletionTokens))
		metrics.OracleTokensTotal.WithLabelValues(o.provider, o.model, "total").Add(float64(totalTokens))
	}

	if resp.Choices[0].FinishReason == openai.FinishReasonLength {
		o.logger.Debug("Completion truncated at max tokens",
			zap.String("model", o.model),
			zap.Int("max_tokens", p.MaxTokens),
		)
	}

	return domain.Completion{
		Text:         resp.Choices[0].Message.Content,
		PromptTokens: promptTokens,
		TotalTokens:  totalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (o *Oracle) HealthCheck(ctx context.Context) error {
	if _, err := o.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case statusCode(err) == http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "api_error"
	}
}

func statusCode(err error) int {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	return 0
}

// parseAPIError extracts a human-readable error from the API response.
// All errors wrap domain.ErrOracleUnavailable; 429 wraps domain.ErrRateLimited.
// Context errors are kept in the chain so callers can tell timeouts apart.
func parseAPIError(err error) error {
	var wrap error = domain.ErrOracleUnavailable
	if statusCode(err) == http.StatusTooManyRequests {
		wrap = domain.ErrRateLimited
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("completion API error %d: %s: %w",
			reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("completion API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("completion request: %w: %w", wrap, err)
	}
	return fmt.Errorf("completion request failed: %w", wrap)
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
