package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/ineqdash/internal/metrics"
	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultModel is used when neither the request nor the config names one.
const DefaultModel = "gpt-3.5-turbo"

// OpenAIRuntime sends chat completions through the OpenAI SDK. The SDK's own
// retries are disabled; retries on 429/5xx go through backoff here so they can
// be bounded by config.
type OpenAIRuntime struct {
	client openai.Client
	apiKey string
	cfg    RuntimeConfig
}

// NewOpenAIRuntime applies defaults to cfg and builds the SDK client.
func NewOpenAIRuntime(cfg RuntimeConfig) *OpenAIRuntime {
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 60 * time.Second
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 4 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIRuntime{client: openai.NewClient(opts...), apiKey: cfg.APIKey, cfg: cfg}
}

func (r *OpenAIRuntime) newBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.cfg.BaseDelay
	bo.MaxInterval = r.cfg.MaxDelay
	bo.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(r.cfg.RetryMax-1)), ctx)
}

// Generate sends one completion request, retrying rate limits and server errors.
func (r *OpenAIRuntime) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if r.apiKey == "" {
		return nil, &MissingKeyError{Provider: ProviderOpenAI}
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("no messages to send")
	}
	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: toParams(req.Messages),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	start := time.Now()
	var (
		out      *GenerateResponse
		attempts int
	)
	operation := func() error {
		attempts++
		resp, err := r.client.Chat.Completions.New(ctx, params)
		if err != nil {
			classified := classify(err)
			if retryable(classified) {
				if rl, ok := classified.(*RateLimitError); ok && rl.RetryAfter > 0 {
					select {
					case <-time.After(rl.RetryAfter):
					case <-ctx.Done():
						return backoff.Permanent(ctx.Err())
					}
				}
				return classified
			}
			return backoff.Permanent(classified)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("empty completion (id %s)", resp.ID))
		}
		out = &GenerateResponse{
			ID:      resp.ID,
			Model:   resp.Model,
			Content: resp.Choices[0].Message.Content,
			Usage: Usage{
				PromptTokens:     int(resp.Usage.PromptTokens),
				CompletionTokens: int(resp.Usage.CompletionTokens),
				TotalTokens:      int(resp.Usage.TotalTokens),
			},
		}
		return nil
	}
	err := backoff.Retry(operation, r.newBackOff(ctx))
	elapsed := time.Since(start)
	metrics.ChatLatency.Observe(elapsed.Seconds())
	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues(statusLabel(err)).Inc()
		return nil, err
	}
	metrics.ChatRequestsTotal.WithLabelValues("ok").Inc()
	out.Attempts = attempts
	out.Seconds = elapsed.Seconds()
	return out, nil
}

func toParams(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// classify maps SDK errors onto the package's typed errors.
func classify(err error) error {
	var oe *openai.Error
	if !errors.As(err, &oe) {
		return fmt.Errorf("chat request: %w", err)
	}
	apiErr := &APIError{StatusCode: oe.StatusCode, Code: oe.Code, Message: oe.Message}
	var ra time.Duration
	if oe.Response != nil {
		apiErr.RequestID = extractRequestID(oe.Response)
		if v := oe.Response.Header.Get("Retry-After"); v != "" {
			if secs, err := parseRetryAfterSeconds(v); err == nil && secs > 0 {
				ra = time.Duration(secs) * time.Second
			}
		}
	}
	sc := apiErr.StatusCode
	switch {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
		return &AuthError{APIError: apiErr}
	case apiErr.Code == "insufficient_quota" || containsAnyFold(apiErr.Message, "quota", "billing"):
		return &QuotaExceededError{APIError: apiErr}
	case sc == http.StatusTooManyRequests:
		return &RateLimitError{APIError: apiErr, RetryAfter: ra}
	case sc == http.StatusNotFound && (apiErr.Code == "model_not_found" || containsAllFold(apiErr.Message, "model", "not", "exist")):
		return &ModelNotFoundError{APIError: apiErr}
	case sc == http.StatusBadRequest:
		return &BadRequestError{APIError: apiErr}
	case sc >= 500 && sc <= 599:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

func retryable(err error) bool {
	switch err.(type) {
	case *RateLimitError, *ServerError:
		return true
	}
	return false
}

func statusLabel(err error) string {
	switch err.(type) {
	case *MissingKeyError:
		return "missing_key"
	case *AuthError:
		return "auth"
	case *RateLimitError:
		return "rate_limited"
	case *QuotaExceededError:
		return "quota"
	case *ModelNotFoundError:
		return "model_not_found"
	case *BadRequestError:
		return "bad_request"
	case *ServerError:
		return "server"
	}
	return "error"
}

// parseRetryAfterSeconds interprets a Retry-After header as seconds or HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

// extractRequestID pulls a best-effort request ID from common headers.
func extractRequestID(resp *http.Response) string {
	for _, k := range []string{"X-Request-Id", "OpenAI-Request-ID"} {
		if v := resp.Header.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func containsAllFold(s string, subs ...string) bool {
	for _, sub := range subs {
		if !containsFold(s, sub) {
			return false
		}
	}
	return true
}

func containsAnyFold(s string, subs ...string) bool {
	for _, sub := range subs {
		if containsFold(s, sub) {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	if s == "" || sub == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
