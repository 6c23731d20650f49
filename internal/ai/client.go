package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/htonioni/smart-note-ai/internal/errs"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is Gemini's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	// DefaultModel is the model used when none is configured.
	DefaultModel = "gemini-2.5-flash"

	defaultRequestsPerMinute = 15
)

var errMissingAPIKey = errors.New("ai: api key is required")

// ClientConfig describes how to reach the model.
type ClientConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	RequestsPerMinute int
	HTTPClient        *http.Client
	Logger            *zap.Logger
}

// Client generates note enrichment through chat completions.
type Client struct {
	completions openai.ChatCompletionService
	model       string
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// NewClient validates the configuration and constructs a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errs.Wrap(errs.InvalidRequest, "ai client misconfigured", errMissingAPIKey)
	}

	baseURL := cfg.BaseURL
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = defaultRequestsPerMinute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	options := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		options = append(options, option.WithHTTPClient(cfg.HTTPClient))
	}
	openaiClient := openai.NewClient(options...)

	return &Client{
		completions: openaiClient.Chat.Completions,
		model:       model,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		logger:      logger,
	}, nil
}

// Generate asks the model for tags and a summary of the note.
func (c *Client) Generate(ctx context.Context, title, body string) (Content, error) {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" || body == "" {
		return Content{}, errs.New(errs.InvalidRequest, "title and body are required")
	}

	if !c.limiter.Allow() {
		c.logger.Warn("ai request budget exhausted", zap.String("model", c.model))
		return Content{}, errs.New(errs.RateLimited, "ai request budget exhausted")
	}

	completion, err := c.completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(BuildPrompt(title, body)),
		},
	})
	if err != nil {
		classified := classifyRequestError(err)
		c.logger.Warn("ai request failed",
			zap.String("model", c.model),
			zap.String("kind", string(errs.KindOf(classified))),
			zap.Error(err),
		)
		return Content{}, classified
	}
	if len(completion.Choices) == 0 {
		return Content{}, invalidResponse("reply has no choices")
	}

	content, err := ParseContent(completion.Choices[0].Message.Content)
	if err != nil {
		c.logger.Warn("ai reply rejected", zap.String("model", c.model), zap.Error(err))
		return Content{}, err
	}
	return content, nil
}

func classifyRequestError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return errs.Wrap(kindForStatus(apiErr.StatusCode), "ai service rejected the request", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.Connection, "ai request interrupted", err)
	}
	return errs.Wrap(errs.Connection, "ai service unreachable", err)
}

func kindForStatus(status int) errs.Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return errs.RateLimited
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return errs.InvalidRequest
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return errs.Unavailable
	case status >= http.StatusInternalServerError:
		return errs.Unavailable
	default:
		return errs.Unknown
	}
}
