package offer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultAnthropicModel = string(anthropic.ModelClaudeSonnet4_20250514)
	DefaultMaxTokens      = 4096
	DefaultTemperature    = 0.2
)

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

type AnthropicOracle struct {
	messages AnthropicMessager
	cfg      OracleConfig
}

func NewAnthropicOracle(cfg OracleConfig) (*AnthropicOracle, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic api key not configured")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &AnthropicOracle{messages: newAnthropicClient(cfg.APIKey), cfg: cfg}, nil
}

func (a *AnthropicOracle) ModelName() string { return a.cfg.Model }

func (a *AnthropicOracle) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.cfg.Model),
		MaxTokens:   int64(a.cfg.MaxTokens),
		System:      []anthropic.TextBlockParam{{Text: SystemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(a.cfg.Temperature),
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &statusError{code: apiErr.StatusCode, err: err}
		}
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

// statusError carries the provider's HTTP status for retry classification.
type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string   { return fmt.Sprintf("provider status %d: %v", e.code, e.err) }
func (e *statusError) Unwrap() error   { return e.err }
func (e *statusError) StatusCode() int { return e.code }
