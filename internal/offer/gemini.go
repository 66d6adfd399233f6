package offer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiGenerator is the slice of the genai Models service the oracle uses.
type GeminiGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiClientCreator func(ctx context.Context, apiKey string) (GeminiGenerator, error)

func defaultGeminiCreator(ctx context.Context, apiKey string) (GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client.Models, nil
}

var newGeminiClient GeminiClientCreator = defaultGeminiCreator

type GeminiOracle struct {
	models GeminiGenerator
	cfg    OracleConfig
}

func NewGeminiOracle(ctx context.Context, cfg OracleConfig) (*GeminiOracle, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key not configured")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	models, err := newGeminiClient(ctx, cfg.APIKey)
	if err != nil {
		return nil, err
	}
	return &GeminiOracle{models: models, cfg: cfg}, nil
}

func (g *GeminiOracle) ModelName() string { return g.cfg.Model }

func (g *GeminiOracle) Generate(ctx context.Context, prompt string) (string, error) {
	temp := float32(g.cfg.Temperature)
	resp, err := g.models.GenerateContent(ctx, g.cfg.Model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
			Temperature:       &temp,
			MaxOutputTokens:   int32(g.cfg.MaxTokens),
			ResponseMIMEType:  "application/json",
		},
	)
	if err != nil {
		return "", geminiStatus(err)
	}
	return resp.Text(), nil
}

func geminiStatus(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &statusError{code: apiErr.Code, err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &statusError{code: apiErrPtr.Code, err: err}
	}
	return err
}
