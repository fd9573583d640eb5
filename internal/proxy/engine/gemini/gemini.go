package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/yungbote/studycards/internal/proxy/engine"
)

const DefaultModel = "gemini-2.0-flash"

type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	// JSONMode asks the model for an application/json response.
	JSONMode bool
}

type Engine struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func New(ctx context.Context, cfg Config) (*Engine, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, engine.ErrMissingKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	gc := &genai.GenerateContentConfig{}
	if cfg.Temperature > 0 {
		gc.Temperature = genai.Ptr(cfg.Temperature)
	}
	if cfg.JSONMode {
		gc.ResponseMIMEType = "application/json"
	}
	return &Engine{client: client, model: model, config: gc}, nil
}

func (e *Engine) Name() string { return "gemini:" + e.model }

func (e *Engine) Generate(ctx context.Context, req engine.Request) (string, error) {
	resp, err := e.client.Models.GenerateContent(ctx, e.model, genai.Text(req.Prompt), e.config)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty response from model")
	}
	return text, nil
}
