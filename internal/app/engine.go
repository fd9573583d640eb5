package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/studycards/internal/config"
	"github.com/yungbote/studycards/internal/platform/logger"
	"github.com/yungbote/studycards/internal/proxy/engine"
	"github.com/yungbote/studycards/internal/proxy/engine/gemini"
	"github.com/yungbote/studycards/internal/proxy/engine/mock"
)

// NewEngine picks the proxy's model backend. A gemini engine without a key
// still starts and answers every request with the missing-key error.
func NewEngine(ctx context.Context, cfg config.ProxyConfig, log *logger.Logger) (engine.Engine, error) {
	switch cfg.Engine {
	case "mock":
		log.Warn("proxy using the mock engine")
		return mock.New(), nil
	case "gemini", "":
		eng, err := gemini.New(ctx, gemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			Temperature: cfg.Temperature,
			JSONMode:    true,
		})
		if errors.Is(err, engine.ErrMissingKey) {
			log.Warn("GEMINI_API_KEY not set; proxy will reject generation requests")
			return engine.Unconfigured{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("init gemini engine: %w", err)
		}
		return eng, nil
	default:
		return nil, fmt.Errorf("unknown proxy engine %q", cfg.Engine)
	}
}
