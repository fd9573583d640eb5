package engine

import (
	"context"
	"errors"

	"github.com/yungbote/studycards/internal/domain/content"
)

var ErrMissingKey = errors.New("missing Gemini API key")

// Request is one generation call: the built prompt plus the structured request it came from.
type Request struct {
	Action  content.Action
	Payload content.Payload
	Prompt  string
}

type Engine interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// Unconfigured fails every call with ErrMissingKey.
type Unconfigured struct{}

func (Unconfigured) Generate(context.Context, Request) (string, error) { return "", ErrMissingKey }

func (Unconfigured) Name() string { return "unconfigured" }
