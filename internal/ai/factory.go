package ai

import (
	"fmt"

	"github.com/videoarena/videoarena/internal/ai/gemini"
	"github.com/videoarena/videoarena/internal/ai/mock"
	"github.com/videoarena/videoarena/internal/config"
	"github.com/videoarena/videoarena/pkg/models"
)

// NewClient constructs the appropriate model client based on config.
// Called once at server startup.
func NewClient(cfg config.AI) (models.ModelClient, error) {
	switch cfg.Provider {
	case "gemini":
		return gemini.NewClient(cfg.Gemini, cfg.RequestTimeout), nil
	case "mock":
		return mock.NewClient(), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q: must be one of gemini, mock", cfg.Provider)
	}
}
