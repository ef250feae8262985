// Package models contains shared data models used across the videoarena codebase.
package models

import "context"

// ModelClient is the core interface that all model backends must implement.
// Callers always go through this interface, never a concrete backend.
// Implementations own their request timeouts.
type ModelClient interface {
	// Generate runs one multimodal model against a video and a prompt and
	// returns the raw text response.
	Generate(ctx context.Context, modelID string, video []byte, mimeType, prompt string) (string, error)
	// GenerateText runs a text-only prompt, used for the judge/synthesis step.
	GenerateText(ctx context.Context, modelID, prompt string) (string, error)
	// Name returns the backend identifier (e.g., "gemini").
	Name() string
}
