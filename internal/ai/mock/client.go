// Package mock provides a deterministic ModelClient for tests and local
// development without API keys.
package mock

import (
	"context"
	"fmt"

	"github.com/videoarena/videoarena/pkg/models"
)

// Client implements models.ModelClient with canned responses.
type Client struct{}

func NewClient() *Client { return &Client{} }

func (c *Client) Name() string { return "mock" }

func (c *Client) Generate(_ context.Context, modelID string, video []byte, mimeType, prompt string) (string, error) {
	return fmt.Sprintf("mock response from %s (%d bytes, %s): %s", modelID, len(video), mimeType, prompt), nil
}

func (c *Client) GenerateText(_ context.Context, modelID, _ string) (string, error) {
	return fmt.Sprintf(`{"evaluations": [], "overall_summary": "mock evaluation from %s"}`, modelID), nil
}

var _ models.ModelClient = (*Client)(nil)
