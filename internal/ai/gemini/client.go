// Package gemini implements models.ModelClient against the Gemini
// generateContent REST endpoint, sending video bytes inline.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/videoarena/videoarena/internal/config"
	"github.com/videoarena/videoarena/pkg/models"
)

// Client implements models.ModelClient using the Gemini REST API.
type Client struct {
	cfg  config.Gemini
	http *http.Client
}

// NewClient creates a Gemini client. timeout bounds each request; video
// inference can legitimately take minutes.
func NewClient(cfg config.Gemini, timeout time.Duration) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string { return "gemini" }

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate runs a multimodal model on video bytes plus a prompt.
func (c *Client) Generate(ctx context.Context, modelID string, video []byte, mimeType, prompt string) (string, error) {
	parts := []part{
		{InlineData: &inlineData{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(video),
		}},
		{Text: prompt},
	}
	return c.generate(ctx, modelID, parts)
}

// GenerateText runs a text-only prompt, used for the judge step.
func (c *Client) GenerateText(ctx context.Context, modelID, prompt string) (string, error) {
	return c.generate(ctx, modelID, []part{{Text: prompt}})
}

func (c *Client) generate(ctx context.Context, modelID string, parts []part) (string, error) {
	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: parts}}})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.cfg.BaseURL, modelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("model %s: %w", modelID, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("model %s returned non-JSON response (status %d)", modelID, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("model %s: %s (status %d)", modelID, parsed.Error.Message, resp.StatusCode)
		}
		return "", fmt.Errorf("model %s: unexpected status %d", modelID, resp.StatusCode)
	}

	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("model %s returned no candidates", modelID)
	}
	var text string
	for _, p := range parsed.Candidates[0].Content.Parts {
		text += p.Text
	}
	if text == "" {
		return "", fmt.Errorf("model %s returned an empty response", modelID)
	}
	return text, nil
}

var _ models.ModelClient = (*Client)(nil)
