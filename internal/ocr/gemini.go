package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/gemocr/gemocr/internal/config"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiClient is the direct backend: API-key authentication against the
// Generative Language API.
type GeminiClient struct {
	baseURL       string
	apiKey        string
	model         string
	fallbackModel string
	prompt        string
	httpClient    *http.Client
	log           *slog.Logger
}

var _ Client = (*GeminiClient)(nil)

func NewGeminiClient(cfg config.Config, log *slog.Logger) *GeminiClient {
	return &GeminiClient{
		baseURL:       geminiBaseURL,
		apiKey:        cfg.APIKey,
		model:         cfg.Model,
		fallbackModel: cfg.FallbackModel,
		prompt:        cfg.Prompt,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		log:           log,
	}
}

func (c *GeminiClient) endpoint(model string) string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(model))
}

func (c *GeminiClient) setAuth(req *http.Request) {
	req.Header.Set("x-goog-api-key", c.apiKey)
}

// Extract runs a single OCR call for path. When the configured model is
// unknown to the API and a fallback model is configured, one attempt with
// the fallback is made before giving up.
func (c *GeminiClient) Extract(ctx context.Context, path string) (Extraction, error) {
	mimeType, err := MIMEType(path)
	if err != nil {
		return Extraction{}, err
	}
	if err := preflight(path, mimeType, c.log); err != nil {
		return Extraction{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Extraction{}, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	c.log.Debug("calling gemini api", "file", filepath.Base(path), "model", c.model, "bytes", len(data))
	ext, err := generate(ctx, c.httpClient, c.endpoint(c.model), c.setAuth, c.prompt, mimeType, data)
	if errors.Is(err, errModelNotFound) && c.fallbackModel != "" && c.fallbackModel != c.model {
		c.log.Warn("model unavailable, falling back", "model", c.model, "fallback", c.fallbackModel)
		ext, err = generate(ctx, c.httpClient, c.endpoint(c.fallbackModel), c.setAuth, c.prompt, mimeType, data)
	}
	if err != nil {
		return Extraction{}, err
	}
	return ext, nil
}

// Close releases idle transport connections.
func (c *GeminiClient) Close() {
	c.httpClient.CloseIdleConnections()
}
