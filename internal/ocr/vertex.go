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

// VertexClient is the enterprise backend: the same generateContent wire
// format served from a regional Vertex AI endpoint, authenticated with a
// bearer token scoped to a cloud project and location.
type VertexClient struct {
	baseURL       string
	project       string
	location      string
	accessToken   string
	model         string
	fallbackModel string
	prompt        string
	httpClient    *http.Client
	log           *slog.Logger
}

var _ Client = (*VertexClient)(nil)

func NewVertexClient(cfg config.Config, log *slog.Logger) *VertexClient {
	return &VertexClient{
		baseURL:       fmt.Sprintf("https://%s-aiplatform.googleapis.com", cfg.Location),
		project:       cfg.Project,
		location:      cfg.Location,
		accessToken:   cfg.AccessToken,
		model:         cfg.Model,
		fallbackModel: cfg.FallbackModel,
		prompt:        cfg.Prompt,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		log:           log,
	}
}

func (c *VertexClient) endpoint(model string) string {
	return fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		c.baseURL,
		url.PathEscape(c.project),
		url.PathEscape(c.location),
		url.PathEscape(model),
	)
}

func (c *VertexClient) setAuth(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
}

// Extract runs a single OCR call for path, with the same one-shot
// fallback-model behavior as the direct backend.
func (c *VertexClient) Extract(ctx context.Context, path string) (Extraction, error) {
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

	c.log.Debug("calling vertex api",
		"file", filepath.Base(path),
		"project", c.project,
		"location", c.location,
		"model", c.model,
		"bytes", len(data),
	)
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
func (c *VertexClient) Close() {
	c.httpClient.CloseIdleConnections()
}
