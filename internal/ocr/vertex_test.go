package ocr

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemocr/gemocr/internal/config"
)

func vertexConfig() config.Config {
	return config.Config{
		UseVertex:     true,
		Project:       "my-project",
		Location:      "us-central1",
		AccessToken:   "oauth-token",
		Model:         "test-model",
		FallbackModel: "stable-model",
		Prompt:        "Extract all text.",
		Timeout:       5 * time.Second,
	}
}

func TestVertexEndpoint(t *testing.T) {
	c := NewVertexClient(vertexConfig(), testLogger())
	assert.Equal(t,
		"https://us-central1-aiplatform.googleapis.com/v1/projects/my-project/locations/us-central1/publishers/google/models/test-model:generateContent",
		c.endpoint("test-model"))
}

func TestVertexExtractSuccess(t *testing.T) {
	imgPath := filepath.Join(t.TempDir(), "scan.png")
	writePNG(t, imgPath)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t,
			"/v1/projects/my-project/locations/us-central1/publishers/google/models/test-model:generateContent",
			r.URL.Path)
		assert.Equal(t, "Bearer oauth-token", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("x-goog-api-key"))
		io.WriteString(w, successBody("vertex text"))
	}))
	defer srv.Close()

	c := NewVertexClient(vertexConfig(), testLogger())
	c.baseURL = srv.URL

	ext, err := c.Extract(context.Background(), imgPath)
	require.NoError(t, err)
	assert.Equal(t, "vertex text", ext.Text)
	assert.Equal(t, Usage{Input: 10, Output: 20, Total: 30}, ext.Usage)
}

func TestVertexExtractUpstreamError(t *testing.T) {
	imgPath := filepath.Join(t.TempDir(), "scan.png")
	writePNG(t, imgPath)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "boom")
	}))
	defer srv.Close()

	c := NewVertexClient(vertexConfig(), testLogger())
	c.baseURL = srv.URL

	_, err := c.Extract(context.Background(), imgPath)
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusInternalServerError, ue.StatusCode)
	assert.Contains(t, ue.Message, "boom")
}
