package cli

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemocr/gemocr/internal/config"
	"github.com/gemocr/gemocr/internal/ocr"
)

// fakeOCR is keyed by base filename: entries in errs fail, everything
// else succeeds with the canned text.
type fakeOCR struct {
	texts map[string]string
	errs  map[string]string
	calls int
	cfg   config.Config
}

func (f *fakeOCR) Extract(_ context.Context, path string) (ocr.Extraction, error) {
	f.calls++
	name := filepath.Base(path)
	if msg, ok := f.errs[name]; ok {
		return ocr.Extraction{}, fmt.Errorf("%s", msg)
	}
	return ocr.Extraction{
		Text:  f.texts[name],
		Usage: ocr.Usage{Input: 10, Output: 20, Total: 30},
	}, nil
}

// stubClient installs fake as the backend for the duration of the test.
func stubClient(t *testing.T, fake *fakeOCR) {
	t.Helper()
	orig := newClient
	newClient = func(cfg config.Config, _ *slog.Logger) ocr.Client {
		fake.cfg = cfg
		return fake
	}
	t.Cleanup(func() { newClient = orig })
}

func clearBackendEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GEMINI_API_KEY", "GOOGLE_API_KEY", "GOOGLE_GENAI_USE_VERTEXAI",
		"GOOGLE_CLOUD_PROJECT", "GOOGLE_CLOUD_LOCATION", "GOOGLE_OAUTH_ACCESS_TOKEN",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errBuf bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunPartialSuccess(t *testing.T) {
	clearBackendEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.png"))
	touch(t, filepath.Join(dir, "b.png"))
	outPath := filepath.Join(dir, "out.md")

	fake := &fakeOCR{
		texts: map[string]string{"a.png": "Hello"},
		errs:  map[string]string{"b.png": "quota exceeded"},
	}
	stubClient(t, fake)

	stdout, err := execute(t, filepath.Join(dir, "*.png"), outPath)
	require.NoError(t, err, "partial success must exit zero")

	doc, rerr := os.ReadFile(outPath)
	require.NoError(t, rerr)
	got := string(doc)
	assert.Contains(t, got, "## a.png")
	assert.Contains(t, got, "Hello")
	assert.Contains(t, got, "## b.png")
	assert.Contains(t, got, "quota exceeded")
	assert.Less(t, bytes.Index(doc, []byte("## a.png")), bytes.Index(doc, []byte("## b.png")))

	assert.Contains(t, stdout, "Processed 1/2 documents successfully")
	assert.Contains(t, stdout, "1 documents failed")
	assert.Equal(t, 2, fake.calls)
	assert.Equal(t, "env-key", fake.cfg.APIKey)
}

func TestRunAllFailedExitsNonZero(t *testing.T) {
	clearBackendEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.png"))
	outPath := filepath.Join(dir, "out.md")

	fake := &fakeOCR{errs: map[string]string{"a.png": "network down"}}
	stubClient(t, fake)

	_, err := execute(t, filepath.Join(dir, "*.png"), outPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 1 documents failed")

	// The artifact is still produced, holding the error note.
	doc, rerr := os.ReadFile(outPath)
	require.NoError(t, rerr)
	assert.Contains(t, string(doc), "network down")
}

func TestRunZeroMatchesIsVacuousSuccess(t *testing.T) {
	clearBackendEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")

	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.md")

	fake := &fakeOCR{}
	stubClient(t, fake)

	_, err := execute(t, filepath.Join(dir, "*.png"), outPath)
	require.NoError(t, err)
	assert.Zero(t, fake.calls, "no OCR calls for an empty batch")

	doc, rerr := os.ReadFile(outPath)
	require.NoError(t, rerr)
	assert.Empty(t, doc, "zero matches produce an empty document")
}

func TestRunMissingCredentialsFailsBeforeOCR(t *testing.T) {
	clearBackendEnv(t)

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.png"))

	fake := &fakeOCR{texts: map[string]string{"a.png": "x"}}
	stubClient(t, fake)

	_, err := execute(t, filepath.Join(dir, "*.png"), filepath.Join(dir, "out.md"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
	assert.Zero(t, fake.calls)
	assert.NoFileExists(t, filepath.Join(dir, "out.md"))
}

func TestRunVertexRequiresProject(t *testing.T) {
	clearBackendEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.png"))

	fake := &fakeOCR{}
	stubClient(t, fake)

	_, err := execute(t, "--use-vertex", filepath.Join(dir, "*.png"), filepath.Join(dir, "out.md"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_CLOUD_PROJECT")
	assert.Zero(t, fake.calls)
}

func TestRunFlagOverridesEnv(t *testing.T) {
	clearBackendEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.png"))

	fake := &fakeOCR{texts: map[string]string{"a.png": "x"}}
	stubClient(t, fake)

	_, err := execute(t, "--api-key", "flag-key", filepath.Join(dir, "*.png"), filepath.Join(dir, "out.md"))
	require.NoError(t, err)
	assert.Equal(t, "flag-key", fake.cfg.APIKey)
}

func TestRunConfigFileLayering(t *testing.T) {
	clearBackendEnv(t)

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.png"))
	cfgPath := filepath.Join(dir, "gemocr.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("api_key: file-key\nmodel: file-model\n"), 0o644))

	fake := &fakeOCR{texts: map[string]string{"a.png": "x"}}
	stubClient(t, fake)

	_, err := execute(t,
		"--config", cfgPath,
		"--model", "flag-model",
		filepath.Join(dir, "*.png"), filepath.Join(dir, "out.md"))
	require.NoError(t, err)

	assert.Equal(t, "file-key", fake.cfg.APIKey, "file fills what flags leave unset")
	assert.Equal(t, "flag-model", fake.cfg.Model, "flags override the file")
}

func TestRunEnvOverridesConfigFile(t *testing.T) {
	clearBackendEnv(t)
	t.Setenv("GOOGLE_API_KEY", "env-key")

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.png"))
	cfgPath := filepath.Join(dir, "gemocr.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("api_key: file-key\n"), 0o644))

	fake := &fakeOCR{texts: map[string]string{"a.png": "x"}}
	stubClient(t, fake)

	_, err := execute(t, "--config", cfgPath,
		filepath.Join(dir, "*.png"), filepath.Join(dir, "out.md"))
	require.NoError(t, err)

	assert.Equal(t, "env-key", fake.cfg.APIKey, "environment wins over the config file")
}

func TestRunHTMLArtifact(t *testing.T) {
	clearBackendEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.png"))
	outPath := filepath.Join(dir, "out.md")
	htmlPath := filepath.Join(dir, "out.html")

	fake := &fakeOCR{texts: map[string]string{"a.png": "| h |\n| --- |\n| x |"}}
	stubClient(t, fake)

	_, err := execute(t, "--html", htmlPath, filepath.Join(dir, "*.png"), outPath)
	require.NoError(t, err)

	html, rerr := os.ReadFile(htmlPath)
	require.NoError(t, rerr)
	assert.Contains(t, string(html), "<table>")
}

func TestRunIsIdempotent(t *testing.T) {
	clearBackendEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.png"))
	touch(t, filepath.Join(dir, "b.png"))
	outPath := filepath.Join(dir, "out.md")

	fake := &fakeOCR{texts: map[string]string{"a.png": "first", "b.png": "second"}}
	stubClient(t, fake)

	pattern := filepath.Join(dir, "*.png")
	_, err := execute(t, pattern, outPath)
	require.NoError(t, err)
	first, rerr := os.ReadFile(outPath)
	require.NoError(t, rerr)

	_, err = execute(t, pattern, outPath)
	require.NoError(t, err)
	second, rerr := os.ReadFile(outPath)
	require.NoError(t, rerr)

	assert.Equal(t, first, second, "two runs over the same inputs produce byte-identical output")
}
