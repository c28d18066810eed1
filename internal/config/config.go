// Package config holds the process-wide configuration for gemocr.
//
// Configuration is an explicit value threaded through the matcher, batch
// processor and OCR client rather than ambient global state, so the batch
// loop stays testable with injected fakes. Sources in increasing
// precedence: optional YAML file, environment variables, CLI flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
)

// Default model and prompt used when neither a config file nor a flag
// overrides them.
const (
	DefaultModel         = "gemini-3-flash-preview"
	DefaultFallbackModel = "gemini-2.5-flash"

	DefaultPrompt = "Extract all text from this document. " +
		"Maintain the layout using Markdown. " +
		"If there are tables, format them as GitHub-flavored Markdown tables."
)

// Config carries everything the tool needs for one run.
type Config struct {
	// Direct (API key) backend.
	APIKey string

	// Enterprise (Vertex) backend.
	UseVertex   bool
	Project     string
	Location    string
	AccessToken string

	// Model selection and OCR instruction.
	Model         string
	FallbackModel string
	Prompt        string

	// HTTP client timeout for a single OCR call.
	Timeout time.Duration

	// Verbosity from counted -v flags (0 = warnings only).
	Verbosity int
}

// fileConfig is the YAML shape accepted via --config.
type fileConfig struct {
	APIKey        string `yaml:"api_key"`
	UseVertex     *bool  `yaml:"use_vertex"`
	Project       string `yaml:"project"`
	Location      string `yaml:"location"`
	Model         string `yaml:"model"`
	FallbackModel string `yaml:"fallback_model"`
	Prompt        string `yaml:"prompt"`
	TimeoutSecs   int    `yaml:"timeout_seconds"`
}

// Load builds a Config in layers: defaults, then the optional YAML file,
// then environment variables over the file. CLI flags are applied by the
// caller afterwards, so flags win over everything.
func Load(file string) (Config, error) {
	cfg := Config{
		Model:         DefaultModel,
		FallbackModel: DefaultFallbackModel,
		Prompt:        DefaultPrompt,
		Timeout:       120 * time.Second,
	}
	if file != "" {
		if err := cfg.applyFile(file); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyFile merges values from a YAML config file.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if fc.APIKey != "" {
		c.APIKey = fc.APIKey
	}
	if fc.UseVertex != nil {
		c.UseVertex = *fc.UseVertex
	}
	if fc.Project != "" {
		c.Project = fc.Project
	}
	if fc.Location != "" {
		c.Location = fc.Location
	}
	if fc.Model != "" {
		c.Model = fc.Model
	}
	if fc.FallbackModel != "" {
		c.FallbackModel = fc.FallbackModel
	}
	if fc.Prompt != "" {
		c.Prompt = fc.Prompt
	}
	if fc.TimeoutSecs > 0 {
		c.Timeout = time.Duration(fc.TimeoutSecs) * time.Second
	}
	return nil
}

// applyEnv layers environment variables over file values; the environment
// wins wherever both are set.
func (c *Config) applyEnv() {
	// GOOGLE_API_KEY takes priority over GEMINI_API_KEY.
	if v := firstEnv("GOOGLE_API_KEY", "GEMINI_API_KEY"); v != "" {
		c.APIKey = v
	}
	c.UseVertex = envBool("GOOGLE_GENAI_USE_VERTEXAI", c.UseVertex)
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		c.Project = v
	}
	if v := os.Getenv("GOOGLE_CLOUD_LOCATION"); v != "" {
		c.Location = v
	}
	if v := os.Getenv("GOOGLE_OAUTH_ACCESS_TOKEN"); v != "" {
		c.AccessToken = v
	}
}

// Validate checks that the selected backend has the credentials it needs.
// A violation is a fatal configuration error: it is reported once, before
// any file is processed.
func (c Config) Validate() error {
	if c.UseVertex {
		if c.Project == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT environment variable or --project is required for Vertex AI")
		}
		if c.Location == "" {
			return fmt.Errorf("GOOGLE_CLOUD_LOCATION environment variable or --location is required for Vertex AI")
		}
		if c.AccessToken == "" {
			return fmt.Errorf("GOOGLE_OAUTH_ACCESS_TOKEN environment variable is required for Vertex AI")
		}
		return nil
	}
	if c.APIKey == "" {
		return fmt.Errorf("API key is required: set GEMINI_API_KEY or GOOGLE_API_KEY, or pass --api-key")
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
