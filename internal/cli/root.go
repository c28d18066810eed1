// Package cli implements the gemocr command line interface.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gemocr/gemocr/internal/assemble"
	"github.com/gemocr/gemocr/internal/batch"
	"github.com/gemocr/gemocr/internal/config"
	"github.com/gemocr/gemocr/internal/matcher"
	"github.com/gemocr/gemocr/internal/ocr"
)

const version = "0.1.0"

type options struct {
	verbose    int
	apiKey     string
	useVertex  bool
	project    string
	location   string
	model      string
	prompt     string
	configFile string
	htmlPath   string
}

// newClient selects the backend. Swapped out in tests for a fake.
var newClient = func(cfg config.Config, log *slog.Logger) ocr.Client {
	if cfg.UseVertex {
		return ocr.NewVertexClient(cfg, log)
	}
	return ocr.NewGeminiClient(cfg, log)
}

// NewRootCmd builds the gemocr command.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "gemocr [flags] GLOB_PATTERN OUTPUT_FILE",
		Short: "Extract text from documents with a remote OCR model into one markdown file",
		Long: `gemocr matches image and PDF files against a glob pattern, sends each one
to a remote vision model for text extraction, and concatenates the results
into a single markdown document.

Files are processed strictly one at a time, in lexicographic path order,
so the output is reproducible. A failed file never aborts the batch: its
section is written as an error note and processing continues.

Examples:

  # Process all PNG files in the current directory
  gemocr "*.png" output.md

  # Process PDFs from a subdirectory, recursively
  gemocr "docs/**/*.pdf" chapter-3.md

  # Use the Vertex AI backend
  gemocr "*.pdf" output.md --use-vertex --project=my-project --location=us-central1

Credentials come from GEMINI_API_KEY or GOOGLE_API_KEY for the direct
backend; the Vertex backend reads GOOGLE_CLOUD_PROJECT,
GOOGLE_CLOUD_LOCATION and GOOGLE_OAUTH_ACCESS_TOKEN.`,
		Args:          cobra.ExactArgs(2),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args[0], args[1])
		},
	}

	f := cmd.Flags()
	f.CountVarP(&opts.verbose, "verbose", "v", "increase verbosity (-v info, -vv debug, -vvv trace)")
	f.StringVar(&opts.apiKey, "api-key", "", "API key (overrides GEMINI_API_KEY / GOOGLE_API_KEY)")
	f.BoolVar(&opts.useVertex, "use-vertex", false, "use the Vertex AI backend instead of the direct API")
	f.StringVar(&opts.project, "project", "", "cloud project id (Vertex backend)")
	f.StringVar(&opts.location, "location", "", "cloud region (Vertex backend)")
	f.StringVar(&opts.model, "model", "", "override the OCR model")
	f.StringVar(&opts.prompt, "prompt", "", "override the OCR instruction prompt")
	f.StringVar(&opts.configFile, "config", "", "YAML config file with default settings")
	f.StringVar(&opts.htmlPath, "html", "", "also render the output document to this HTML file")

	return cmd
}

// Execute runs the root command and exits non-zero on any error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, opts *options, pattern, output string) error {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	applyFlags(&cfg, opts, cmd.Flags())

	log := newLogger(cmd.ErrOrStderr(), cfg.Verbosity)

	// Credentials are checked before any file is touched: a bad backend
	// selection is one fatal error, never a per-file failure.
	if err := cfg.Validate(); err != nil {
		return err
	}

	files, err := matcher.Discover(pattern)
	if err != nil {
		return err
	}
	log.Info("discovered documents", "count", len(files), "pattern", pattern)
	if len(files) == 0 {
		log.Warn("no files match pattern; writing empty document", "pattern", pattern)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Found %d documents to process\n", len(files))

	client := newClient(cfg, log)
	summary := batch.NewProcessor(client, log).Run(cmd.Context(), files)

	doc := assemble.Build(summary)
	if err := assemble.WriteFile(output, doc); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	if opts.htmlPath != "" {
		html, err := assemble.RenderHTML(doc)
		if err != nil {
			return err
		}
		if err := assemble.WriteFile(opts.htmlPath, html); err != nil {
			return fmt.Errorf("write html file: %w", err)
		}
	}

	report(cmd.OutOrStdout(), summary, output)

	if summary.AllFailed() {
		return fmt.Errorf("all %d documents failed", summary.Total())
	}
	if summary.Failed > 0 {
		log.Warn("completed with failures", "failed", summary.Failed, "total", summary.Total())
	}
	return nil
}

// applyFlags layers CLI flags over file and environment values. Flags win
// whenever they were set explicitly.
func applyFlags(cfg *config.Config, opts *options, flags *pflag.FlagSet) {
	cfg.Verbosity = opts.verbose
	if opts.apiKey != "" {
		cfg.APIKey = opts.apiKey
	}
	if flags.Changed("use-vertex") {
		cfg.UseVertex = opts.useVertex
	}
	if opts.project != "" {
		cfg.Project = opts.project
	}
	if opts.location != "" {
		cfg.Location = opts.location
	}
	if opts.model != "" {
		cfg.Model = opts.model
	}
	if opts.prompt != "" {
		cfg.Prompt = opts.prompt
	}
}

// report prints the end-of-run summary with token usage and estimated cost.
func report(w io.Writer, s batch.Summary, output string) {
	fmt.Fprintf(w, "\nProcessed %d/%d documents successfully\n", s.Succeeded, s.Total())
	if s.Failed > 0 {
		fmt.Fprintf(w, "%d documents failed (see error notes in the output)\n", s.Failed)
	}
	fmt.Fprintf(w, "\nToken usage: %d input, %d output, %d total\n", s.Usage.Input, s.Usage.Output, s.Usage.Total)
	fmt.Fprintf(w, "Estimated cost: $%.4f USD\n", ocr.EstimateCost(s.Usage))
	fmt.Fprintf(w, "Output written to: %s\n", output)
}
