// Package batch drives the OCR workflow over an ordered set of files.
package batch

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/gemocr/gemocr/internal/ocr"
)

// Status is the per-file processing state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusDispatched Status = "dispatched"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// Result records the outcome for one input file. Exactly one of Text/Err
// is meaningful: a non-empty Err marks a failure. Token usage is tracked
// only in aggregate on the Summary.
type Result struct {
	Path string
	Text string
	Err  string
}

// Failed reports whether this slot holds a failure.
func (r Result) Failed() bool {
	return r.Err != ""
}

// Summary aggregates one run. Results preserves input order exactly: a
// failure replaces its slot, it never removes the entry, so
// len(Results) always equals the number of input files.
type Summary struct {
	Results   []Result
	Succeeded int
	Failed    int
	Usage     ocr.Usage
}

// Total is the number of files the batch attempted.
func (s Summary) Total() int {
	return len(s.Results)
}

// AllFailed reports whether every file in a non-empty batch failed.
func (s Summary) AllFailed() bool {
	return s.Failed > 0 && s.Succeeded == 0
}

// Processor runs files through an OCR client one at a time. Exactly one
// API call is in flight at any moment; the next file is not dispatched
// until the previous call returns.
type Processor struct {
	client ocr.Client
	log    *slog.Logger
}

func NewProcessor(client ocr.Client, log *slog.Logger) *Processor {
	return &Processor{client: client, log: log}
}

// Run processes each path in order and collects a result per file. A
// failure never short-circuits the batch; remaining files are still
// processed. Context cancellation fails the remaining slots without
// dispatching them.
func (p *Processor) Run(ctx context.Context, paths []string) Summary {
	s := Summary{Results: make([]Result, 0, len(paths))}

	for i, path := range paths {
		name := filepath.Base(path)
		log := p.log.With("file", name, "index", i+1, "total", len(paths))
		log.Debug("state change", "status", StatusPending)

		if err := ctx.Err(); err != nil {
			s.Results = append(s.Results, Result{Path: path, Err: err.Error()})
			s.Failed++
			log.Error("skipped", "status", StatusFailed, "error", err)
			continue
		}

		log.Debug("state change", "status", StatusDispatched)
		ext, err := p.client.Extract(ctx, path)
		if err != nil {
			s.Results = append(s.Results, Result{Path: path, Err: err.Error()})
			s.Failed++
			log.Error("ocr failed", "status", StatusFailed, "error", err)
			continue
		}

		s.Results = append(s.Results, Result{Path: path, Text: ext.Text})
		s.Succeeded++
		s.Usage = s.Usage.Add(ext.Usage)
		log.Info("ocr complete", "status", StatusSucceeded, "tokens", ext.Usage.Total)
	}

	return s
}
