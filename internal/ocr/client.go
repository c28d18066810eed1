// Package ocr wraps the remote vision backends that perform the actual
// text recognition. The tool itself never decodes document content; it
// ships file bytes to a generateContent endpoint and uses the returned
// markdown verbatim.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client is the contract shared by both backends: one file in, extracted
// text or a failure out. A single failed call yields a single error; the
// caller decides whether to continue the batch. No retries, no caching.
type Client interface {
	Extract(ctx context.Context, path string) (Extraction, error)
}

// Usage is the token accounting reported by the API for one call.
type Usage struct {
	Input  int
	Output int
	Total  int
}

// Add returns the element-wise sum of two usages.
func (u Usage) Add(v Usage) Usage {
	return Usage{
		Input:  u.Input + v.Input,
		Output: u.Output + v.Output,
		Total:  u.Total + v.Total,
	}
}

// Extraction is the successful result of one OCR call.
type Extraction struct {
	Text  string
	Usage Usage
}

// UpstreamError marks transient upstream failures (quota, server errors,
// timeouts). It keeps the status class so a caller could distinguish these
// from permanent request errors, though the batch loop treats both as a
// per-file failure.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// generateContent request/response, minimal fields only.

type genPart struct {
	Text       string         `json:"text,omitempty"`
	InlineData *genInlineData `json:"inline_data,omitempty"`
}

type genInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type genContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []genPart `json:"parts"`
}

type genRequest struct {
	Contents []genContent `json:"contents"`
}

type genResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// generate posts one document plus the OCR prompt to url and decodes the
// extracted text. setAuth attaches backend-specific credentials.
func generate(ctx context.Context, hc *http.Client, url string, setAuth func(*http.Request), prompt, mimeType string, data []byte) (Extraction, error) {
	reqBody := genRequest{
		Contents: []genContent{{
			Role: "user",
			Parts: []genPart{
				{InlineData: &genInlineData{
					MIMEType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(data),
				}},
				{Text: prompt},
			},
		}},
	}
	body, err := json.Marshal(&reqBody)
	if err != nil {
		return Extraction{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Extraction{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	setAuth(httpReq)

	resp, err := hc.Do(httpReq)
	if err != nil {
		return Extraction{}, fmt.Errorf("ocr api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return Extraction{}, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode >= 500:
		return Extraction{}, &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(respBody),
		}
	case resp.StatusCode == http.StatusNotFound:
		return Extraction{}, errModelNotFound
	case resp.StatusCode != http.StatusOK:
		return Extraction{}, fmt.Errorf("ocr api status %d: %s", resp.StatusCode, upstreamMessage(respBody))
	}

	var apiResp genResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return Extraction{}, fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return Extraction{}, fmt.Errorf("ocr api error: %s: %s", apiResp.Error.Status, apiResp.Error.Message)
	}
	if len(apiResp.Candidates) == 0 {
		return Extraction{}, fmt.Errorf("empty response: no candidates returned")
	}

	var sb strings.Builder
	for _, p := range apiResp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return Extraction{}, fmt.Errorf("empty response: no text extracted")
	}

	out := Extraction{Text: text}
	if u := apiResp.UsageMetadata; u != nil {
		out.Usage = Usage{
			Input:  u.PromptTokenCount,
			Output: u.CandidatesTokenCount,
			Total:  u.TotalTokenCount,
		}
	}
	return out, nil
}

// errModelNotFound triggers the single fallback-model attempt.
var errModelNotFound = fmt.Errorf("model not found")

// upstreamMessage extracts the API error message from a body when present,
// otherwise returns the trimmed raw body.
func upstreamMessage(body []byte) string {
	var apiResp genResponse
	if err := json.Unmarshal(body, &apiResp); err == nil && apiResp.Error != nil {
		return apiResp.Error.Message
	}
	return strings.TrimSpace(string(body))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
