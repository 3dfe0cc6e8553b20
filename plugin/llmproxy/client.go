// Package llmproxy is the client for the retrieval-augmented generation
// proxy that holds the uploaded handbook. The proxy exposes a generate
// endpoint returning an answer plus ranked context snippets, and an upload
// endpoint for the handbook PDF.
package llmproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	advisorerrors "github.com/campushq/advisor/internal/errors"
)

const defaultTimeout = 30 * time.Second

// GenerateRequest is the wire request for the generate endpoint.
type GenerateRequest struct {
	Model        string  `json:"model"`
	System       string  `json:"system"`
	Query        string  `json:"query"`
	Temperature  float32 `json:"temperature"`
	LastK        int     `json:"lastk"`
	SessionID    string  `json:"session_id"`
	RAGThreshold float32 `json:"rag_threshold"`
	RAGUsage     bool    `json:"rag_usage"`
	RAGTopK      int     `json:"rag_k"`
}

// RAGMatch is one ranked context snippet returned by the proxy.
type RAGMatch struct {
	Snippet string  `json:"snippet"`
	Score   float32 `json:"score"`
}

// GenerateResponse is the wire response for the generate endpoint.
type GenerateResponse struct {
	Text       string     `json:"response"`
	RAGContext []RAGMatch `json:"rag_context"`
}

// Client talks to the generation proxy.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a proxy client. The timeout bounds every call.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Generate performs one generation call against the proxy.
func (c *Client) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, advisorerrors.MalformedResponse("marshal generate request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, advisorerrors.TransientUpstream("build generate request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, advisorerrors.TransientUpstream("generate call failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Warn("generation proxy returned non-success status",
			"status", resp.StatusCode,
			"body_len", len(payload),
			"latency_ms", time.Since(start).Milliseconds())
		return nil, advisorerrors.TransientUpstream(
			fmt.Sprintf("generate returned status %d", resp.StatusCode), nil)
	}

	var result GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, advisorerrors.MalformedResponse("decode generate response", err)
	}
	if result.Text == "" {
		return nil, advisorerrors.MalformedResponse("generate response missing answer text", nil)
	}

	slog.Debug("generation proxy call completed",
		"latency_ms", time.Since(start).Milliseconds(),
		"rag_matches", len(result.RAGContext))

	return &result, nil
}

// UploadPDF uploads a handbook PDF so later generate calls can retrieve from it.
// The upload endpoint replaces the last path segment of the generate endpoint.
func (c *Client) UploadPDF(ctx context.Context, filePath, strategy, description, sessionID string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return advisorerrors.InvalidArgument(fmt.Sprintf("handbook file not readable: %v", err))
	}
	defer f.Close()

	params, err := json.Marshal(map[string]string{
		"description": description,
		"session_id":  sessionID,
		"strategy":    strategy,
	})
	if err != nil {
		return advisorerrors.MalformedResponse("marshal upload params", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	paramsPart, err := writer.CreateFormField("params")
	if err != nil {
		return advisorerrors.TransientUpstream("build upload form", err)
	}
	if _, err := paramsPart.Write(params); err != nil {
		return advisorerrors.TransientUpstream("write upload params", err)
	}

	filePart, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return advisorerrors.TransientUpstream("build upload form", err)
	}
	if _, err := io.Copy(filePart, f); err != nil {
		return advisorerrors.TransientUpstream("read handbook file", err)
	}
	if err := writer.Close(); err != nil {
		return advisorerrors.TransientUpstream("finalize upload form", err)
	}

	uploadEndpoint, err := c.uploadEndpoint()
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadEndpoint, &body)
	if err != nil {
		return advisorerrors.TransientUpstream("build upload request", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return advisorerrors.TransientUpstream("upload call failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return advisorerrors.TransientUpstream(
			fmt.Sprintf("upload returned status %d", resp.StatusCode), nil)
	}

	slog.Info("handbook uploaded to generation proxy",
		"file", filepath.Base(filePath),
		"session_id", sessionID,
		"strategy", strategy)
	return nil
}

func (c *Client) uploadEndpoint() (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", advisorerrors.InvalidArgument(fmt.Sprintf("invalid proxy endpoint: %v", err))
	}
	dir, _ := path.Split(u.Path)
	u.Path = dir + "upload"
	return u.String(), nil
}
