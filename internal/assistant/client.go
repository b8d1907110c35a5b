// Package assistant is the HTTP client for the remote research-assistant service.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"researchdesk/internal/logging"
)

// Config configures a Client. Zero timeouts mean no deadline.
type Config struct {
	BaseURL       string
	AskTimeout    time.Duration
	IngestTimeout time.Duration
	HealthTimeout time.Duration
	HTTPClient    *http.Client
}

// Client implements Ask, Ingest and Health against the service.
type Client struct {
	baseURL       string
	askTimeout    time.Duration
	ingestTimeout time.Duration
	healthTimeout time.Duration
	httpClient    *http.Client
}

// NewClient creates a client. The http.Client itself carries no timeout;
// deadlines come from the per-call context.
func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		askTimeout:    cfg.AskTimeout,
		ingestTimeout: cfg.IngestTimeout,
		healthTimeout: cfg.HealthTimeout,
		httpClient:    hc,
	}
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Ask sends text for a chat completion.
func (c *Client) Ask(ctx context.Context, text, sessionID string) (AskReply, error) {
	ctx, cancel := withOptionalTimeout(ctx, c.askTimeout)
	defer cancel()

	body, err := json.Marshal(AskRequest{Text: text, SessionID: sessionID})
	if err != nil {
		return AskReply{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return AskReply{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log := logging.Get(logging.CategoryAsk).With("session", sessionID)
	start := time.Now()
	var payload askPayload
	if err := c.do(req, &payload); err != nil {
		log.Warn("ask failed after %s: %v", time.Since(start), err)
		return AskReply{}, err
	}
	if payload.Response == nil {
		return AskReply{}, fmt.Errorf("missing response field: %w", ErrMalformedPayload)
	}

	log.Debug("ask completed in %s (%d chars)", time.Since(start), len(*payload.Response))
	return AskReply{Response: *payload.Response}, nil
}

// Ingest uploads doc as multipart form data.
func (c *Client) Ingest(ctx context.Context, doc Document, sessionID string) (IngestReply, error) {
	ctx, cancel := withOptionalTimeout(ctx, c.ingestTimeout)
	defer cancel()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", doc.Name)
	if err != nil {
		return IngestReply{}, fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(doc.Data); err != nil {
		return IngestReply{}, fmt.Errorf("failed to write file part: %w", err)
	}
	if err := mw.WriteField("session_id", sessionID); err != nil {
		return IngestReply{}, fmt.Errorf("failed to write session field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return IngestReply{}, fmt.Errorf("failed to close multipart body: %w", err)
	}

	// The service reads session_id from the query string; the form field is
	// kept for servers that read it from the body.
	endpoint := c.baseURL + "/upload-pdf?" + url.Values{"session_id": {sessionID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return IngestReply{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	log := logging.Get(logging.CategoryIngest).With("session", sessionID)
	start := time.Now()
	var payload statusPayload
	if err := c.do(req, &payload); err != nil {
		log.Warn("ingest of %s failed after %s: %v", doc.Name, time.Since(start), err)
		return IngestReply{}, err
	}
	if payload.Status == nil {
		return IngestReply{}, fmt.Errorf("missing status field: %w", ErrMalformedPayload)
	}

	log.Info("ingested %s (%d bytes) in %s", doc.Name, len(doc.Data), time.Since(start))
	return IngestReply{Status: *payload.Status}, nil
}

// Health probes GET /health and returns the reported status.
func (c *Client) Health(ctx context.Context) (string, error) {
	timeout := c.healthTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	var payload statusPayload
	if err := c.do(req, &payload); err != nil {
		return "", err
	}
	if payload.Status == nil {
		return "", fmt.Errorf("missing status field: %w", ErrMalformedPayload)
	}
	return *payload.Status, nil
}

// do executes req and decodes a 2xx JSON body into out.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d: %s", ErrStatus, resp.StatusCode, truncate(string(body), 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %v: %w", err, ErrMalformedPayload)
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
