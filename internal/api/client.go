// Package api is the HTTP client for the remote clause analysis service.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/clauseguard/internal/model"
	"github.com/ppiankov/clauseguard/internal/util"
)

// retrySleepFunc waits between attempts (injectable for tests)
var retrySleepFunc = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

const retryBaseDelay = 500 * time.Millisecond

// Client calls the four clause analysis operations
type Client struct {
	httpClient *http.Client
	cfg        model.APIConfig
	policy     RiskPolicy
	log        *slog.Logger
}

// Analysis is a decoded standard-mode response
type Analysis struct {
	Clauses   []model.Clause
	RequestID string
}

// Narration is a raw narrated-mode response
type Narration struct {
	Data        []byte
	ContentType string
	Filename    string
	RequestID   string
}

// NewClient creates a Client. The per-request deadline comes from the caller's context.
func NewClient(cfg model.APIConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	transport := &http.Transport{
		Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
	}
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in flag
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		cfg:    cfg,
		policy: RiskPolicyFromConfig(cfg),
		log:    log,
	}
}

// BaseURL returns the configured service address
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// AnalyzeText submits pasted text for clause analysis
func (c *Client) AnalyzeText(ctx context.Context, text string) (*Analysis, error) {
	body, err := textBody(text)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, c.cfg.AnalyzeTextPath, "application/json", body, "application/json")
	if err != nil {
		return nil, err
	}
	return c.decodeAnalysis(resp)
}

// AnalyzeFile uploads a document for clause analysis
func (c *Client) AnalyzeFile(ctx context.Context, file *model.FileRef) (*Analysis, error) {
	contentType, body, err := c.fileBody(file)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, c.cfg.AnalyzeFilePath, contentType, body, "application/json")
	if err != nil {
		return nil, err
	}
	return c.decodeAnalysis(resp)
}

// NarrateText submits pasted text for an audio explanation
func (c *Client) NarrateText(ctx context.Context, text string) (*Narration, error) {
	body, err := textBody(text)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, c.cfg.NarrateTextPath, "application/json", body, "audio/*")
	if err != nil {
		return nil, err
	}
	return decodeNarration(resp)
}

// NarrateFile uploads a document for an audio explanation
func (c *Client) NarrateFile(ctx context.Context, file *model.FileRef) (*Narration, error) {
	contentType, body, err := c.fileBody(file)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, c.cfg.NarrateFilePath, contentType, body, "audio/*")
	if err != nil {
		return nil, err
	}
	return decodeNarration(resp)
}

// rawResponse is a fully read 2xx response
type rawResponse struct {
	Body        []byte
	ContentType string
	Disposition string
	RequestID   string
}

// do sends one logical request, retrying transient failures
func (c *Client) do(ctx context.Context, path, contentType string, body []byte, accept string) (*rawResponse, error) {
	requestID := uuid.NewString()
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path

	attempts := 1
	if c.cfg.MaxRetries > 0 {
		attempts += c.cfg.MaxRetries
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.attempt(ctx, endpoint, contentType, body, accept, requestID)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == attempts {
			break
		}

		delay := retryBaseDelay * time.Duration(1<<(attempt-1))
		c.log.Debug("retrying request", "endpoint", endpoint, "attempt", attempt, "delay", delay, "error", err)
		if err := retrySleepFunc(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, endpoint, contentType string, body []byte, accept, requestID string) (*rawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", accept)
	req.Header.Set("X-Request-ID", requestID)
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug("api response",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"request_id", requestID,
		"elapsed", time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	limit := c.cfg.MaxResponseBytes
	if limit <= 0 {
		limit = model.DefaultConfig().API.MaxResponseBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", ErrMalformedPayload, limit)
	}

	return &rawResponse{
		Body:        data,
		ContentType: resp.Header.Get("Content-Type"),
		Disposition: resp.Header.Get("Content-Disposition"),
		RequestID:   requestID,
	}, nil
}

func (c *Client) decodeAnalysis(resp *rawResponse) (*Analysis, error) {
	clauses, err := DecodeClauses(resp.Body, c.policy, c.log)
	if err != nil {
		return nil, err
	}
	return &Analysis{Clauses: clauses, RequestID: resp.RequestID}, nil
}

func decodeNarration(resp *rawResponse) (*Narration, error) {
	if len(resp.Body) == 0 {
		return nil, fmt.Errorf("%w: empty audio stream", ErrMalformedPayload)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.ContentType)
	if mediaType == "application/json" || strings.HasPrefix(mediaType, "text/") {
		return nil, fmt.Errorf("%w: expected audio, got %s", ErrMalformedPayload, mediaType)
	}
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	filename := ""
	if _, params, err := mime.ParseMediaType(resp.Disposition); err == nil {
		filename = params["filename"]
	}
	if filename == "" {
		filename = "narration" + audioExtension(mediaType)
	}

	return &Narration{
		Data:        resp.Body,
		ContentType: mediaType,
		Filename:    filename,
		RequestID:   resp.RequestID,
	}, nil
}

func audioExtension(mediaType string) string {
	switch mediaType {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".bin"
	}
}

func textBody(text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("encode text: %w", err)
	}
	return body, nil
}

// fileBody builds the multipart payload once so retries can replay it
func (c *Client) fileBody(file *model.FileRef) (string, []byte, error) {
	if file == nil || len(file.Data) == 0 {
		return "", nil, ErrEmptyFile
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     c.cfg.FileField,
		"filename": file.Name,
	}))
	ct := file.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	header.Set("Content-Type", ct)

	part, err := w.CreatePart(header)
	if err != nil {
		return "", nil, fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return "", nil, fmt.Errorf("write multipart part: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", nil, fmt.Errorf("close multipart: %w", err)
	}

	return w.FormDataContentType(), buf.Bytes(), nil
}
