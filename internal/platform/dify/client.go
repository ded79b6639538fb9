package dify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"time"

	"github.com/harunari/batchscan-api/internal/analysis"
	"github.com/harunari/batchscan-api/internal/config"
)

// errTransientStatus marks a gateway-timeout-class workflow response that is
// worth retrying inside the adapter.
var errTransientStatus = errors.New("transient gateway status")

// networkRetryDelay is the fixed pause before retrying a network-level
// timeout. Gateway-timeout statuses use a growing delay instead; see Analyze.
const networkRetryDelay = 2 * time.Second

// Client calls a Dify-style workflow API. It implements analysis.Analyzer.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	user       string
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// Ensure Client implements the analysis boundary interface
var _ analysis.Analyzer = (*Client)(nil)

// NewClient creates a workflow API client from the backend configuration.
// The transport splits timeouts into a short connect phase and a much longer
// read phase: the remote workflow may legitimately run for minutes, but a
// dead host should be detected quickly.
func NewClient(cfg config.BackendConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL cannot be empty", analysis.ErrInvalidConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key cannot be empty", analysis.ErrInvalidConfig)
	}

	connectTimeout := time.Duration(cfg.ConnectTimeoutSeconds) * time.Second
	readTimeout := time.Duration(cfg.ReadTimeoutSeconds) * time.Second

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: readTimeout,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   readTimeout,
		},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		user:       cfg.User,
		maxRetries: cfg.MaxRetries,
		retryDelay: time.Duration(cfg.RetryDelaySeconds) * time.Second,
		logger:     logger.With(slog.String("component", "dify_client")),
	}, nil
}

// Analyze implements analysis.Analyzer.
//
// The upload phase is never retried here: a rejected upload is terminal for
// the call and surfaces as ErrUploadFailed. The workflow phase retries
// gateway-timeout statuses with a delay that grows per attempt, and
// network-level timeouts with a fixed short delay, both up to the configured
// bound. Any other non-success status fails immediately as ErrWorkflowFailed.
func (c *Client) Analyze(ctx context.Context, file []byte, filename string) (map[string]any, error) {
	uploadID, err := c.uploadFile(ctx, file, filename)
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "file uploaded",
		slog.String("filename", filename),
		slog.String("upload_id", uploadID))

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		outputs, err := c.runWorkflow(ctx, uploadID)
		if err == nil {
			return outputs, nil
		}
		lastErr = err

		var netErr net.Error
		switch {
		case errors.Is(err, errTransientStatus):
			if attempt == c.maxRetries {
				return nil, fmt.Errorf("%w: gateway timeout after %d attempts",
					analysis.ErrTimeout, attempt+1)
			}
			delay := c.retryDelay * time.Duration(attempt+1)
			c.logger.WarnContext(ctx, "workflow gateway timeout, retrying",
				slog.String("filename", filename),
				slog.Int("attempt", attempt+1),
				slog.Duration("delay", delay))
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}

		case errors.As(err, &netErr) && netErr.Timeout():
			if attempt == c.maxRetries {
				return nil, fmt.Errorf("%w: %v", analysis.ErrTimeout, err)
			}
			c.logger.WarnContext(ctx, "workflow network timeout, retrying",
				slog.String("filename", filename),
				slog.Int("attempt", attempt+1))
			if err := sleepCtx(ctx, networkRetryDelay); err != nil {
				return nil, err
			}

		default:
			return nil, err
		}
	}

	return nil, lastErr
}

// uploadFile sends the raw bytes as a multipart form and returns the opaque
// upload id assigned by the backend.
func (c *Client) uploadFile(ctx context.Context, file []byte, filename string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("%w: %v", analysis.ErrUploadFailed, err)
	}
	if _, err := part.Write(file); err != nil {
		return "", fmt.Errorf("%w: %v", analysis.ErrUploadFailed, err)
	}
	if err := writer.WriteField("user", c.user); err != nil {
		return "", fmt.Errorf("%w: %v", analysis.ErrUploadFailed, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", analysis.ErrUploadFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files/upload", &body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", analysis.ErrUploadFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", analysis.ErrUploadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: unexpected status %d", analysis.ErrUploadFailed, resp.StatusCode)
	}

	var uploadResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return "", fmt.Errorf("%w: decoding upload response: %v", analysis.ErrUploadFailed, err)
	}
	if uploadResp.ID == "" {
		return "", fmt.Errorf("%w: upload response missing file id", analysis.ErrUploadFailed)
	}

	return uploadResp.ID, nil
}

// runWorkflow executes the workflow in blocking mode against a previously
// uploaded file and returns the raw outputs mapping.
func (c *Client) runWorkflow(ctx context.Context, uploadID string) (map[string]any, error) {
	payload := map[string]any{
		"inputs": map[string]any{
			"file": map[string]any{
				"transfer_method": "local_file",
				"type":            "image",
				"upload_file_id":  uploadID,
			},
		},
		"response_mode": "blocking",
		"user":          c.user,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrWorkflowFailed, err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/workflows/run", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrWorkflowFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusGatewayTimeout {
		// Drain so the connection can be reused across retries.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errTransientStatus
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d", analysis.ErrWorkflowFailed, resp.StatusCode)
	}

	var workflowResp struct {
		Data struct {
			Outputs map[string]any `json:"outputs"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&workflowResp); err != nil {
		return nil, fmt.Errorf("%w: decoding workflow response: %v", analysis.ErrInvalidResponse, err)
	}

	return workflowResp.Data.Outputs, nil
}

// sleepCtx waits for the given duration unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
