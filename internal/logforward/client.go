package logforward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

// ClientConfig configures the remote log service client.
type ClientConfig struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
	Logger   *zap.Logger
	// HTTPClient overrides the default client built from Timeout.
	HTTPClient *http.Client
}

// Client forwards validated entries to the remote log service.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// RemoteError is returned when the remote service answers with a non-2xx status.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("log service responded %d", e.Status)
	}
	return fmt.Sprintf("log service responded %d: %s", e.Status, e.Body)
}

// NewClient builds a client and warns when the configured token is missing or expired.
func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	switch exp, ok := TokenExpiry(cfg.Token); {
	case cfg.Token == "":
		logger.Warn("log forward token is not set")
	case ok && time.Now().After(exp):
		logger.Warn("log forward token has expired", zap.Time("expired_at", exp))
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		token:      cfg.Token,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Send validates the entry and posts it to the remote service.
// It returns the remote response body.
func (c *Client) Send(ctx context.Context, entry Entry) (json.RawMessage, error) {
	if err := Validate(&entry); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode log entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build log request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send log entry: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read log response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	c.logger.Debug("log entry forwarded",
		zap.String("stack", entry.Stack),
		zap.String("level", entry.Level),
		zap.String("package", entry.Package),
	)

	if !json.Valid(body) {
		return json.RawMessage(`{}`), nil
	}
	return json.RawMessage(body), nil
}
