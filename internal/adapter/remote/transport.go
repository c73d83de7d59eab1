// Package remote holds the HTTP transport shared by the catalog and metadata clients.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spiecc/animetrack/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodySize    = 4 << 20
)

// StatusError is returned for non-2xx responses other than 401
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets callers match any status failure with errors.Is(err, domain.ErrServer)
func (e *StatusError) Unwrap() error { return domain.ErrServer }

// Transport performs JSON requests against one base URL.
// It never retries; a failure surfaces once to the caller.
type Transport struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Transport
type Option func(*Transport)

// WithTimeout sets the HTTP client timeout
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.httpClient.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request
func WithUserAgent(ua string) Option {
	return func(t *Transport) { t.userAgent = ua }
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) { t.httpClient = c }
}

// NewTransport creates a transport rooted at baseURL
func NewTransport(baseURL string, logger *slog.Logger, opts ...Option) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Transport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  "animetrack/1.0",
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Do sends body (JSON-encoded, may be nil) to path and decodes the response into out
// (may be nil). A non-empty token is sent as "Authorization: token <value>".
func (t *Transport) Do(ctx context.Context, method, path string, query url.Values, body any, token string, out any) error {
	reqURL := t.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		reqURL = reqURL + "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", t.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "token "+token)
	}

	t.logger.Debug("remote request", "method", method, "url", reqURL)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		t.logger.Error("remote request failed", "url", reqURL, "error", err)
		return fmt.Errorf("%w: %v", domain.ErrServerOffline, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", domain.ErrServer, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return domain.ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.logger.Error("remote request error", "url", reqURL, "status", resp.StatusCode, "body", truncate(data, 200))
		return &StatusError{StatusCode: resp.StatusCode, Body: truncate(data, 200)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	// Plain-text payloads (the login token) decode straight into a string
	if s, ok := out.(*string); ok && !json.Valid(data) {
		*s = strings.TrimSpace(string(data))
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		t.logger.Error("JSON parse error", "url", reqURL, "error", err, "bodyLen", len(data))
		return fmt.Errorf("%w: failed to parse response: %v", domain.ErrServer, err)
	}
	return nil
}

// IsUnauthorized reports whether err came from a 401 response
func IsUnauthorized(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized)
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
