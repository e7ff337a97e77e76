// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/vachat/internal/logging"
	"github.com/jeranaias/vachat/internal/util"
)

// Configuration constants for the orchestrator client.
const (
	// DefaultTimeout bounds a single exchange.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the default response body cap.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize int64 = 10 * 1024 * 1024

	// MessagePath is appended to the plugin host.
	MessagePath = "/message"
)

var (
	// ErrNoHost is returned when the client has no host configured.
	ErrNoHost = errors.New("orchestrator host not configured")

	// ErrInvalidResponse is returned when the body is not a JSON object.
	ErrInvalidResponse = errors.New("invalid orchestrator response")

	// ErrResponseTooLarge is returned when the body exceeds the cap.
	ErrResponseTooLarge = errors.New("orchestrator response too large")
)

// PERFORMANCE: Shared transport keeps connections to the orchestrator warm.
var sharedTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        20,
	MaxIdleConnsPerHost: 4,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
	TLSClientConfig: &tls.Config{
		MinVersion: tls.VersionTLS12,
	},
}

// HTTPError is a non-success status from the orchestrator.
type HTTPError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	body := util.TruncateRunes(strings.TrimSpace(e.Body), 200)
	if body == "" {
		return fmt.Sprintf("orchestrator error (HTTP %d)", e.Status)
	}
	return fmt.Sprintf("orchestrator error (HTTP %d): %s", e.Status, body)
}

// Client talks to one orchestrator host.
type Client struct {
	host        string
	httpClient  *http.Client
	maxResponse int64
	log         logrus.FieldLogger
}

// NewClient creates a client for host. The host should already be
// normalized with NormalizeHost.
func NewClient(host string) *Client {
	return &Client{
		host: strings.TrimRight(host, "/"),
		httpClient: &http.Client{
			Transport: sharedTransport,
			Timeout:   DefaultTimeout,
		},
		maxResponse: MaxResponseSize,
		log:         logging.Discard(),
	}
}

// WithTimeout sets the per-exchange timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithHTTPClient replaces the underlying HTTP client (tests, proxies).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithMaxResponseSize sets the response body cap in bytes.
func (c *Client) WithMaxResponseSize(n int64) *Client {
	if n > 0 {
		c.maxResponse = n
	}
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(log logrus.FieldLogger) *Client {
	c.log = logging.OrDiscard(log)
	return c
}

// Host returns the orchestrator host.
func (c *Client) Host() string {
	return c.host
}

// Message performs one /message exchange. Responses that carry an expiry
// signal are returned even on a 4xx status, so the caller can move the
// session to expired instead of treating the turn as a transport failure.
func (c *Client) Message(ctx context.Context, req *Request) (*Response, error) {
	if c.host == "" {
		return nil, ErrNoHost
	}

	body, contentType, err := req.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+MessagePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := readResponse(resp, c.maxResponse)
	if err != nil {
		return nil, err
	}

	// SECURITY: Never log the token or the user's text.
	c.log.WithFields(logrus.Fields{
		"status":     resp.StatusCode,
		"duration":   time.Since(start).Round(time.Millisecond).String(),
		"message_id": req.MessageID,
		"files":      len(req.Files),
		"images":     len(req.Images),
	}).Debug("orchestrator exchange")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if parsed, perr := ParseResponse(data); perr == nil && parsed.Expired() {
			return parsed, nil
		}
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(data)}
	}

	parsed, err := ParseResponse(data)
	if err != nil {
		return nil, err
	}
	return parsed, nil
}

// readResponse reads the body with a size cap.
func readResponse(resp *http.Response, max int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, max+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > max {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrResponseTooLarge, max)
	}
	return body, nil
}

// NormalizeHost upgrades a plugin host to https. Hosts without a scheme get
// one; "http://" is rewritten. Trailing slashes are dropped.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	switch {
	case strings.HasPrefix(host, "https"):
	case strings.HasPrefix(host, "http://"):
		host = "https://" + strings.TrimPrefix(host, "http://")
	default:
		host = "https://" + strings.TrimPrefix(host, "//")
	}
	return strings.TrimRight(host, "/")
}
