// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ErrNoFeedbackEndpoint is returned when no feedback URL is configured.
var ErrNoFeedbackEndpoint = errors.New("feedback endpoint not configured")

// FeedbackClient posts message ratings.
type FeedbackClient struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewFeedbackClient creates a client posting to url, allowing perSecond
// posts with a small burst.
func NewFeedbackClient(url string, perSecond float64) *FeedbackClient {
	if perSecond <= 0 {
		perSecond = 2
	}
	return &FeedbackClient{
		url: url,
		httpClient: &http.Client{
			Transport: sharedTransport,
			Timeout:   10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(perSecond), 4),
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *FeedbackClient) WithHTTPClient(hc *http.Client) *FeedbackClient {
	c.httpClient = hc
	return c
}

type feedbackPayload struct {
	MessageID string  `json:"messageId"`
	Feedback  *string `json:"feedback"`
}

// Post sends {"messageId": id, "feedback": value}. An empty value is sent
// as null (rating cleared).
func (c *FeedbackClient) Post(ctx context.Context, messageID, value string) error {
	if c == nil || c.url == "" {
		return ErrNoFeedbackEndpoint
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("feedback throttled: %w", err)
	}

	payload := feedbackPayload{MessageID: messageID}
	if value != "" {
		payload.Feedback = &value
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := readResponse(resp, 4096)
		return &HTTPError{Status: resp.StatusCode, Body: string(data)}
	}
	return nil
}
