package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxFeedBytes = 5 * 1024 * 1024

// FeedClient downloads published iCalendar feeds.
type FeedClient struct {
	HTTPClient *http.Client
}

func NewFeedClient(timeout time.Duration) *FeedClient {
	return &FeedClient{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *FeedClient) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxFeedBytes {
		return nil, fmt.Errorf("feed exceeds %d bytes", maxFeedBytes)
	}
	return body, nil
}
