// Package fetch retrieves the Markdown-rendered model listing from the
// configured source endpoint.
package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/okian/modelrank/pkg/logger"
	"github.com/okian/modelrank/pkg/metrics"
)

// Default request behavior.
const (
	defaultUserAgent  = "modelrank/1.0 (+https://github.com/okian/modelrank)"
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 2
	defaultRetryDelay = 5 * time.Second
)

// Client fetches the source listing over HTTP with a bounded retry
// budget. Each attempt is independently capped by the request timeout.
type Client struct {
	http       *resty.Client
	url        string
	userAgent  string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	log        logger.Logger
}

// New creates a Client for the given source URL.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		userAgent:  defaultUserAgent,
		timeout:    defaultTimeout,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		log:        logger.Named("fetch"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http = resty.New().
		SetTimeout(c.timeout).
		SetHeader("User-Agent", c.userAgent).
		SetHeader("Accept", "text/markdown, text/plain, */*")
	return c
}

// Fetch retrieves the listing body. A failed attempt is retried up to the
// configured budget with a linearly growing delay; an empty body counts
// as a failure since the parser can never accept rows from it.
func (c *Client) Fetch(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			metrics.RecordFetchRetry()
			c.log.Warn(ctx, "retrying source fetch",
				logger.Int("attempt", attempt),
				logger.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("fetch cancelled: %w", ctx.Err())
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			}
		}

		body, err := c.attempt(ctx)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("%w after %d attempts: %w", ErrFetchFailed, c.maxRetries+1, lastErr)
}

func (c *Client) attempt(ctx context.Context) (string, error) {
	resp, err := c.http.R().SetContext(ctx).Get(c.url)
	if err != nil {
		return "", fmt.Errorf("request %s: %w", c.url, err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: %s from %s", ErrBadStatus, resp.Status(), c.url)
	}

	body := resp.String()
	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyBody, c.url)
	}

	c.log.Debug(ctx, "source fetched",
		logger.Int("bytes", len(body)),
		logger.Int("status", resp.StatusCode()),
	)
	return body, nil
}
