package poller

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

const (
	// maxReadingSize caps upstream bodies; a reading is a number or a small
	// JSON document.
	maxReadingSize = 64 << 10

	defaultReadTimeout = 10 * time.Second

	acceptReading = "application/json, text/plain;q=0.9"
	userAgent     = "heartboard-poller"
)

// Client reads heart rates from sources over a shared connection pool.
//
// Each read carries its source's own timeout via context, so one slow
// sensor does not stretch the deadline of another.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a [Client]. Idle connections are kept per host since
// sources are polled repeatedly.
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
		logger: logger,
	}
}

// Read fetches src once and runs its extractor over the reply.
//
// Read always returns a [Sample] describing the attempt; transport and
// extraction failures are reported in Sample.Error.
func (c *Client) Read(ctx context.Context, src SourceInfo) Sample {
	start := time.Now()
	body, status, err := c.fetch(ctx, src)

	sample := Sample{
		SourceName: src.Name,
		User:       src.User,
		URL:        src.URL,
		Latency:    time.Since(start),
		FetchedAt:  time.Now(),
		StatusCode: status,
		Error:      err,
	}
	if err == nil {
		sample.HeartRate, sample.Error = c.extract(src, body, status)
	}
	return sample
}

// fetch performs the request for src and returns the capped body.
func (c *Client) fetch(ctx context.Context, src SourceInfo) ([]byte, int, error) {
	timeout := src.Timeout
	if timeout <= 0 {
		timeout = defaultReadTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := src.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, src.URL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", acceptReading)
	req.Header.Set("User-Agent", userAgent)
	// source headers may override the defaults above
	for key, value := range src.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReadingSize+1))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxReadingSize {
		return nil, resp.StatusCode, fmt.Errorf("response body exceeds %d bytes", maxReadingSize)
	}
	return body, resp.StatusCode, nil
}

// extract runs the source's extractor with panic recovery. A panic is
// logged with its stack under a correlation ID which is also put in the error.
func (c *Client) extract(src SourceInfo, body []byte, statusCode int) (rate float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			c.logger.Error("extractor panic",
				"correlation_id", correlationID,
				"source", src.Name,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			rate = 0
			err = fmt.Errorf("extractor panic (correlation_id: %s)", correlationID)
		}
	}()

	if src.Extractor == nil {
		return 0, fmt.Errorf("source %q has no extractor", src.Name)
	}
	return src.Extractor(body, statusCode)
}

// Close drops idle pooled connections. Safe to call multiple times.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}
