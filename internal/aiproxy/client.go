package aiproxy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/backgammon-arena/server/pkg/wire"
	"github.com/valyala/fasthttp"
)

// Client forwards JSON bodies to the Python AI service and hands the
// response body back untouched.
type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ComputeMove asks the AI service for the CPU move.
func (c *Client) ComputeMove(ctx context.Context, body []byte) ([]byte, error) {
	return c.post(ctx, "/api/cpu/move", body)
}

// ComputeDouble asks the AI service for a doubling decision.
func (c *Client) ComputeDouble(ctx context.Context, body []byte) ([]byte, error) {
	return c.post(ctx, "/api/cpu/double", body)
}

// Evaluate asks the AI service to score the current position.
func (c *Client) Evaluate(ctx context.Context, body []byte) ([]byte, error) {
	return c.post(ctx, "/api/evaluate", body)
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = err
			if attempt == attempts {
				break
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				break
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			lastErr = fmt.Errorf("ai service error: status=%d", status)
			if attempt == attempts || !shouldRetryStatus(status) {
				break
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				break
			}
			continue
		}

		out := make([]byte, len(resp.Body()))
		copy(out, resp.Body())
		return out, nil
	}

	return nil, fmt.Errorf("%w: %v", wire.ErrUnavailable, lastErr)
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
