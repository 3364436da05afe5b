package muna

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/levelsai/levels/log"
	"github.com/morikuni/failure/v2"
)

// DefaultBaseURL is the Muna API endpoint
const DefaultBaseURL = "https://api.muna.ai/v1"

// DefaultMaxDataURLSize is the largest payload sent inline as a data URL; larger ones are uploaded
const DefaultMaxDataURLSize = 4 * 1024 * 1024

// Client talks to the Muna API. It is safe for concurrent use.
type Client struct {
	accessKey      string
	baseURL        string
	httpClient     *http.Client
	limiter        *RateLimiter
	clientID       string
	userAgent      string
	maxDataURLSize int
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the API endpoint
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used for every request
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit sets the request rate limit
func WithRateLimit(cfg RateLimitConfig) Option {
	return func(c *Client) {
		c.limiter = NewRateLimiter(cfg)
	}
}

// WithClientID sets the client identifier sent with remote predictions
func WithClientID(id string) Option {
	return func(c *Client) {
		c.clientID = id
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithMaxDataURLSize sets the inline payload threshold
func WithMaxDataURLSize(n int) Option {
	return func(c *Client) {
		c.maxDataURLSize = n
	}
}

// NewClient creates a Muna API client
func NewClient(accessKey string, opts ...Option) *Client {
	c := &Client{
		accessKey:      accessKey,
		baseURL:        DefaultBaseURL,
		httpClient:     &http.Client{Transport: log.Transport(nil), Timeout: 5 * time.Minute},
		limiter:        NewRateLimiter(DefaultRateLimit),
		clientID:       uuid.NewString(),
		userAgent:      "levels",
		maxDataURLSize: DefaultMaxDataURLSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends an authenticated JSON request and decodes the response into out
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.accessKey == "" {
		return failure.New(ErrMissingAccessKey,
			failure.Message("MUNA_ACCESS_KEY is not set"),
		)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return failure.Wrap(err, failure.WithCode(ErrRequest))
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return failure.Wrap(err, failure.WithCode(ErrInvalidValue))
		}
		body = bytes.NewReader(b)
	}

	u := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return failure.Wrap(err, failure.WithCode(ErrRequest),
			failure.Context{"url": u})
	}
	req.Header.Set("Authorization", "Bearer "+c.accessKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return failure.Wrap(err, failure.WithCode(ErrRequest),
			failure.Message("Failed to reach the Muna API"),
			failure.Context{"method": method, "url": u})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.responseError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return failure.Wrap(err, failure.WithCode(ErrAPI),
			failure.Message("Invalid response from the Muna API"),
			failure.Context{"url": u})
	}
	return nil
}

func (c *Client) responseError(resp *http.Response) error {
	var code ErrorCode
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		code = ErrUnauthorized
	case http.StatusNotFound:
		code = ErrNotFound
	case http.StatusTooManyRequests:
		code = ErrRateLimited
		c.limiter.Backoff(retryAfter(resp.Header.Get("Retry-After")))
	default:
		code = ErrAPI
	}

	msg := fmt.Sprintf("Muna API returned %s", resp.Status)
	var er errorResponse
	if b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)); err == nil {
		if json.Unmarshal(b, &er) == nil && len(er.Errors) > 0 && er.Errors[0].Message != "" {
			msg = er.Errors[0].Message
		}
	}

	return failure.New(code,
		failure.Message(msg),
		failure.Context{
			"method": resp.Request.Method,
			"url":    resp.Request.URL.String(),
			"status": strconv.Itoa(resp.StatusCode),
		},
	)
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		return time.Until(t)
	}
	return 0
}
