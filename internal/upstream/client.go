// Package upstream calls the storefront backend through a circuit
// breaker with bounded exponential retry.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/observability"
)

var (
	ErrCircuitOpen        = errors.New("circuit breaker is open")
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// ServerError is a 5xx answer that survived every retry.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// StatusError is a non-retryable, non-2xx answer.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// StatusCode extracts the upstream HTTP status from err, 0 if none.
func StatusCode(err error) int {
	var se *ServerError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	var st *StatusError
	if errors.As(err, &st) {
		return st.StatusCode
	}
	return 0
}

type Config struct {
	Name            string
	Timeout         time.Duration
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Breaker         *BreakerConfig
}

func DefaultConfig(name string) Config {
	b := DefaultBreakerConfig(name)
	return Config{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Breaker:         &b,
	}
}

type Client struct {
	hc      *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	cfg     Config
}

// New wraps hc; a nil hc gets a client bounded by cfg.Timeout.
func New(hc *http.Client, cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 2 * time.Second
	}
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	bc := DefaultBreakerConfig(cfg.Name)
	if cfg.Breaker != nil {
		bc = *cfg.Breaker
	}
	return &Client{
		hc:      hc,
		breaker: newBreaker[*http.Response](bc), //nolint:bodyclose // type parameter
		cfg:     cfg,
	}
}

func (c *Client) State() gobreaker.State { return c.breaker.State() }

// GetJSON decodes a 2xx body into dst.
func (c *Client) GetJSON(ctx context.Context, url string, dst any) error {
	return c.doJSON(ctx, http.MethodGet, url, nil, dst)
}

// PostJSON encodes body (nil sends no body) and decodes a 2xx answer
// into dst when dst is non-nil.
func (c *Client) PostJSON(ctx context.Context, url string, body, dst any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = b
	}
	return c.doJSON(ctx, http.MethodPost, url, payload, dst)
}

func (c *Client) doJSON(ctx context.Context, method, url string, payload []byte, dst any) error {
	resp, err := c.do(ctx, method, url, payload)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}
	if dst == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, url, err)
	}
	return nil
}

// do retries network failures and 5xx answers. A 5xx that outlives the
// retries is returned as *ServerError; the breaker short-circuits with
// ErrCircuitOpen.
func (c *Client) do(ctx context.Context, method, url string, payload []byte) (*http.Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx)

	if _, err := http.NewRequestWithContext(ctx, method, url, nil); err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	var resp *http.Response
	op := func() error {
		r, err := c.breaker.Execute(func() (*http.Response, error) {
			var body io.Reader
			if payload != nil {
				body = bytes.NewReader(payload)
			}
			req, err := http.NewRequestWithContext(ctx, method, url, body)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Accept", "application/json")
			if payload != nil {
				req.Header.Set("Content-Type", "application/json")
			}

			start := time.Now()
			r, err := c.hc.Do(req)
			status := 0
			if r != nil {
				status = r.StatusCode
			}
			observability.ObserveUpstreamLatency(c.cfg.Name, status, time.Since(start).Seconds())
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= 500 {
				_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, 4096))
				_ = r.Body.Close()
				return nil, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			return err
		}
		resp = r
		return nil
	}

	if err := backoff.Retry(op, policy); err != nil {
		var se *ServerError
		switch {
		case errors.Is(err, ErrCircuitOpen):
			return nil, ErrCircuitOpen
		case errors.As(err, &se):
			return nil, se
		case ctx.Err() != nil:
			return nil, fmt.Errorf("%s %s: %w", method, url, ctx.Err())
		default:
			return nil, fmt.Errorf("%w: %s %s: %w", ErrMaxRetriesExceeded, method, url, err)
		}
	}
	return resp, nil
}
