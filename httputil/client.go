package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/xeptore/tunefetch/unit"
)

var (
	ErrTooManyRequests = errors.New("too many requests")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
)

const DefaultMaxBodySize = 4 * unit.Mebibyte

// Client issues provider GET requests. Each attempt waits on the limiter and is bounded by the
// per-attempt timeout. Throttling, server errors and attempt timeouts are retried.
type Client struct {
	http        *http.Client
	limiter     *rate.Limiter
	timeout     time.Duration
	retries     uint64
	backoffBase time.Duration
	userAgent   string
}

type Option func(*Client)

func WithRetries(n uint64, base time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		c.backoffBase = base
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

func NewClient(limiter *rate.Limiter, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		http:        http.DefaultClient,
		limiter:     limiter,
		timeout:     timeout,
		retries:     2,
		backoffBase: 500 * time.Millisecond,
		userAgent:   "tunefetch",
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the body of a 200 response. Non-200 statuses are mapped to ErrUnauthorized,
// ErrNotFound, ErrTooManyRequests or a generic error.
func (c *Client) Get(ctx context.Context, logger zerolog.Logger, reqURL string, header http.Header) ([]byte, error) {
	var body []byte
	err := retry.Do(
		ctx,
		retry.WithMaxRetries(c.retries, retry.NewFibonacci(c.backoffBase)),
		func(ctx context.Context) error {
			b, err := c.get(ctx, logger, reqURL, header)
			if nil != err {
				switch {
				case errors.Is(err, ErrTooManyRequests), errors.Is(err, errServer):
					logger.Debug().Err(err).Str("url", reqURL).Msg("Retrying request")
					return retry.RetryableError(err)
				case errors.Is(err, context.DeadlineExceeded) && nil == ctx.Err():
					logger.Debug().Str("url", reqURL).Msg("Request attempt timed out, retrying")
					return retry.RetryableError(err)
				default:
					return err
				}
			}
			body = b

			return nil
		},
	)
	if nil != err {
		return nil, err
	}

	return body, nil
}

func (c *Client) GetJSON(
	ctx context.Context,
	logger zerolog.Logger,
	reqURL string,
	header http.Header,
	v any,
) error {
	body, err := c.Get(ctx, logger, reqURL, header)
	if nil != err {
		return err
	}

	if err := json.Unmarshal(body, v); nil != err {
		logger.Error().Err(err).Bytes("response_body", body).Msg("Failed to decode response body")
		return fmt.Errorf("failed to decode response body: %v", err)
	}

	return nil
}

var errServer = errors.New("server error")

func (c *Client) get(
	ctx context.Context,
	logger zerolog.Logger,
	reqURL string,
	header http.Header,
) (b []byte, err error) {
	if nil != c.limiter {
		if err := c.limiter.Wait(ctx); nil != err {
			return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if nil != err {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if nil != err {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); nil != closeErr {
			logger.Error().Err(closeErr).Msg("Failed to close response body")
			err = errors.Join(err, fmt.Errorf("failed to close response body: %v", closeErr))
		}
	}()

	switch code := resp.StatusCode; {
	case code == http.StatusOK:
		return ReadResponseBody(resp, DefaultMaxBodySize)
	case code == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case code == http.StatusNotFound:
		return nil, ErrNotFound
	case code == http.StatusTooManyRequests:
		return nil, ErrTooManyRequests
	case code >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status %d", errServer, code)
	default:
		respBytes, _ := ReadOptionalResponseBody(resp, unit.Kibibyte)
		logger.Error().Int("status_code", code).Bytes("response_body", respBytes).Msg("Unexpected response status")
		return nil, fmt.Errorf("unexpected status code %d", code)
	}
}

// ReadResponseBody reads at most limit bytes of the body. An empty body is an error.
func ReadResponseBody(resp *http.Response, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if nil != err {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if len(b) == 0 {
		return nil, errors.New("unexpected empty response body")
	}

	if int64(len(b)) > limit {
		return nil, fmt.Errorf("response body exceeds %d bytes", limit)
	}

	return b, nil
}

func ReadOptionalResponseBody(resp *http.Response, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if nil != err {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return b, nil
}
