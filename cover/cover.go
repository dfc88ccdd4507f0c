package cover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/xeptore/tunefetch/config"
)

var ErrNotImage = errors.New("response is not an image")

type Fetcher struct {
	client          *http.Client
	maxSize         int64
	retries         uint64
	initialInterval time.Duration
}

func New(conf config.Cover) *Fetcher {
	return &Fetcher{
		client:          &http.Client{Timeout: conf.Timeout.Duration}, //nolint:exhaustruct
		maxSize:         conf.MaxSize,
		retries:         conf.Retries,
		initialInterval: 500 * time.Millisecond,
	}
}

// WithInitialInterval sets the first retry delay.
func (f *Fetcher) WithInitialInterval(d time.Duration) *Fetcher {
	f.initialInterval = d
	return f
}

// Fetch downloads the image at url. Network errors, throttling and server errors are retried;
// any other non-200 status fails immediately.
func (f *Fetcher) Fetch(ctx context.Context, logger zerolog.Logger, url string) ([]byte, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(f.initialInterval),
				backoff.WithMaxInterval(10*time.Second),
			),
			f.retries,
		),
		ctx,
	)

	b, err := backoff.RetryNotifyWithData(
		func() ([]byte, error) { return f.fetch(ctx, logger, url) },
		policy,
		func(err error, next time.Duration) {
			logger.Debug().Err(err).Dur("next", next).Str("url", url).Msg("Retrying cover download")
		},
	)
	if nil != err {
		return nil, fmt.Errorf("failed to download cover: %w", err)
	}

	return b, nil
}

func (f *Fetcher) fetch(ctx context.Context, logger zerolog.Logger, url string) (b []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if nil != err {
		return nil, backoff.Permanent(fmt.Errorf("failed to create get cover request: %v", err))
	}
	req.Header.Add("Accept", "image/*")

	resp, err := f.client.Do(req)
	if nil != err {
		if nil != ctx.Err() {
			return nil, backoff.Permanent(ctx.Err())
		}

		return nil, fmt.Errorf("failed to send get cover request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); nil != closeErr {
			logger.Error().Err(closeErr).Msg("Failed to close get cover response body")
			err = errors.Join(err, fmt.Errorf("failed to close get cover response body: %v", closeErr))
		}
	}()

	switch code := resp.StatusCode; {
	case code == http.StatusOK:
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return nil, fmt.Errorf("unexpected status code %d", code)
	default:
		return nil, backoff.Permanent(fmt.Errorf("unexpected status code %d", code))
	}

	b, err = io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if nil != err {
		return nil, fmt.Errorf("failed to read cover response body: %w", err)
	}

	if int64(len(b)) > f.maxSize {
		return nil, backoff.Permanent(fmt.Errorf("cover exceeds %d bytes", f.maxSize))
	}

	if mime := mimetype.Detect(b); !strings.HasPrefix(mime.String(), "image/") {
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrNotImage, mime.String()))
	}

	return b, nil
}

// MIME returns the sniffed MIME type of an image, defaulting to JPEG.
func MIME(b []byte) string {
	if mime := mimetype.Detect(b); strings.HasPrefix(mime.String(), "image/") {
		return mime.String()
	}

	return "image/jpeg"
}
