package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/xeptore/tunefetch/config"
)

const expiryLeeway = 10 * time.Second

var (
	ErrUnauthorized  = errors.New("client credentials rejected")
	ErrNoCredentials = errors.New("client credentials are not configured")
)

type Token struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

func (t *Token) Valid(now time.Time) bool {
	return nil != t && t.AccessToken != "" && now.Add(expiryLeeway).Before(t.ExpiresAt)
}

// Cache hands out a valid bearer token, refreshing it at most once at a time no matter how many
// callers observe an expired token concurrently.
type Cache struct {
	logger       zerolog.Logger
	clientID     string
	clientSecret string
	accountsURL  string
	timeout      time.Duration
	file         TokenFile
	now          func() time.Time
	group        singleflight.Group
	token        atomic.Pointer[Token]
	rejected     atomic.Pointer[string]
	refreshes    atomic.Int64
}

func New(logger zerolog.Logger, conf config.Spotify) *Cache {
	return &Cache{
		logger:       logger.With().Str("component", "spotify_auth").Logger(),
		clientID:     conf.ClientID,
		clientSecret: conf.ClientSecret,
		accountsURL:  conf.AccountsURL,
		timeout:      conf.Timeout.Duration,
		file:         TokenFile(conf.TokenFile),
		now:          time.Now,
		group:        singleflight.Group{},
		token:        atomic.Pointer[Token]{},
		rejected:     atomic.Pointer[string]{},
		refreshes:    atomic.Int64{},
	}
}

// WithClock replaces the clock used for expiry checks.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

func (c *Cache) Current() *Token {
	return c.token.Load()
}

// Refreshes reports how many tokens were requested from the accounts service.
func (c *Cache) Refreshes() int64 {
	return c.refreshes.Load()
}

// Invalidate forgets accessToken, e.g. after the API rejected it, so the next Token call
// requests a new one instead of reusing it from memory or the token file.
func (c *Cache) Invalidate(accessToken string) {
	if current := c.token.Load(); nil != current && current.AccessToken == accessToken {
		c.rejected.Store(&accessToken)
		c.token.CompareAndSwap(current, nil)
	}
}

func (c *Cache) isRejected(accessToken string) bool {
	r := c.rejected.Load()
	return nil != r && *r == accessToken
}

// Token returns a valid access token. Waiting callers give up when their own ctx is done, while
// the shared refresh keeps running for the others.
func (c *Cache) Token(ctx context.Context) (string, error) {
	if t := c.token.Load(); t.Valid(c.now()) {
		return t.AccessToken, nil
	}

	if c.clientID == "" || c.clientSecret == "" {
		return "", ErrNoCredentials
	}

	ch := c.group.DoChan("token", func() (any, error) {
		refreshCtx := context.WithoutCancel(ctx)
		if c.timeout > 0 {
			var cancel context.CancelFunc
			refreshCtx, cancel = context.WithTimeout(refreshCtx, c.timeout)
			defer cancel()
		}

		return c.load(refreshCtx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if nil != res.Err {
			return "", res.Err
		}

		return res.Val.(*Token).AccessToken, nil //nolint:forcetypeassert
	}
}

func (c *Cache) load(ctx context.Context) (*Token, error) {
	now := c.now()
	if t := c.token.Load(); t.Valid(now) {
		return t, nil
	}

	content, err := c.file.Read()
	switch {
	case nil == err:
		t := content.Token()
		if t.Valid(now) && !c.isRejected(t.AccessToken) {
			c.logger.Debug().Time("expires_at", t.ExpiresAt).Msg("Loaded token from file")
			c.token.Store(t)

			return t, nil
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		c.logger.Warn().Err(err).Msg("Failed to read token file, requesting a new token")
	}

	t, err := c.requestToken(ctx, now)
	if nil != err {
		return nil, fmt.Errorf("request token: %w", err)
	}
	c.refreshes.Add(1)
	c.token.Store(t)

	if err := c.file.Write(contentOf(t)); nil != err {
		c.logger.Error().Err(err).Msg("Failed to write token file")
	}

	return t, nil
}
