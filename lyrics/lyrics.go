package lyrics

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	wrtaglyrics "go.senan.xyz/wrtag/lyrics"

	"github.com/xeptore/tunefetch/config"
	"github.com/xeptore/tunefetch/httputil"
	"github.com/xeptore/tunefetch/ratelimit"
)

// Searcher is a secondary lyrics source.
type Searcher interface {
	Search(ctx context.Context, artist, title string) (string, error)
}

type Resolver struct {
	client    *httputil.Client
	lrclibURL string
	timeout   time.Duration
	fallbacks []Searcher
}

func New(conf config.Lyrics) (*Resolver, error) {
	fallbacks := make([]Searcher, 0, len(conf.Sources))
	for _, name := range conf.Sources {
		src, err := wrtaglyrics.NewSource(name, 500*time.Millisecond)
		if nil != err {
			return nil, fmt.Errorf("unknown lyrics source %q: %v", name, err)
		}
		fallbacks = append(fallbacks, src)
	}

	client := httputil.NewClient(ratelimit.PerSecond(2), conf.Timeout.Duration, httputil.WithRetries(1, 500*time.Millisecond))

	return NewWithSources(client, conf.LRCLibURL, conf.Timeout.Duration, fallbacks...), nil
}

func NewWithSources(client *httputil.Client, lrclibURL string, timeout time.Duration, fallbacks ...Searcher) *Resolver {
	return &Resolver{
		client:    client,
		lrclibURL: lrclibURL,
		timeout:   timeout,
		fallbacks: fallbacks,
	}
}

// Resolve returns lyrics for the song, preferring time-synced ones. Failures of any source are
// logged and reported as not found.
func (r *Resolver) Resolve(ctx context.Context, logger zerolog.Logger, title, artist string) (string, bool) {
	title, artist = strings.TrimSpace(title), strings.TrimSpace(artist)
	if title == "" || artist == "" {
		return "", false
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if r.lrclibURL != "" {
		text, err := r.lrclib(ctx, logger, title, artist)
		switch {
		case nil != err:
			logger.Debug().Err(err).Msg("LRCLIB lyrics lookup failed")
		case text != "":
			return text, true
		}
	}

	for _, src := range r.fallbacks {
		if nil != ctx.Err() {
			break
		}

		text, err := src.Search(ctx, artist, title)
		switch {
		case errors.Is(err, wrtaglyrics.ErrLyricsNotFound):
		case nil != err:
			logger.Debug().Err(err).Str("source", fmt.Sprint(src)).Msg("Lyrics lookup failed")
		case strings.TrimSpace(text) != "":
			return strings.TrimSpace(text), true
		}
	}

	return "", false
}

func (r *Resolver) lrclib(ctx context.Context, logger zerolog.Logger, title, artist string) (string, error) {
	reqURL, err := url.JoinPath(r.lrclibURL, "api", "search")
	if nil != err {
		return "", fmt.Errorf("failed to join search URL: %v", err)
	}

	params := make(url.Values, 2)
	params.Set("track_name", title)
	params.Set("artist_name", artist)
	reqURL += "?" + params.Encode()

	body, err := r.client.Get(ctx, logger, reqURL, nil)
	if nil != err {
		if errors.Is(err, httputil.ErrNotFound) {
			return "", nil
		}

		return "", err
	}

	if !gjson.ValidBytes(body) {
		return "", errors.New("invalid search response")
	}

	return pickLyrics(gjson.ParseBytes(body).Array()), nil
}

func pickLyrics(results []gjson.Result) string {
	for _, key := range []string{"syncedLyrics", "plainLyrics"} {
		for _, res := range results {
			if text := strings.TrimSpace(res.Get(key).String()); text != "" {
				return text
			}
		}
	}

	return ""
}
