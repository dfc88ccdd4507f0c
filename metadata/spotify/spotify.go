package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/xeptore/tunefetch/cache"
	"github.com/xeptore/tunefetch/config"
	"github.com/xeptore/tunefetch/httputil"
	"github.com/xeptore/tunefetch/metadata"
	"github.com/xeptore/tunefetch/ratelimit"
	"github.com/xeptore/tunefetch/result"
)

const Name metadata.ProviderName = "spotify"

type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate(accessToken string)
}

type Provider struct {
	client *httputil.Client
	tokens TokenSource
	apiURL string
	market string
	genres *cache.Cache[[]string]
}

func New(conf config.Spotify, tokens TokenSource, genres *cache.Cache[[]string]) *Provider {
	return NewWithClient(
		httputil.NewClient(ratelimit.PerSecond(conf.RPS), conf.Timeout.Duration),
		tokens,
		genres,
		conf.APIURL,
		conf.Market,
	)
}

func NewWithClient(
	client *httputil.Client,
	tokens TokenSource,
	genres *cache.Cache[[]string],
	apiURL,
	market string,
) *Provider {
	return &Provider{
		client: client,
		tokens: tokens,
		apiURL: apiURL,
		market: market,
		genres: genres,
	}
}

func (p *Provider) Name() metadata.ProviderName {
	return Name
}

type searchResponse struct {
	Tracks struct {
		Items []track `json:"items"`
	} `json:"tracks"`
}

type artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type track struct {
	Name        string   `json:"name"`
	Artists     []artist `json:"artists"`
	TrackNumber int      `json:"track_number"`
	DiscNumber  int      `json:"disc_number"`
	DurationMS  int64    `json:"duration_ms"`
	Popularity  int      `json:"popularity"`
	Album       struct {
		Name        string   `json:"name"`
		ReleaseDate string   `json:"release_date"`
		Artists     []artist `json:"artists"`
		Images      []image  `json:"images"`
	} `json:"album"`
}

func (p *Provider) Lookup(ctx context.Context, logger zerolog.Logger, q metadata.Query) result.Of[metadata.Record] {
	term := q.Text()
	if term == "" {
		return result.Empty[metadata.Record]()
	}

	reqURL, err := url.JoinPath(p.apiURL, "search")
	if nil != err {
		return result.Err[metadata.Record](fmt.Errorf("failed to join search URL: %v", err))
	}

	params := make(url.Values, 4)
	params.Set("q", term)
	params.Set("type", "track")
	params.Set("limit", "1")
	params.Set("market", p.market)
	reqURL += "?" + params.Encode()

	var resp searchResponse
	if err := p.getJSON(ctx, logger, reqURL, &resp); nil != err {
		return result.Err[metadata.Record](fmt.Errorf("failed to search spotify: %w", err))
	}

	if len(resp.Tracks.Items) == 0 {
		return result.Empty[metadata.Record]()
	}

	t := resp.Tracks.Items[0]
	rec := t.record()

	if len(t.Artists) > 0 && nil != p.genres {
		genres, err := p.artistGenres(ctx, logger, t.Artists[0].ID)
		if nil != err {
			logger.Debug().Err(err).Str("artist_id", t.Artists[0].ID).Msg("Failed to get artist genres")
		} else if len(genres) > 0 {
			rec.Genre = genres[0]
		}
	}

	return result.Ok(rec)
}

func (t track) record() *metadata.Record {
	names := func(as []artist) string {
		return strings.Join(lo.FilterMap(as, func(a artist, _ int) (string, bool) { return a.Name, a.Name != "" }), ", ")
	}

	rec := &metadata.Record{ //nolint:exhaustruct
		Title:       t.Name,
		Artist:      names(t.Artists),
		Album:       t.Album.Name,
		AlbumArtist: names(t.Album.Artists),
		TrackNumber: t.TrackNumber,
		DiskNumber:  t.DiscNumber,
		Duration:    time.Duration(t.DurationMS) * time.Millisecond,
		Popularity:  t.Popularity,
		Provider:    Name,
	}

	if len(t.Album.Images) > 0 {
		rec.CoverImageURL = lo.MaxBy(t.Album.Images, func(a, b image) bool { return a.Width > b.Width }).URL
	}

	// release_date precision may be year, month or day.
	_ = rec.Set(metadata.FieldYear, t.Album.ReleaseDate)

	return rec
}

func (p *Provider) artistGenres(ctx context.Context, logger zerolog.Logger, id string) ([]string, error) {
	if id == "" {
		return nil, nil
	}

	return p.genres.Fetch(id, func() ([]string, error) {
		reqURL, err := url.JoinPath(p.apiURL, "artists", id)
		if nil != err {
			return nil, fmt.Errorf("failed to join artist URL: %v", err)
		}

		body, err := p.get(ctx, logger, reqURL)
		if nil != err {
			return nil, err
		}

		return lo.Map(gjson.GetBytes(body, "genres").Array(), func(g gjson.Result, _ int) string { return g.String() }), nil
	})
}

func (p *Provider) getJSON(ctx context.Context, logger zerolog.Logger, reqURL string, v any) error {
	return p.withToken(ctx, func(header http.Header) error {
		return p.client.GetJSON(ctx, logger, reqURL, header, v)
	})
}

func (p *Provider) get(ctx context.Context, logger zerolog.Logger, reqURL string) ([]byte, error) {
	var body []byte
	err := p.withToken(ctx, func(header http.Header) error {
		b, err := p.client.Get(ctx, logger, reqURL, header)
		body = b

		return err
	})

	return body, err
}

// withToken runs f with a bearer header and retries once with a fresh token if the API rejects
// the current one.
func (p *Provider) withToken(ctx context.Context, f func(http.Header) error) error {
	for attempt := 0; ; attempt++ {
		token, err := p.tokens.Token(ctx)
		if nil != err {
			return fmt.Errorf("failed to get access token: %w", err)
		}

		err = f(http.Header{"Authorization": []string{"Bearer " + token}})
		if errors.Is(err, httputil.ErrUnauthorized) && attempt == 0 {
			p.tokens.Invalidate(token)
			continue
		}

		return err
	}
}
