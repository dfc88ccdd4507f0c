package itunes

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/xeptore/tunefetch/config"
	"github.com/xeptore/tunefetch/httputil"
	"github.com/xeptore/tunefetch/metadata"
	"github.com/xeptore/tunefetch/ratelimit"
	"github.com/xeptore/tunefetch/result"
)

const Name metadata.ProviderName = "itunes"

type Provider struct {
	client  *httputil.Client
	baseURL string
	country string
}

func New(conf config.ITunes) *Provider {
	return &Provider{
		client:  httputil.NewClient(ratelimit.PerSecond(conf.RPS), conf.Timeout.Duration),
		baseURL: conf.BaseURL,
		country: conf.Country,
	}
}

func NewWithClient(client *httputil.Client, baseURL, country string) *Provider {
	return &Provider{client: client, baseURL: baseURL, country: country}
}

func (p *Provider) Name() metadata.ProviderName {
	return Name
}

type searchResponse struct {
	ResultCount int     `json:"resultCount"`
	Results     []track `json:"results"`
}

type track struct {
	TrackName        string `json:"trackName"`
	ArtistName       string `json:"artistName"`
	CollectionName   string `json:"collectionName"`
	CollectionArtist string `json:"collectionArtistName"`
	ReleaseDate      string `json:"releaseDate"`
	TrackNumber      int    `json:"trackNumber"`
	DiscNumber       int    `json:"discNumber"`
	PrimaryGenreName string `json:"primaryGenreName"`
	ArtworkURL100    string `json:"artworkUrl100"`
	TrackTimeMillis  int64  `json:"trackTimeMillis"`
}

func (p *Provider) Lookup(ctx context.Context, logger zerolog.Logger, q metadata.Query) result.Of[metadata.Record] {
	term := q.Text()
	if term == "" {
		return result.Empty[metadata.Record]()
	}

	reqURL, err := url.JoinPath(p.baseURL, "search")
	if nil != err {
		return result.Err[metadata.Record](fmt.Errorf("failed to join search URL: %v", err))
	}

	params := make(url.Values, 5)
	params.Set("term", term)
	params.Set("media", "music")
	params.Set("entity", "song")
	params.Set("limit", "1")
	params.Set("country", p.country)
	reqURL += "?" + params.Encode()

	var resp searchResponse
	if err := p.client.GetJSON(ctx, logger, reqURL, nil, &resp); nil != err {
		return result.Err[metadata.Record](fmt.Errorf("failed to search itunes: %w", err))
	}

	if len(resp.Results) == 0 {
		return result.Empty[metadata.Record]()
	}

	return result.Ok(resp.Results[0].record())
}

func (t track) record() *metadata.Record {
	rec := &metadata.Record{ //nolint:exhaustruct
		Title:         t.TrackName,
		Artist:        t.ArtistName,
		Album:         t.CollectionName,
		AlbumArtist:   t.ArtistName,
		Genre:         t.PrimaryGenreName,
		TrackNumber:   t.TrackNumber,
		DiskNumber:    t.DiscNumber,
		CoverImageURL: artworkURL(t.ArtworkURL100),
		Duration:      time.Duration(t.TrackTimeMillis) * time.Millisecond,
		Provider:      Name,
	}
	if t.CollectionArtist != "" {
		rec.AlbumArtist = t.CollectionArtist
	}

	// Malformed dates leave the year missing.
	_ = rec.Set(metadata.FieldYear, t.ReleaseDate)

	return rec
}

// artworkURL upgrades the 100px artwork link to a 600px rendition.
func artworkURL(u string) string {
	return strings.Replace(u, "100x100bb", "600x600bb", 1)
}
