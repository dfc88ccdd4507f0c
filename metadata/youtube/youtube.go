package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/xeptore/tunefetch/config"
	"github.com/xeptore/tunefetch/metadata"
	"github.com/xeptore/tunefetch/result"
)

const Name metadata.ProviderName = "youtube"

type VideoGetter interface {
	GetVideoContext(ctx context.Context, id string) (*youtube.Video, error)
}

type Provider struct {
	client  VideoGetter
	timeout time.Duration
}

func New(conf config.YouTube) *Provider {
	return NewWithClient(
		&youtube.Client{HTTPClient: &http.Client{Timeout: conf.Timeout.Duration}}, //nolint:exhaustruct
		conf.Timeout.Duration,
	)
}

func NewWithClient(client VideoGetter, timeout time.Duration) *Provider {
	return &Provider{client: client, timeout: timeout}
}

func (p *Provider) Name() metadata.ProviderName {
	return Name
}

func (p *Provider) Lookup(ctx context.Context, logger zerolog.Logger, q metadata.Query) result.Of[metadata.Record] {
	if q.VideoID == "" {
		return result.Empty[metadata.Record]()
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	video, err := p.client.GetVideoContext(ctx, q.VideoID)
	if nil != err {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return result.Err[metadata.Record](err)
		}
		logger.Debug().Err(err).Str("video_id", q.VideoID).Msg("Failed to get video details")

		return result.Err[metadata.Record](fmt.Errorf("failed to get video %s: %w", q.VideoID, err))
	}

	rec := FromVideo(video)
	if rec.IsEmpty() {
		return result.Empty[metadata.Record]()
	}

	return result.Ok(rec)
}

// FromVideo maps video details to a record: the channel name is the artist and the largest
// thumbnail is the cover.
func FromVideo(v *youtube.Video) *metadata.Record {
	rec := &metadata.Record{ //nolint:exhaustruct
		Title:    strings.TrimSpace(v.Title),
		Artist:   strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v.Author), " - Topic")),
		Duration: v.Duration,
		Provider: Name,
	}

	if len(v.Thumbnails) > 0 {
		largest := lo.MaxBy(v.Thumbnails, func(a, b youtube.Thumbnail) bool {
			return a.Width*a.Height > b.Width*b.Height
		})
		rec.CoverImageURL = largest.URL
	}

	return rec
}

// VideoID extracts the native video id from a watch, shorts, embed or youtu.be URL.
func VideoID(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if nil != err {
		return "", false
	}

	var candidate string
	switch host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www."); {
	case host == "youtu.be":
		candidate = strings.Trim(u.Path, "/")
	case host == "youtube.com" || strings.HasSuffix(host, ".youtube.com"):
		if v := u.Query().Get("v"); v != "" {
			candidate = v
			break
		}
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(segments) == 2 && slices.Contains([]string{"shorts", "embed", "live"}, segments[0]) {
			candidate = segments[1]
		}
	default:
		return "", false
	}

	if candidate == "" {
		return "", false
	}

	id, err := youtube.ExtractVideoID(candidate)
	if nil != err {
		return "", false
	}

	return id, true
}
