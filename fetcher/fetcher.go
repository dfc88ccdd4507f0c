package fetcher

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
)

var ErrDownloadFailed = errors.New("download failed")

// Download describes a file the tool wrote to disk.
type Download struct {
	ID     string
	Title  string
	Ext    string
	Path   string
	Stream Stream
}

// Stream holds the audio stream properties yt-dlp reported. Zero values mean unknown.
type Stream struct {
	Codec string
	// Bitrate in kb/s.
	Bitrate    float64
	SampleRate int
	Channels   int
}

type Progress struct {
	Status     string
	Downloaded int64
	Total      int64
	Percent    float64
	ETA        time.Duration
}

type Entry struct {
	ID       string
	URL      string
	Title    string
	Uploader string
}

// Listing is the result of a dry run over a URL. Single videos list as one entry.
type Listing struct {
	Title   string
	Entries []Entry
}

type Fetcher interface {
	Download(ctx context.Context, url, outputTemplate string, onProgress func(Progress)) (*Download, error)
	List(ctx context.Context, url string) (*Listing, error)
}

// IsCollection reports whether u points at a playlist, album or channel page rather than a
// single item.
func IsCollection(u string) bool {
	parsed, err := url.Parse(strings.TrimSpace(u))
	if nil != err {
		return false
	}

	q := parsed.Query()
	if q.Has("list") && !q.Has("v") {
		return true
	}

	path := strings.ToLower(parsed.Path)
	for _, prefix := range []string{"/playlist", "/album", "/browse"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return strings.Contains(path, "/sets/")
}
