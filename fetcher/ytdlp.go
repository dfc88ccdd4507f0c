package fetcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/xeptore/tunefetch/config"
)

const (
	progressInterval = 250 * time.Millisecond

	// finalInfoTemplate prints the info dict once post-processors have moved the file into
	// place. The JSON printed by --print-json is emitted before post-processing and names the
	// pre-extraction file.
	finalInfoTemplate = "after_move:%()j"
)

// YTDLP drives the yt-dlp executable.
type YTDLP struct {
	logger zerolog.Logger
	conf   config.Downloader
}

func NewYTDLP(logger zerolog.Logger, conf config.Downloader) *YTDLP {
	return &YTDLP{
		logger: logger.With().Str("component", "yt-dlp").Logger(),
		conf:   conf,
	}
}

func (y *YTDLP) command() *ytdlp.Command {
	cmd := ytdlp.New()
	if y.conf.Executable != "" {
		cmd = cmd.SetExecutable(y.conf.Executable)
	}

	return cmd
}

func (y *YTDLP) Download(ctx context.Context, url, outputTemplate string, onProgress func(Progress)) (*Download, error) {
	cmd := y.command().
		Format(y.conf.Format).
		NoPlaylist().
		Output(outputTemplate).
		PrintJSON().
		Print(finalInfoTemplate)

	if y.conf.ExtractAudio != "" {
		cmd = cmd.ExtractAudio().AudioFormat(y.conf.ExtractAudio)
	}

	if nil != onProgress {
		cmd = cmd.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
			onProgress(Progress{
				Status:     string(update.Status),
				Downloaded: int64(update.DownloadedBytes),
				Total:      int64(update.TotalBytes),
				Percent:    update.Percent(),
				ETA:        update.ETA(),
			})
		})
	}

	res, err := cmd.Run(ctx, url)
	if nil != err {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		ev := y.logger.Error().Err(err).Str("url", url)
		if nil != res {
			ev = ev.Int("exit_code", res.ExitCode).Str("stderr", tail(res.Stderr, 2048))
		}
		ev.Msg("yt-dlp download failed")

		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	dl, err := ParseDownload(res.Stdout, outputTemplate)
	if nil != err {
		y.logger.Error().Err(err).Str("url", url).Str("stdout", tail(res.Stdout, 2048)).Msg("Failed to parse yt-dlp output")
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	// yt-dlp keeps the source stream fields after extraction.
	if format := y.conf.ExtractAudio; format != "" && format != "best" {
		dl.Stream.Codec = format
	}

	return dl, nil
}

func (y *YTDLP) List(ctx context.Context, url string) (*Listing, error) {
	if y.conf.ListTimeout.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.conf.ListTimeout.Duration)
		defer cancel()
	}

	res, err := y.command().
		FlatPlaylist().
		DumpSingleJSON().
		Run(ctx, url)
	if nil != err {
		if nil != res {
			y.logger.Error().Err(err).Str("url", url).Str("stderr", tail(res.Stderr, 2048)).Msg("yt-dlp listing failed")
		}

		return nil, fmt.Errorf("failed to list %s: %w", url, err)
	}

	return ParseListing(res.Stdout)
}

// ParseDownload reads the info JSON yt-dlp printed for the downloaded item. The last JSON line
// carrying an id wins, which is the after-move dump when post-processing ran.
func ParseDownload(stdout, outputTemplate string) (*Download, error) {
	info, ok := lastInfoLine(stdout)
	if !ok {
		return nil, errors.New("no info JSON found in yt-dlp output")
	}

	dl := &Download{
		ID:     info.Get("id").String(),
		Title:  info.Get("title").String(),
		Ext:    "",
		Path:   "",
		Stream: parseStream(info),
	}

	for _, path := range []string{"requested_downloads.0.filepath", "filepath", "_filename", "filename"} {
		if v := info.Get(path).String(); v != "" {
			dl.Path = v
			break
		}
	}

	if dl.Path == "" {
		ext := info.Get("ext").String()
		if ext == "" {
			return nil, errors.New("yt-dlp output carries neither a file path nor an extension")
		}
		dl.Path = strings.NewReplacer(
			"%(ext)s", ext,
			"%(id)s", dl.ID,
			"%(title)s", dl.Title,
		).Replace(outputTemplate)
	}

	dl.Ext = strings.TrimPrefix(filepath.Ext(dl.Path), ".")
	if dl.Ext == "" {
		dl.Ext = info.Get("ext").String()
	}

	return dl, nil
}

func parseStream(info gjson.Result) Stream {
	codec := info.Get("acodec").String()
	if codec == "none" {
		codec = ""
	}

	channels := int(info.Get("audio_channels").Int())
	if channels == 0 {
		channels = int(info.Get("requested_downloads.0.audio_channels").Int())
	}

	return Stream{
		Codec:      codec,
		Bitrate:    info.Get("abr").Float(),
		SampleRate: int(info.Get("asr").Int()),
		Channels:   channels,
	}
}

func lastInfoLine(stdout string) (gjson.Result, bool) {
	var (
		found gjson.Result
		ok    bool
	)

	sc := bufio.NewScanner(strings.NewReader(stdout))
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "{") || !gjson.Valid(line) {
			continue
		}

		if r := gjson.Parse(line); r.Get("id").Exists() {
			found, ok = r, true
		}
	}

	return found, ok
}

func ParseListing(stdout string) (*Listing, error) {
	info, ok := lastInfoLine(stdout)
	if !ok {
		return nil, errors.New("no info JSON found in yt-dlp output")
	}

	entries := info.Get("entries")
	if !entries.Exists() {
		return &Listing{
			Title: info.Get("title").String(),
			Entries: []Entry{{
				ID:       info.Get("id").String(),
				URL:      firstNonEmpty(info.Get("webpage_url").String(), info.Get("original_url").String()),
				Title:    info.Get("title").String(),
				Uploader: firstNonEmpty(info.Get("uploader").String(), info.Get("channel").String()),
			}},
		}, nil
	}

	listing := &Listing{Title: info.Get("title").String(), Entries: nil}
	for _, e := range entries.Array() {
		entry := Entry{
			ID:       e.Get("id").String(),
			URL:      firstNonEmpty(e.Get("url").String(), e.Get("webpage_url").String()),
			Title:    e.Get("title").String(),
			Uploader: firstNonEmpty(e.Get("uploader").String(), e.Get("channel").String()),
		}
		if entry.URL == "" && entry.ID != "" {
			entry.URL = "https://www.youtube.com/watch?v=" + entry.ID
		}
		if entry.URL == "" {
			continue
		}
		listing.Entries = append(listing.Entries, entry)
	}

	return listing, nil
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}

	return ""
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[len(s)-n:]
}
