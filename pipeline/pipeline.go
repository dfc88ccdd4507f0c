package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/xeptore/tunefetch/fetcher"
	"github.com/xeptore/tunefetch/fs"
	"github.com/xeptore/tunefetch/metadata"
	"github.com/xeptore/tunefetch/metadata/youtube"
	"github.com/xeptore/tunefetch/ratelimit"
	"github.com/xeptore/tunefetch/tagger"
)

var ErrMetadataTimeout = errors.New("metadata lookup timed out")

type MetadataResolver interface {
	Resolve(ctx context.Context, logger zerolog.Logger, src metadata.Source) (*metadata.Record, error)
}

type LyricsResolver interface {
	Resolve(ctx context.Context, logger zerolog.Logger, title, artist string) (string, bool)
}

type CoverFetcher interface {
	Fetch(ctx context.Context, logger zerolog.Logger, url string) ([]byte, error)
}

type TagWriter interface {
	Write(path string, rec *metadata.Record, cover []byte, lyrics string) error
}

// Deps are the collaborators of a Coordinator. Lyrics, Cover and Observer are optional.
type Deps struct {
	Fetcher  fetcher.Fetcher
	Metadata MetadataResolver
	Lyrics   LyricsResolver
	Cover    CoverFetcher
	Tagger   TagWriter
	Observer Observer
}

type Config struct {
	Dir             fs.DownloadDir
	Concurrency     int
	MetadataTimeout time.Duration
}

type Item struct {
	Index int
	URL   string
	Hint  metadata.Hint
	// Err marks an item that failed before it could be queued, e.g. an unlistable playlist.
	Err error
}

type Result struct {
	Index    int
	URL      string
	TaskID   string
	Path     string
	Staged   string
	Renamed  bool
	Stream   fetcher.Stream
	Metadata *metadata.Record
	Cover    bool
	Lyrics   bool
	Warnings []string
	Err      error
}

func (r *Result) Ok() bool {
	return nil == r.Err
}

func (r *Result) warn(logger zerolog.Logger, err error, msg string) {
	logger.Warn().Err(err).Msg(msg)
	if nil != err {
		msg += ": " + err.Error()
	}
	r.Warnings = append(r.Warnings, msg)
}

type Coordinator struct {
	logger  zerolog.Logger
	conf    Config
	deps    Deps
	observe func(Event)
}

func New(logger zerolog.Logger, conf Config, deps Deps) *Coordinator {
	if conf.Concurrency <= 0 {
		conf.Concurrency = ratelimit.DefaultBatchConcurrency
	}
	if nil == deps.Observer {
		deps.Observer = nopObserver{}
	}

	return &Coordinator{
		logger:  logger,
		conf:    conf,
		deps:    deps,
		observe: deps.Observer.Observe,
	}
}

type metadataOutcome struct {
	rec *metadata.Record
	err error
}

// Process downloads one item while its metadata is resolved, then renames and tags the file.
// Only download failures, cancellation and unsupported containers fail the item; everything else
// ends up in Result.Warnings.
func (c *Coordinator) Process(ctx context.Context, logger zerolog.Logger, item Item) *Result {
	taskID := uuid.NewString()
	logger = logger.With().Int("index", item.Index).Str("url", item.URL).Str("task_id", taskID).Logger()

	res := &Result{ //nolint:exhaustruct
		Index:  item.Index,
		URL:    item.URL,
		TaskID: taskID,
	}
	event := func(stage Stage, title string) Event {
		return Event{ //nolint:exhaustruct
			Index:  item.Index,
			URL:    item.URL,
			TaskID: taskID,
			Stage:  stage,
			Title:  title,
		}
	}
	fail := func(err error) *Result {
		res.Err = err
		e := event(StageFailed, item.Hint.Title)
		e.Err = err
		c.observe(e)
		logger.Error().Err(err).Msg("Item failed")

		return res
	}

	if nil != item.Err {
		return fail(item.Err)
	}

	videoID, _ := youtube.VideoID(item.URL)

	metaCtx, cancelMeta := context.WithCancel(ctx)
	defer cancelMeta()
	metaCh := make(chan metadataOutcome, 1)
	c.observe(event(StageResolving, item.Hint.Title))
	go func() {
		src := metadata.Source{URL: item.URL, VideoID: videoID, Hint: item.Hint}
		rec, err := c.deps.Metadata.Resolve(metaCtx, logger, src)
		metaCh <- metadataOutcome{rec: rec, err: err}
	}()

	c.observe(event(StageDownloading, item.Hint.Title))
	template := c.conf.Dir.Staging(videoID, taskID)
	dl, err := c.deps.Fetcher.Download(ctx, item.URL, template, func(p fetcher.Progress) {
		e := event(StageDownloading, item.Hint.Title)
		e.Progress = p
		c.observe(e)
	})
	if nil != err {
		cancelMeta()
		if ctxErr := ctx.Err(); nil != ctxErr {
			return fail(ctxErr)
		}

		return fail(fmt.Errorf("download: %w", err))
	}
	res.Staged, res.Path = dl.Path, dl.Path
	res.Stream = dl.Stream
	c.observe(event(StageDownloaded, dl.Title))
	logger.Debug().Str("path", dl.Path).Str("title", dl.Title).Msg("Download finished")

	rec, err := c.awaitMetadata(ctx, metaCh, cancelMeta)
	switch {
	case nil == err:
		res.Metadata = rec
	case nil != ctx.Err():
		return fail(ctx.Err())
	default:
		res.warn(logger, err, "Metadata unavailable")
	}

	c.rename(logger, res, dl)

	if nil != ctx.Err() {
		return fail(ctx.Err())
	}

	var coverData []byte
	if nil != rec && !rec.IsMissing(metadata.FieldCoverImageURL) && nil != c.deps.Cover {
		b, err := c.deps.Cover.Fetch(ctx, logger, rec.CoverImageURL)
		if nil != err {
			res.warn(logger, err, "Cover unavailable")
		} else {
			coverData = b
			res.Cover = true
		}
	}

	var lyrics string
	if nil != rec && !rec.IsMissing(metadata.FieldTitle) && !rec.IsMissing(metadata.FieldArtist) && nil != c.deps.Lyrics {
		if l, ok := c.deps.Lyrics.Resolve(ctx, logger, rec.Title, rec.Artist); ok {
			lyrics = l
			res.Lyrics = true
		} else {
			logger.Debug().Msg("No lyrics found")
		}
	}

	if (nil != rec && !rec.IsEmpty()) || len(coverData) > 0 || lyrics != "" {
		c.observe(event(StageTagging, titleOf(rec, dl)))
		if nil == rec {
			rec = &metadata.Record{} //nolint:exhaustruct
		}
		if err := c.deps.Tagger.Write(res.Path, rec, coverData, lyrics); nil != err {
			if errors.Is(err, tagger.ErrUnsupportedFormat) {
				return fail(fmt.Errorf("write tags: %w", err))
			}
			res.warn(logger, err, "Tags not written")
		}
	}

	c.observe(event(StageDone, titleOf(rec, dl)))
	logger.Info().Str("path", res.Path).Strs("warnings", res.Warnings).Msg("Item processed")

	return res
}

// awaitMetadata waits for the metadata goroutine for at most the metadata timeout, measured from
// the end of the download.
func (c *Coordinator) awaitMetadata(ctx context.Context, ch <-chan metadataOutcome, cancel context.CancelFunc) (*metadata.Record, error) {
	var timeout <-chan time.Time
	if c.conf.MetadataTimeout > 0 {
		timer := time.NewTimer(c.conf.MetadataTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case out := <-ch:
		if nil != out.err {
			return nil, out.err
		}
		if nil == out.rec || out.rec.IsEmpty() {
			return nil, errors.New("no provider returned metadata")
		}

		return out.rec, nil
	case <-timeout:
		cancel()
		return nil, ErrMetadataTimeout
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}
}

func (c *Coordinator) rename(logger zerolog.Logger, res *Result, dl *fetcher.Download) {
	ext := dl.Ext
	if ext == "" {
		ext = strings.TrimPrefix(filepath.Ext(dl.Path), ".")
	}

	target, ok := c.conf.Dir.Final(titleOf(res.Metadata, dl), ext)
	if !ok {
		res.warn(logger, nil, "No usable title, keeping staged file name")
		return
	}

	if err := fs.Finalize(dl.Path, target); nil != err {
		if errors.Is(err, fs.ErrTargetExists) {
			res.warn(logger, err, "Destination file already exists, keeping staged file name")
			return
		}
		res.warn(logger, err, "Rename failed, keeping staged file name")
		return
	}

	res.Path = target
	res.Renamed = target != dl.Path
	logger.Debug().Str("from", dl.Path).Str("to", target).Msg("File renamed")
}

func titleOf(rec *metadata.Record, dl *fetcher.Download) string {
	if nil != rec && !rec.IsMissing(metadata.FieldTitle) {
		return rec.Title
	}

	return dl.Title
}
