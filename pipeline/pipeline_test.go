package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeptore/tunefetch/fetcher"
	"github.com/xeptore/tunefetch/fs"
	"github.com/xeptore/tunefetch/metadata"
	"github.com/xeptore/tunefetch/pipeline"
	"github.com/xeptore/tunefetch/result"
	"github.com/xeptore/tunefetch/tagger"
)

const (
	urlA = "https://www.youtube.com/watch?v=aaaaaaaaaaa"
	urlB = "https://www.youtube.com/watch?v=bbbbbbbbbbb"
)

type fakeFetcher struct {
	titles   map[string]string
	errs     map[string]error
	listings map[string]*fetcher.Listing
	delay    time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
}

func (f *fakeFetcher) Download(ctx context.Context, url, tmpl string, onProgress func(fetcher.Progress)) (*fetcher.Download, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := f.errs[url]; nil != err {
		return nil, fmt.Errorf("%w: %w", fetcher.ErrDownloadFailed, err)
	}

	onProgress(fetcher.Progress{Status: "downloading", Downloaded: 50, Total: 100, Percent: 50}) //nolint:exhaustruct

	path := strings.ReplaceAll(tmpl, "%(ext)s", "m4a")
	if err := os.WriteFile(path, []byte("audio:"+url), 0o600); nil != err {
		return nil, err
	}

	title, ok := f.titles[url]
	if !ok {
		title = "Raw Title"
	}

	return &fetcher.Download{ID: filepath.Base(path), Title: title, Ext: "m4a", Path: path}, nil
}

func (f *fakeFetcher) List(_ context.Context, url string) (*fetcher.Listing, error) {
	if err := f.errs[url]; nil != err {
		return nil, err
	}
	if l, ok := f.listings[url]; ok {
		return l, nil
	}

	return nil, errors.New("not a collection")
}

type resolverFunc func(ctx context.Context, src metadata.Source) (*metadata.Record, error)

func (f resolverFunc) Resolve(ctx context.Context, _ zerolog.Logger, src metadata.Source) (*metadata.Record, error) {
	return f(ctx, src)
}

type fakeProvider struct {
	name  metadata.ProviderName
	rec   *metadata.Record
	err   error
	calls atomic.Int32
}

func (p *fakeProvider) Name() metadata.ProviderName { return p.name }

func (p *fakeProvider) Lookup(context.Context, zerolog.Logger, metadata.Query) result.Of[metadata.Record] {
	p.calls.Add(1)
	if nil != p.err {
		return result.Err[metadata.Record](p.err)
	}
	if nil == p.rec {
		return result.Empty[metadata.Record]()
	}

	return result.Ok(p.rec.Clone())
}

type tagCall struct {
	path    string
	existed bool
	rec     *metadata.Record
	cover   []byte
	lyrics  string
}

type fakeTagger struct {
	mu    sync.Mutex
	calls []tagCall
	err   error
}

func (t *fakeTagger) Write(path string, rec *metadata.Record, cover []byte, lyrics string) error {
	exists, _ := fs.FileExists(path)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, tagCall{path: path, existed: exists, rec: rec.Clone(), cover: cover, lyrics: lyrics})

	return t.err
}

func (t *fakeTagger) Calls() []tagCall {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]tagCall(nil), t.calls...)
}

type fakeCover struct {
	data []byte
	err  error
	urls chan string
}

func (c *fakeCover) Fetch(_ context.Context, _ zerolog.Logger, url string) ([]byte, error) {
	if nil != c.urls {
		c.urls <- url
	}

	return c.data, c.err
}

type fakeLyrics struct {
	text string
}

func (l *fakeLyrics) Resolve(context.Context, zerolog.Logger, string, string) (string, bool) {
	return l.text, l.text != ""
}

type recorder struct {
	mu     sync.Mutex
	events []pipeline.Event
}

func (r *recorder) Observe(e pipeline.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Stages(index int) []pipeline.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []pipeline.Stage
	for _, e := range r.events {
		if e.Index == index {
			out = append(out, e.Stage)
		}
	}

	return out
}

func staticResolver(rec *metadata.Record, err error) pipeline.MetadataResolver {
	return resolverFunc(func(context.Context, metadata.Source) (*metadata.Record, error) {
		if nil != err {
			return nil, err
		}

		return rec.Clone(), nil
	})
}

func newCoordinator(t *testing.T, deps pipeline.Deps) (*pipeline.Coordinator, string) {
	t.Helper()

	dir := t.TempDir()
	if nil == deps.Tagger {
		deps.Tagger = &fakeTagger{} //nolint:exhaustruct
	}

	conf := pipeline.Config{
		Dir:             fs.DownloadDir(dir),
		Concurrency:     4,
		MetadataTimeout: 2 * time.Second,
	}

	return pipeline.New(zerolog.Nop(), conf, deps), dir
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names
}

func TestProcessResolvedMetadataRenamesAndTags(t *testing.T) {
	t.Parallel()

	primary := &fakeProvider{name: "youtube", rec: &metadata.Record{Title: "Song One", Artist: "Artist A"}} //nolint:exhaustruct
	aggregator := &fakeProvider{name: "itunes", rec: &metadata.Record{Album: "Album X", Year: 2020}}        //nolint:exhaustruct
	completer := &fakeProvider{name: "openai", rec: &metadata.Record{Album: "Wrong", Genre: "Wrong"}}       //nolint:exhaustruct
	fields := []metadata.Field{metadata.FieldTitle, metadata.FieldArtist, metadata.FieldAlbum, metadata.FieldYear}
	resolver := metadata.NewResolver(primary, []metadata.Provider{aggregator}, completer, fields)

	tags := &fakeTagger{}                      //nolint:exhaustruct
	obs := &recorder{}                         //nolint:exhaustruct
	c, dir := newCoordinator(t, pipeline.Deps{ //nolint:exhaustruct
		Fetcher:  &fakeFetcher{titles: map[string]string{urlA: "Song One (Official Video)"}}, //nolint:exhaustruct
		Metadata: resolver,
		Tagger:   tags,
		Observer: obs,
	})

	res := c.Process(t.Context(), zerolog.Nop(), pipeline.Item{Index: 0, URL: urlA}) //nolint:exhaustruct
	require.NoError(t, res.Err)
	assert.Equal(t, filepath.Join(dir, "Song One.m4a"), res.Path)
	assert.True(t, res.Renamed)
	assert.Equal(t, []string{"Song One.m4a"}, listDir(t, dir))
	assert.Zero(t, completer.calls.Load())
	assert.Empty(t, res.Warnings)

	calls := tags.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, res.Path, calls[0].path)
	assert.True(t, calls[0].existed)
	assert.Equal(t, "Album X", calls[0].rec.Album)
	assert.Equal(t, 2020, calls[0].rec.Year)

	stages := obs.Stages(0)
	assert.Contains(t, stages, pipeline.StageDownloading)
	assert.Contains(t, stages, pipeline.StageTagging)
	assert.Equal(t, pipeline.StageDone, stages[len(stages)-1])
}

func TestProcessWithoutMetadataKeepsRawTitle(t *testing.T) {
	t.Parallel()

	failing := &fakeProvider{name: "youtube", err: errors.New("boom")} //nolint:exhaustruct
	resolver := metadata.NewResolver(failing, []metadata.Provider{failing}, failing, []metadata.Field{metadata.FieldAlbum})

	tags := &fakeTagger{}                      //nolint:exhaustruct
	c, dir := newCoordinator(t, pipeline.Deps{ //nolint:exhaustruct
		Fetcher:  &fakeFetcher{titles: map[string]string{urlA: "Raw: Title?"}}, //nolint:exhaustruct
		Metadata: resolver,
		Tagger:   tags,
	})

	res := c.Process(t.Context(), zerolog.Nop(), pipeline.Item{Index: 0, URL: urlA}) //nolint:exhaustruct
	require.NoError(t, res.Err)
	assert.Equal(t, filepath.Join(dir, "Raw Title.m4a"), res.Path)
	assert.Nil(t, res.Metadata)
	assert.NotEmpty(t, res.Warnings)
	assert.Empty(t, tags.Calls())
	assert.Equal(t, []string{"Raw Title.m4a"}, listDir(t, dir))
}

func TestProcessDownloadFailureCancelsMetadata(t *testing.T) {
	t.Parallel()

	cancelled := make(chan struct{})
	resolver := resolverFunc(func(ctx context.Context, _ metadata.Source) (*metadata.Record, error) {
		<-ctx.Done()
		close(cancelled)

		return nil, ctx.Err()
	})

	obs := &recorder{}                         //nolint:exhaustruct
	c, dir := newCoordinator(t, pipeline.Deps{ //nolint:exhaustruct
		Fetcher:  &fakeFetcher{errs: map[string]error{urlA: errors.New("HTTP Error 403")}}, //nolint:exhaustruct
		Metadata: resolver,
		Observer: obs,
	})

	res := c.Process(t.Context(), zerolog.Nop(), pipeline.Item{Index: 3, URL: urlA}) //nolint:exhaustruct
	require.ErrorIs(t, res.Err, fetcher.ErrDownloadFailed)
	assert.Empty(t, res.Path)
	assert.Empty(t, listDir(t, dir))

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("metadata lookup was not cancelled")
	}

	stages := obs.Stages(3)
	assert.Equal(t, pipeline.StageFailed, stages[len(stages)-1])
}

func TestProcessMetadataTimeout(t *testing.T) {
	t.Parallel()

	cancelled := make(chan struct{})
	resolver := resolverFunc(func(ctx context.Context, _ metadata.Source) (*metadata.Record, error) {
		<-ctx.Done()
		close(cancelled)

		return nil, ctx.Err()
	})

	dir := t.TempDir()
	conf := pipeline.Config{Dir: fs.DownloadDir(dir), Concurrency: 1, MetadataTimeout: 50 * time.Millisecond}
	c := pipeline.New(zerolog.Nop(), conf, pipeline.Deps{ //nolint:exhaustruct
		Fetcher:  &fakeFetcher{titles: map[string]string{urlA: "Slow"}}, //nolint:exhaustruct
		Metadata: resolver,
		Tagger:   &fakeTagger{}, //nolint:exhaustruct
	})

	start := time.Now()
	res := c.Process(t.Context(), zerolog.Nop(), pipeline.Item{Index: 0, URL: urlA}) //nolint:exhaustruct
	require.NoError(t, res.Err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, filepath.Join(dir, "Slow.m4a"), res.Path)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], pipeline.ErrMetadataTimeout.Error())

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("metadata lookup was not cancelled after timeout")
	}
}

func TestProcessRenameKeepsStagedFileWhenDestinationExists(t *testing.T) {
	t.Parallel()

	c, dir := newCoordinator(t, pipeline.Deps{ //nolint:exhaustruct
		Fetcher:  &fakeFetcher{},                                                     //nolint:exhaustruct
		Metadata: staticResolver(&metadata.Record{Title: "Taken", Artist: "A"}, nil), //nolint:exhaustruct
	})
	existing := filepath.Join(dir, "Taken.m4a")
	require.NoError(t, os.WriteFile(existing, []byte("keep me"), 0o600))

	res := c.Process(t.Context(), zerolog.Nop(), pipeline.Item{Index: 0, URL: urlA}) //nolint:exhaustruct
	require.NoError(t, res.Err)
	assert.False(t, res.Renamed)
	assert.Equal(t, res.Staged, res.Path)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "already exists")

	b, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(b))
	assert.ElementsMatch(t, []string{"Taken.m4a", filepath.Base(res.Staged)}, listDir(t, dir))
}

func TestProcessRenameFailureKeepsStagedFile(t *testing.T) {
	t.Parallel()

	tags := &fakeTagger{}                      //nolint:exhaustruct
	c, dir := newCoordinator(t, pipeline.Deps{ //nolint:exhaustruct
		Fetcher:  &fakeFetcher{},                                                      //nolint:exhaustruct
		Metadata: staticResolver(&metadata.Record{Title: "Folder", Artist: "A"}, nil), //nolint:exhaustruct
		Tagger:   tags,
	})
	blocker := filepath.Join(dir, "Folder.m4a")
	require.NoError(t, os.Mkdir(blocker, 0o755))

	res := c.Process(t.Context(), zerolog.Nop(), pipeline.Item{Index: 0, URL: urlA}) //nolint:exhaustruct
	require.NoError(t, res.Err)
	assert.False(t, res.Renamed)
	assert.Equal(t, res.Staged, res.Path)
	assert.Len(t, res.Warnings, 1)

	info, err := os.Stat(blocker)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	b, err := os.ReadFile(res.Staged)
	require.NoError(t, err)
	assert.Equal(t, "audio:"+urlA, string(b))

	calls := tags.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, res.Staged, calls[0].path)
	assert.True(t, calls[0].existed)
}

func TestProcessUnusableTitleKeepsStagedFile(t *testing.T) {
	t.Parallel()

	c, dir := newCoordinator(t, pipeline.Deps{ //nolint:exhaustruct
		Fetcher:  &fakeFetcher{titles: map[string]string{urlA: "???"}}, //nolint:exhaustruct
		Metadata: staticResolver(nil, metadata.ErrNoIdentifier),
	})

	res := c.Process(t.Context(), zerolog.Nop(), pipeline.Item{Index: 0, URL: urlA}) //nolint:exhaustruct
	require.NoError(t, res.Err)
	assert.False(t, res.Renamed)
	assert.Equal(t, res.Staged, res.Path)
	assert.True(t, strings.HasPrefix(filepath.Base(res.Path), "aaaaaaaaaaa."))
	assert.Len(t, listDir(t, dir), 1)
	assert.Len(t, res.Warnings, 2)
}

func TestProcessCoverAndLyrics(t *testing.T) {
	t.Parallel()

	covers := &fakeCover{data: []byte("image"), urls: make(chan string, 1)}                      //nolint:exhaustruct
	tags := &fakeTagger{}                                                                        //nolint:exhaustruct
	rec := &metadata.Record{Title: "T", Artist: "A", CoverImageURL: "https://img.example/c.jpg"} //nolint:exhaustruct
	c, _ := newCoordinator(t, pipeline.Deps{                                                     //nolint:exhaustruct
		Fetcher:  &fakeFetcher{}, //nolint:exhaustruct
		Metadata: staticResolver(rec, nil),
		Cover:    covers,
		Lyrics:   &fakeLyrics{text: "[00:01.00] hello"},
		Tagger:   tags,
	})

	res := c.Process(t.Context(), zerolog.Nop(), pipeline.Item{Index: 0, URL: urlA}) //nolint:exhaustruct
	require.NoError(t, res.Err)
	assert.True(t, res.Cover)
	assert.True(t, res.Lyrics)
	assert.Equal(t, "https://img.example/c.jpg", <-covers.urls)

	calls := tags.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []byte("image"), calls[0].cover)
	assert.Equal(t, "[00:01.00] hello", calls[0].lyrics)
}

func TestProcessCoverFailureIsWarning(t *testing.T) {
	t.Parallel()

	tags := &fakeTagger{}                                                                        //nolint:exhaustruct
	rec := &metadata.Record{Title: "T", Artist: "A", CoverImageURL: "https://img.example/c.jpg"} //nolint:exhaustruct
	c, _ := newCoordinator(t, pipeline.Deps{                                                     //nolint:exhaustruct
		Fetcher:  &fakeFetcher{}, //nolint:exhaustruct
		Metadata: staticResolver(rec, nil),
		Cover:    &fakeCover{err: errors.New("503")}, //nolint:exhaustruct
		Lyrics:   &fakeLyrics{},                      //nolint:exhaustruct
		Tagger:   tags,
	})

	res := c.Process(t.Context(), zerolog.Nop(), pipeline.Item{Index: 0, URL: urlA}) //nolint:exhaustruct
	require.NoError(t, res.Err)
	assert.False(t, res.Cover)
	assert.False(t, res.Lyrics)
	require.Len(t, res.Warnings, 1)

	calls := tags.Calls()
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].cover)
}

func TestProcessTagErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantFail bool
	}{
		{name: "unsupported format fails item", err: fmt.Errorf("%w: \".webm\"", tagger.ErrUnsupportedFormat), wantFail: true},
		{name: "io error is a warning", err: errors.New("disk full"), wantFail: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c, dir := newCoordinator(t, pipeline.Deps{ //nolint:exhaustruct
				Fetcher:  &fakeFetcher{},                                                 //nolint:exhaustruct
				Metadata: staticResolver(&metadata.Record{Title: "T", Artist: "A"}, nil), //nolint:exhaustruct
				Tagger:   &fakeTagger{err: tc.err},                                       //nolint:exhaustruct
			})

			res := c.Process(t.Context(), zerolog.Nop(), pipeline.Item{Index: 0, URL: urlA}) //nolint:exhaustruct
			if tc.wantFail {
				require.ErrorIs(t, res.Err, tagger.ErrUnsupportedFormat)
			} else {
				require.NoError(t, res.Err)
				assert.Len(t, res.Warnings, 1)
			}
			assert.Equal(t, filepath.Join(dir, "T.m4a"), res.Path)
			assert.Equal(t, []string{"T.m4a"}, listDir(t, dir))
		})
	}
}

func TestProcessBatchBoundedAndIsolated(t *testing.T) {
	t.Parallel()

	const n = 12
	urls := make([]string, n)
	titles := make(map[string]string, n)
	for i := range n {
		urls[i] = fmt.Sprintf("https://www.youtube.com/watch?v=vid%08d", i)
		titles[urls[i]] = fmt.Sprintf("Track %02d", i)
	}
	ff := &fakeFetcher{ //nolint:exhaustruct
		titles: titles,
		errs:   map[string]error{urls[5]: errors.New("unavailable")},
		delay:  30 * time.Millisecond,
	}

	c, dir := newCoordinator(t, pipeline.Deps{ //nolint:exhaustruct
		Fetcher:  ff,
		Metadata: staticResolver(nil, metadata.ErrNoIdentifier),
	})

	items := make([]pipeline.Item, n)
	for i, u := range urls {
		items[i] = pipeline.Item{Index: i, URL: u} //nolint:exhaustruct
	}

	results := c.ProcessBatch(t.Context(), zerolog.Nop(), items)
	require.Len(t, results, n)
	assert.LessOrEqual(t, ff.maxInFlight.Load(), int32(4))
	assert.Positive(t, ff.maxInFlight.Load())
	assert.Equal(t, int32(n), ff.calls.Load())

	for i, res := range results {
		assert.Equal(t, i, res.Index)
		if i == 5 {
			require.ErrorIs(t, res.Err, fetcher.ErrDownloadFailed)
			continue
		}
		require.NoError(t, res.Err, i)
		assert.Equal(t, filepath.Join(dir, fmt.Sprintf("Track %02d.m4a", i)), res.Path)
	}
	assert.Len(t, listDir(t, dir), n-1)
}

func TestProcessBatchDuplicateURLsDoNotCollide(t *testing.T) {
	t.Parallel()

	c, dir := newCoordinator(t, pipeline.Deps{ //nolint:exhaustruct
		Fetcher:  &fakeFetcher{delay: 20 * time.Millisecond},                        //nolint:exhaustruct
		Metadata: staticResolver(&metadata.Record{Title: "Same", Artist: "A"}, nil), //nolint:exhaustruct
	})

	items := []pipeline.Item{{Index: 0, URL: urlA}, {Index: 1, URL: urlA}} //nolint:exhaustruct
	results := c.ProcessBatch(t.Context(), zerolog.Nop(), items)
	require.NoError(t, results[0].Err)
	require.NoError(t, results[1].Err)
	assert.NotEqual(t, results[0].Staged, results[1].Staged)
	assert.NotEqual(t, results[0].Path, results[1].Path)

	// One item wins the final name, the other keeps its staged name and says why.
	renamed := lo.Filter(results, func(r pipeline.Result, _ int) bool { return r.Renamed })
	require.Len(t, renamed, 1)
	assert.Equal(t, filepath.Join(dir, "Same.m4a"), renamed[0].Path)
	kept := lo.Filter(results, func(r pipeline.Result, _ int) bool { return !r.Renamed })
	require.Len(t, kept, 1)
	assert.Equal(t, kept[0].Staged, kept[0].Path)
	assert.Len(t, kept[0].Warnings, 1)
	assert.ElementsMatch(t, []string{"Same.m4a", filepath.Base(kept[0].Staged)}, listDir(t, dir))
}

func TestProcessBatchReportsQueuedItems(t *testing.T) {
	t.Parallel()

	obs := &recorder{}                       //nolint:exhaustruct
	c, _ := newCoordinator(t, pipeline.Deps{ //nolint:exhaustruct
		Fetcher:  &fakeFetcher{}, //nolint:exhaustruct
		Metadata: staticResolver(nil, metadata.ErrNoIdentifier),
		Observer: obs,
	})

	items := []pipeline.Item{
		{Index: 0, URL: urlA}, //nolint:exhaustruct
		{Index: 1, URL: urlB, Err: errors.New("list failed")}, //nolint:exhaustruct
	}
	results := c.ProcessBatch(t.Context(), zerolog.Nop(), items)
	require.NoError(t, results[0].Err)
	require.EqualError(t, results[1].Err, "list failed")

	for i := range items {
		stages := obs.Stages(i)
		require.NotEmpty(t, stages)
		assert.Equal(t, pipeline.StageQueued, stages[0])
		assert.True(t, stages[len(stages)-1].Terminal())
	}
}

func TestExpand(t *testing.T) {
	t.Parallel()

	const (
		playlist = "https://www.youtube.com/playlist?list=PL1"
		broken   = "https://www.youtube.com/playlist?list=PL2"
	)
	ff := &fakeFetcher{ //nolint:exhaustruct
		errs: map[string]error{broken: errors.New("private playlist")},
		listings: map[string]*fetcher.Listing{
			playlist: {
				Title: "Mix",
				Entries: []fetcher.Entry{
					{ID: "bbbbbbbbbbb", URL: urlB, Title: "Song B", Uploader: "Artist B - Topic"},
					{ID: "aaaaaaaaaaa", URL: urlA, Title: "Song A", Uploader: "Artist A"},
				},
			},
		},
	}
	c, _ := newCoordinator(t, pipeline.Deps{Fetcher: ff, Metadata: staticResolver(nil, nil)}) //nolint:exhaustruct

	items := c.Expand(t.Context(), zerolog.Nop(), []string{" " + urlA + " ", playlist, "", broken, urlA})
	require.Len(t, items, 3)

	assert.Equal(t, 0, items[0].Index)
	assert.Equal(t, urlA, items[0].URL)
	assert.Empty(t, items[0].Hint.Title)

	assert.Equal(t, 1, items[1].Index)
	assert.Equal(t, urlB, items[1].URL)
	assert.Equal(t, metadata.Hint{Title: "Song B", Artist: "Artist B"}, items[1].Hint)

	assert.Equal(t, 2, items[2].Index)
	assert.Equal(t, broken, items[2].URL)
	require.Error(t, items[2].Err)
	assert.Contains(t, items[2].Err.Error(), "private playlist")
}
