package progress_test

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/xeptore/tunefetch/fetcher"
	"github.com/xeptore/tunefetch/pipeline"
	"github.com/xeptore/tunefetch/progress"
)

func downloading(index int, percent float64) pipeline.Event {
	return pipeline.Event{ //nolint:exhaustruct
		Index:    index,
		URL:      "https://example.com/x",
		Stage:    pipeline.StageDownloading,
		Progress: fetcher.Progress{Percent: percent, Downloaded: int64(percent), Total: 100}, //nolint:exhaustruct
	}
}

func stage(index int, s pipeline.Stage) pipeline.Event {
	return pipeline.Event{Index: index, Stage: s} //nolint:exhaustruct
}

type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) Observe(pipeline.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
}

func TestMonitor(t *testing.T) {
	t.Parallel()

	inner := &counter{} //nolint:exhaustruct
	m := progress.NewMonitor(4, inner)
	assert.Equal(t, 0, m.Percent())

	m.Observe(downloading(0, 50))
	m.Observe(downloading(0, 20))
	m.Observe(downloading(1, 100))
	assert.Equal(t, 37, m.Percent())

	m.Observe(stage(2, pipeline.StageDone))
	m.Observe(stage(2, pipeline.StageDone))
	m.Observe(stage(3, pipeline.StageFailed))
	m.Observe(stage(9, pipeline.StageDone))
	assert.Equal(t, 1, m.Done())
	assert.Equal(t, 1, m.Failed())
	assert.Equal(t, 87, m.Percent())

	m.Observe(stage(0, pipeline.StageDone))
	m.Observe(stage(1, pipeline.StageDone))
	assert.Equal(t, 100, m.Percent())
	assert.Equal(t, 3, m.Done())
	assert.Equal(t, 9, inner.n)
}

func TestMonitorConcurrent(t *testing.T) {
	t.Parallel()

	m := progress.NewMonitor(8, nil)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Go(func() {
			for p := range 100 {
				m.Observe(downloading(i, float64(p)))
			}
			m.Observe(stage(i, pipeline.StageDone))
		})
	}
	wg.Wait()

	assert.Equal(t, 100, m.Percent())
	assert.Equal(t, 8, m.Done())
}

func TestLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := progress.NewLog(zerolog.New(&buf).Level(zerolog.InfoLevel))

	for _, p := range []float64{1, 10, 26, 30, 51, 99} {
		l.Observe(downloading(0, p))
	}
	l.Observe(pipeline.Event{Index: 0, Stage: pipeline.StageDone, Title: "Song"})             //nolint:exhaustruct
	l.Observe(pipeline.Event{Index: 1, Stage: pipeline.StageFailed, Err: errors.New("boom")}) //nolint:exhaustruct

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)

	percents := make([]float64, 0, 4)
	for _, line := range lines[:4] {
		assert.Equal(t, "Downloading", gjson.Get(line, "message").String())
		percents = append(percents, gjson.Get(line, "percent").Float())
	}
	assert.Equal(t, []float64{1, 26, 51, 99}, percents)

	assert.Equal(t, "Song", gjson.Get(lines[4], "title").String())
	assert.Equal(t, "error", gjson.Get(lines[5], "level").String())
	assert.Equal(t, "boom", gjson.Get(lines[5], "error").String())
	assert.Equal(t, int64(1), gjson.Get(lines[5], "index").Int())
}

func TestTerminal(t *testing.T) {
	t.Parallel()

	var (
		buf bytes.Buffer
		mu  sync.Mutex
	)
	w := writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()

		return buf.Write(p)
	})

	term := progress.NewTerminal(w, 2)
	term.Start()
	term.Observe(downloading(0, 40))
	term.Observe(pipeline.Event{Index: 0, Stage: pipeline.StageDone, Title: "First Song"}) //nolint:exhaustruct
	term.Observe(downloading(0, 10))
	term.Observe(pipeline.Event{Index: 1, Stage: pipeline.StageFailed, URL: "https://example.com/broken"}) //nolint:exhaustruct
	term.Stop()

	mu.Lock()
	defer mu.Unlock()
	out := buf.String()
	assert.Contains(t, out, "First Song")
	assert.Contains(t, out, "example.com/broken")
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) {
	return f(p)
}
