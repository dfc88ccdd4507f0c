package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/xeptore/tunefetch/pipeline"
)

const messageLength = 48

// Terminal renders one progress bar per item.
type Terminal struct {
	pw       progress.Writer
	mu       sync.Mutex
	trackers map[int]*progress.Tracker
}

func NewTerminal(w io.Writer, expected int) *Terminal {
	pw := progress.NewWriter()
	pw.SetOutputWriter(w)
	pw.SetAutoStop(false)
	pw.SetMessageLength(messageLength)
	pw.SetNumTrackersExpected(expected)
	pw.SetTrackerLength(25)
	pw.SetTrackerPosition(progress.PositionRight)
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Colors = progress.StyleColorsExample
	pw.Style().Options.PercentFormat = "%4.1f%%"
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Percentage = true
	pw.Style().Visibility.Value = false

	return &Terminal{
		pw:       pw,
		mu:       sync.Mutex{},
		trackers: make(map[int]*progress.Tracker),
	}
}

func (t *Terminal) Start() {
	go t.pw.Render()
}

// Stop renders the final state and waits for the renderer to exit.
func (t *Terminal) Stop() {
	time.Sleep(150 * time.Millisecond)
	t.pw.Stop()
	for t.pw.IsRenderInProgress() {
		time.Sleep(10 * time.Millisecond)
	}
}

func (t *Terminal) Observe(e pipeline.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tracker, ok := t.trackers[e.Index]
	if !ok {
		tracker = &progress.Tracker{ //nolint:exhaustruct
			Message: message(e),
			Total:   100,
			Units:   progress.UnitsDefault,
		}
		t.trackers[e.Index] = tracker
		t.pw.AppendTracker(tracker)
	}

	if tracker.IsDone() {
		return
	}

	switch e.Stage {
	case pipeline.StageDownloading:
		if e.Progress.Percent > 0 {
			tracker.SetValue(int64(min(e.Progress.Percent, 99)))
		}
	case pipeline.StageDone:
		tracker.UpdateMessage(message(e))
		tracker.SetValue(100)
		tracker.MarkAsDone()
		return
	case pipeline.StageFailed:
		tracker.UpdateMessage(message(e))
		tracker.MarkAsErrored()
		return
	case pipeline.StageQueued, pipeline.StageDownloaded, pipeline.StageResolving, pipeline.StageTagging:
	}

	tracker.UpdateMessage(message(e))
}

func message(e pipeline.Event) string {
	name := e.Title
	if name == "" {
		name = e.URL
	}

	return text.Trim(fmt.Sprintf("#%d %-11s %s", e.Index+1, e.Stage, name), messageLength)
}
