package progress

import (
	"sync/atomic"

	"github.com/xeptore/tunefetch/mathutil"
	"github.com/xeptore/tunefetch/pipeline"
)

// Monitor aggregates progress over a fixed number of items. Finished items count as complete
// whether they succeeded or not.
type Monitor struct {
	items    []atomic.Int64
	done     atomic.Int64
	failed   atomic.Int64
	inner    pipeline.Observer
	finished []atomic.Bool
}

// NewMonitor returns a monitor for size items that forwards every event to inner, if set.
func NewMonitor(size int, inner pipeline.Observer) *Monitor {
	return &Monitor{
		items:    make([]atomic.Int64, size),
		done:     atomic.Int64{},
		failed:   atomic.Int64{},
		inner:    inner,
		finished: make([]atomic.Bool, size),
	}
}

func (m *Monitor) Observe(e pipeline.Event) {
	if e.Index >= 0 && e.Index < len(m.items) {
		switch e.Stage {
		case pipeline.StageDownloading:
			p := min(int64(e.Progress.Percent), 99)
			for {
				cur := m.items[e.Index].Load()
				if p <= cur || m.items[e.Index].CompareAndSwap(cur, p) {
					break
				}
			}
		case pipeline.StageDone, pipeline.StageFailed:
			if m.finished[e.Index].CompareAndSwap(false, true) {
				m.items[e.Index].Store(100)
				if e.Stage == pipeline.StageDone {
					m.done.Add(1)
				} else {
					m.failed.Add(1)
				}
			}
		case pipeline.StageQueued, pipeline.StageDownloaded, pipeline.StageResolving, pipeline.StageTagging:
		}
	}

	if nil != m.inner {
		m.inner.Observe(e)
	}
}

func (m *Monitor) Percent() int {
	if len(m.items) == 0 {
		return 100
	}

	var sum int64
	for i := range m.items {
		sum += m.items[i].Load()
	}

	return mathutil.Percent(sum, int64(len(m.items))*100)
}

func (m *Monitor) Done() int {
	return int(m.done.Load())
}

func (m *Monitor) Failed() int {
	return int(m.failed.Load())
}
