package pipeline

import (
	"github.com/xeptore/tunefetch/fetcher"
)

type Stage int

const (
	StageQueued Stage = iota
	StageDownloading
	StageDownloaded
	StageResolving
	StageTagging
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageQueued:
		return "queued"
	case StageDownloading:
		return "downloading"
	case StageDownloaded:
		return "downloaded"
	case StageResolving:
		return "resolving"
	case StageTagging:
		return "tagging"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further events follow s for the same item.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

type Event struct {
	Index    int
	URL      string
	TaskID   string
	Stage    Stage
	Progress fetcher.Progress
	// Title is the best known title at the time of the event, possibly empty.
	Title string
	Err   error
}

// Observer receives pipeline events. Implementations are called from several goroutines at once.
type Observer interface {
	Observe(e Event)
}

type nopObserver struct{}

func (nopObserver) Observe(Event) {}
