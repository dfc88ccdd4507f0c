package progress

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/xeptore/tunefetch/pipeline"
)

// Log reports pipeline events as log lines, for output that is not a terminal. Download progress
// is logged in quarter steps.
type Log struct {
	logger zerolog.Logger
	mu     sync.Mutex
	steps  map[int]int
}

func NewLog(logger zerolog.Logger) *Log {
	return &Log{
		logger: logger,
		mu:     sync.Mutex{},
		steps:  make(map[int]int),
	}
}

func (l *Log) Observe(e pipeline.Event) {
	logger := l.logger.With().Int("index", e.Index).Str("url", e.URL).Logger()
	if e.TaskID != "" {
		logger = logger.With().Str("task_id", e.TaskID).Logger()
	}

	switch e.Stage {
	case pipeline.StageDownloading:
		if e.Progress.Total == 0 && e.Progress.Percent == 0 {
			logger.Debug().Msg("Download started")
			return
		}
		step := int(e.Progress.Percent) / 25
		if !l.advance(e.Index, step) {
			return
		}
		logger.
			Info().
			Float64("percent", e.Progress.Percent).
			Int64("downloaded", e.Progress.Downloaded).
			Int64("total", e.Progress.Total).
			Dur("eta", e.Progress.ETA).
			Msg("Downloading")
	case pipeline.StageDone:
		logger.Info().Str("title", e.Title).Msg("Item done")
	case pipeline.StageFailed:
		logger.Error().Err(e.Err).Msg("Item failed")
	case pipeline.StageQueued, pipeline.StageDownloaded, pipeline.StageResolving, pipeline.StageTagging:
		logger.Debug().Str("stage", e.Stage.String()).Str("title", e.Title).Msg("Item stage changed")
	}
}

func (l *Log) advance(index, step int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	last, ok := l.steps[index]
	if ok && step <= last {
		return false
	}
	l.steps[index] = step

	return true
}
