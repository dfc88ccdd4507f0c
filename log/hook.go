package log

import (
	"runtime"
	"strings"

	"github.com/rs/zerolog"
)

// stackHook attaches the caller stack to events at error level and above.
type stackHook struct {
	depth int
}

func (h *stackHook) Run(e *zerolog.Event, level zerolog.Level, _ string) {
	if level < zerolog.ErrorLevel || level == zerolog.NoLevel || level == zerolog.Disabled {
		return
	}

	arr := zerolog.Arr()
	for _, f := range callers(5, h.depth) {
		arr.Dict(zerolog.Dict().
			Int("line", f.Line).
			Str("file", f.File).
			Str("function", f.Function),
		)
	}
	e.Array("stack", arr)
}

func callers(skip, depth int) []runtime.Frame {
	pcs := make([]uintptr, depth)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	out := make([]runtime.Frame, 0, n)
	for {
		frame, more := frames.Next()
		// zerolog internals are noise in the stack.
		if !strings.HasPrefix(frame.Function, "github.com/rs/zerolog") {
			out = append(out, frame)
		}
		if !more {
			break
		}
	}

	return out
}
