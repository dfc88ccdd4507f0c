package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/xeptore/tunefetch/config"
	"github.com/xeptore/tunefetch/constants"
	"github.com/xeptore/tunefetch/must"
)

func FromConfig(conf config.Log) zerolog.Logger {
	logger, err := New(os.Stderr, conf.Format, conf.Level)
	must.NilErr(err)

	return logger
}

func NewDefault() zerolog.Logger {
	return build(console(os.Stderr), zerolog.InfoLevel)
}

// New builds a logger writing to w. format is either json or pretty.
func New(w io.Writer, format, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if nil != err {
		return zerolog.Nop(), fmt.Errorf("invalid logging level: %s", level)
	}

	switch strings.ToLower(format) {
	case "json":
		return build(w, lvl), nil
	case "pretty":
		return build(console(w), lvl), nil
	default:
		return zerolog.Nop(), fmt.Errorf("invalid logging format: %s", format)
	}
}

func console(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{ //nolint:exhaustruct
		Out:          w,
		TimeFormat:   time.RFC3339,
		TimeLocation: time.UTC,
	}
}

func build(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.
		New(w).
		Hook(&stackHook{depth: 12}).
		With().
		Timestamp().
		Str("version", constants.Version).
		Str("compile_time", constants.CompileTime).
		Logger().
		Level(level)
}
