package tagger

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xeptore/tunefetch/metadata"
)

var ErrUnsupportedFormat = errors.New("unsupported tag container")

// Writer embeds metadata, cover art and lyrics into audio files, choosing the tag container
// from the file extension.
type Writer struct{}

func New() *Writer {
	return &Writer{}
}

// Supported reports whether path has an extension Write can handle.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".m4a":
		return true
	default:
		return false
	}
}

// Write replaces the tags present in rec, the front cover when cover is non-empty, and the
// lyrics when lyrics is non-empty. Tags rec does not carry are left as they are. Writing the same
// inputs twice yields the same set of frames.
func (w *Writer) Write(path string, rec *metadata.Record, cover []byte, lyrics string) error {
	if nil == rec {
		rec = &metadata.Record{} //nolint:exhaustruct
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		if err := writeID3(path, rec, cover, lyrics); nil != err {
			return fmt.Errorf("failed to write id3 tags: %w", err)
		}
	case ".m4a":
		if err := writeMP4(path, rec, cover, lyrics); nil != err {
			return fmt.Errorf("failed to write mp4 tags: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	return nil
}
