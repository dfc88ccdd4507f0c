package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxNameBytes = 200

type DownloadDir string

func DownloadDirFrom(d string) DownloadDir {
	return DownloadDir(d)
}

func (dir DownloadDir) Ensure() error {
	if err := os.MkdirAll(dir.path(), 0o0755); nil != err {
		return fmt.Errorf("failed to create download directory: %v", err)
	}

	return nil
}

// Staging returns the yt-dlp output template for a task. The task id keeps concurrent downloads
// of the same video apart.
func (dir DownloadDir) Staging(videoID, taskID string) string {
	if videoID == "" {
		videoID = "item"
	}
	if len(taskID) > 8 {
		taskID = taskID[:8]
	}

	return filepath.Join(dir.path(), Sanitize(videoID)+"."+taskID+".%(ext)s")
}

// Final returns the path a downloaded file should end up at given its title.
func (dir DownloadDir) Final(title, ext string) (string, bool) {
	name := Sanitize(title)
	if name == "" {
		return "", false
	}

	if ext != "" {
		name += "." + strings.TrimPrefix(ext, ".")
	}

	return filepath.Join(dir.path(), name), true
}

func (dir DownloadDir) path() string {
	return string(dir)
}

// Sanitize makes title usable as a file name: characters reserved on common file systems and
// control characters are dropped, whitespace is collapsed, and leading or trailing dots and spaces
// are trimmed.
func Sanitize(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	space := false
	for _, r := range title {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case strings.ContainsRune(`<>:"/\|?*`, r), unicode.IsControl(r), r == utf8.RuneError:
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}

	name := strings.Trim(b.String(), ". ")
	for len(name) > maxNameBytes {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}

	return strings.Trim(name, ". ")
}

// ErrTargetExists reports that Finalize found a file already at the target path. It matches
// os.ErrExist.
var ErrTargetExists = fmt.Errorf("target file already exists: %w", os.ErrExist)

// Finalize moves staged to target without ever replacing an existing file. On success exactly
// one of the two paths exists. On failure, including when target is taken, staged is left in
// place.
func Finalize(staged, target string) error {
	if staged == target {
		return nil
	}

	if err := move(staged, target); nil != err {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrTargetExists, target)
		}

		return err
	}

	return nil
}

func move(staged, target string) error {
	if err := os.Link(staged, target); nil != err {
		if errors.Is(err, os.ErrExist) {
			return os.ErrExist
		}

		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to link staged file: %w", err)
		}

		// Hard links are not supported everywhere.
		return renameNoClobber(staged, target)
	}

	if err := os.Remove(staged); nil != err {
		if undoErr := os.Remove(target); nil != undoErr {
			return errors.Join(
				fmt.Errorf("failed to remove staged file: %v", err),
				fmt.Errorf("failed to undo link: %v", undoErr),
			)
		}

		return fmt.Errorf("failed to remove staged file: %v", err)
	}

	return nil
}

func renameNoClobber(staged, target string) error {
	if _, err := os.Lstat(target); nil == err {
		return os.ErrExist
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat target: %v", err)
	}

	if err := os.Rename(staged, target); nil != err {
		return fmt.Errorf("failed to rename staged file: %v", err)
	}

	return nil
}

func FileExists(path string) (bool, error) {
	if _, err := os.Stat(path); nil != err {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("failed to stat file: %v", err)
	}

	return true, nil
}
