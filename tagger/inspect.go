package tagger

import (
	"errors"
	"fmt"
	"os"

	"github.com/dhowden/tag"
)

// Summary is what Inspect reads back from a tagged file, together with the audio stream
// properties.
type Summary struct {
	Path        string
	Format      string
	FileType    string
	Title       string
	Artist      string
	Album       string
	AlbumArtist string
	Composer    string
	Genre       string
	Year        int
	Track       int
	Disc        int
	PictureMIME string
	PictureSize int
	LyricsChars int
	Stream      Stream
	// StreamErr is set when the tags were readable but the audio stream was not.
	StreamErr error
}

func Inspect(path string) (s *Summary, err error) {
	f, err := os.Open(path)
	if nil != err {
		return nil, fmt.Errorf("open file: %v", err)
	}
	defer func() {
		if closeErr := f.Close(); nil != closeErr {
			err = errors.Join(err, fmt.Errorf("close file: %v", closeErr))
		}
	}()

	m, err := tag.ReadFrom(f)
	if nil != err {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return nil, fmt.Errorf("%w: no tags found", ErrUnsupportedFormat)
		}

		return nil, fmt.Errorf("read tags: %v", err)
	}

	track, _ := m.Track()
	disc, _ := m.Disc()
	s = &Summary{
		Path:        path,
		Format:      string(m.Format()),
		FileType:    string(m.FileType()),
		Title:       m.Title(),
		Artist:      m.Artist(),
		Album:       m.Album(),
		AlbumArtist: m.AlbumArtist(),
		Composer:    m.Composer(),
		Genre:       m.Genre(),
		Year:        m.Year(),
		Track:       track,
		Disc:        disc,
		PictureMIME: "",
		PictureSize: 0,
		LyricsChars: len([]rune(m.Lyrics())),
		Stream:      Stream{}, //nolint:exhaustruct
		StreamErr:   nil,
	}

	if p := m.Picture(); nil != p {
		s.PictureMIME = p.MIMEType
		s.PictureSize = len(p.Data)
	}

	switch m.Format() {
	case tag.MP4:
		s.Stream, s.StreamErr = readMP4Stream(f)
	case tag.ID3v1, tag.ID3v2_2, tag.ID3v2_3, tag.ID3v2_4:
		if m.FileType() == tag.MP3 {
			s.Stream, s.StreamErr = readMP3Stream(f)
		}
	default:
		s.StreamErr = fmt.Errorf("%w: no stream reader for %s", ErrUnsupportedFormat, m.FileType())
	}

	return s, nil
}
