package tagger

import (
	"errors"
	"fmt"

	"github.com/zhaarey/go-mp4tag"

	"github.com/xeptore/tunefetch/cover"
	"github.com/xeptore/tunefetch/metadata"
)

// BuildMP4Tags maps a record to MP4 atoms. The returned delete list clears existing pictures
// when a new cover is written.
func BuildMP4Tags(rec *metadata.Record, coverData []byte, lyrics string) (*mp4tag.MP4Tags, []string) {
	text := func(f metadata.Field) string {
		if rec.IsMissing(f) {
			return ""
		}

		return rec.Get(f)
	}

	t := &mp4tag.MP4Tags{ //nolint:exhaustruct
		Title:       text(metadata.FieldTitle),
		Artist:      text(metadata.FieldArtist),
		Album:       text(metadata.FieldAlbum),
		AlbumArtist: text(metadata.FieldAlbumArtist),
		CustomGenre: text(metadata.FieldGenre),
		Composer:    text(metadata.FieldComposer),
		Lyrics:      lyrics,
	}

	// A numeric ©day reads back as Year, which the library prefers over Date on write.
	if !rec.IsMissing(metadata.FieldYear) {
		t.Year = int32(min(rec.Year, 1<<31-1)) //nolint:gosec
	}

	if rec.TrackNumber > 0 {
		t.TrackNumber = int16(min(rec.TrackNumber, 1<<15-1)) //nolint:gosec
	}

	if rec.DiskNumber > 0 {
		t.DiscNumber = int16(min(rec.DiskNumber, 1<<15-1)) //nolint:gosec
	}

	var del []string
	if len(coverData) > 0 {
		format := mp4tag.ImageTypeJPEG
		if cover.MIME(coverData) == "image/png" {
			format = mp4tag.ImageTypePNG
		}
		t.Pictures = []*mp4tag.MP4Picture{{Format: format, Data: coverData}}
		del = append(del, "allpictures")
	}

	return t, del
}

func writeMP4(path string, rec *metadata.Record, coverData []byte, lyrics string) (err error) {
	mp4, err := mp4tag.Open(path)
	if nil != err {
		return fmt.Errorf("open file: %v", err)
	}
	defer func() {
		if closeErr := mp4.Close(); nil != closeErr {
			err = errors.Join(err, fmt.Errorf("close file: %v", closeErr))
		}
	}()

	tags, del := BuildMP4Tags(rec, coverData, lyrics)
	if err := mp4.Write(tags, del); nil != err {
		return fmt.Errorf("write tags: %v", err)
	}

	return nil
}
