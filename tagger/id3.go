package tagger

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/bogem/id3v2/v2"

	"github.com/xeptore/tunefetch/cover"
	"github.com/xeptore/tunefetch/metadata"
)

// id3Frames maps record fields to ID3v2.3 text frames.
var id3Frames = []struct {
	id    string
	field metadata.Field
}{
	{id: "TIT2", field: metadata.FieldTitle},
	{id: "TPE1", field: metadata.FieldArtist},
	{id: "TALB", field: metadata.FieldAlbum},
	{id: "TPE2", field: metadata.FieldAlbumArtist},
	{id: "TCON", field: metadata.FieldGenre},
	{id: "TYER", field: metadata.FieldYear},
	{id: "TRCK", field: metadata.FieldTrackNumber},
	{id: "TPOS", field: metadata.FieldDiskNumber},
	{id: "TCOM", field: metadata.FieldComposer},
}

func writeID3(path string, rec *metadata.Record, coverData []byte, lyrics string) (err error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true}) //nolint:exhaustruct
	if nil != err {
		return fmt.Errorf("open file: %v", err)
	}
	defer func() {
		if closeErr := tag.Close(); nil != closeErr {
			err = errors.Join(err, fmt.Errorf("close file: %v", closeErr))
		}
	}()

	tag.SetVersion(3)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	enc := tag.DefaultEncoding()

	for _, f := range id3Frames {
		if rec.IsMissing(f.field) {
			continue
		}
		tag.DeleteFrames(f.id)
		tag.AddTextFrame(f.id, enc, rec.Get(f.field))
	}

	if rec.Duration > 0 {
		tag.DeleteFrames("TLEN")
		tag.AddTextFrame("TLEN", enc, strconv.FormatInt(rec.Duration.Milliseconds(), 10))
	}

	if len(coverData) > 0 {
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    enc,
			MimeType:    cover.MIME(coverData),
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     coverData,
		})
	}

	if lyrics != "" {
		tag.DeleteFrames(tag.CommonID("Unsynchronised lyrics/text transcription"))
		tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
			Encoding:          enc,
			Language:          "eng",
			ContentDescriptor: "",
			Lyrics:            lyrics,
		})
	}

	if err := tag.Save(); nil != err {
		return fmt.Errorf("save tags: %v", err)
	}

	return nil
}
