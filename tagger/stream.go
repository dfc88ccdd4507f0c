package tagger

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/abema/go-mp4"
	"github.com/tcolgate/mp3"
)

// Stream holds the audio properties read from the file itself. Zero values mean unknown.
type Stream struct {
	Codec string
	// Bitrate in kb/s, averaged over the whole stream.
	Bitrate    float64
	SampleRate int
	Channels   int
	// BitDepth is only set by containers that declare one.
	BitDepth int
}

var errNoAudio = errors.New("no audio stream found")

// String renders the known properties, e.g. "AAC-LC, 128 kb/s, 44.1 kHz, Stereo, 16-bit".
func (s Stream) String() string {
	parts := make([]string, 0, 5)
	if s.Codec != "" {
		parts = append(parts, s.Codec)
	}
	if s.Bitrate > 0 {
		parts = append(parts, strconv.FormatFloat(s.Bitrate, 'f', 0, 64)+" kb/s")
	}
	if s.SampleRate > 0 {
		parts = append(parts, strconv.FormatFloat(float64(s.SampleRate)/1000, 'f', -1, 64)+" kHz")
	}
	if layout := ChannelLayout(s.Channels); layout != "" {
		parts = append(parts, layout)
	}
	if s.BitDepth > 0 {
		parts = append(parts, strconv.Itoa(s.BitDepth)+"-bit")
	}

	if len(parts) == 0 {
		return "-"
	}

	return strings.Join(parts, ", ")
}

func ChannelLayout(channels int) string {
	switch {
	case channels <= 0:
		return ""
	case channels == 1:
		return "Mono"
	case channels == 2:
		return "Stereo"
	default:
		return strconv.Itoa(channels) + " channels"
	}
}

func readMP3Stream(r io.ReadSeeker) (Stream, error) {
	offset, err := id3v2End(r)
	if nil != err {
		return Stream{}, err
	}
	if _, err := r.Seek(offset, io.SeekStart); nil != err {
		return Stream{}, fmt.Errorf("seek to audio: %v", err)
	}

	var (
		s       Stream
		f       mp3.Frame
		skipped int
		frames  int
		kbps    float64
	)
	d := mp3.NewDecoder(r)
	for {
		if err := d.Decode(&f, &skipped); nil != err {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}

			return Stream{}, fmt.Errorf("decode frame: %v", err)
		}

		h := f.Header()
		if frames == 0 {
			s.Codec = mpegCodec(h.Layer())
			s.SampleRate = int(h.SampleRate())
			s.Channels = 2
			if h.ChannelMode() == mp3.SingleChannel {
				s.Channels = 1
			}
		}
		frames++
		kbps += float64(h.BitRate()) / 1000
	}

	if frames == 0 {
		return Stream{}, errNoAudio
	}
	s.Bitrate = kbps / float64(frames)

	return s, nil
}

// id3v2End returns the offset of the first byte after a leading ID3v2 tag, or 0 when there is
// none. Picture data inside the tag can look like frame sync, so the decoder must not see it.
func id3v2End(r io.ReadSeeker) (int64, error) {
	if _, err := r.Seek(0, io.SeekStart); nil != err {
		return 0, fmt.Errorf("seek to start: %v", err)
	}

	var h [10]byte
	if _, err := io.ReadFull(r, h[:]); nil != err {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil
		}

		return 0, fmt.Errorf("read tag header: %v", err)
	}
	if string(h[:3]) != "ID3" {
		return 0, nil
	}

	size := int64(h[6]&0x7f)<<21 | int64(h[7]&0x7f)<<14 | int64(h[8]&0x7f)<<7 | int64(h[9]&0x7f)
	size += int64(len(h))
	if h[5]&0x10 != 0 {
		// Footer present.
		size += int64(len(h))
	}

	return size, nil
}

func mpegCodec(layer mp3.FrameLayer) string {
	switch layer {
	case mp3.Layer1:
		return "MP1"
	case mp3.Layer2:
		return "MP2"
	default:
		return "MP3"
	}
}

func readMP4Stream(r io.ReadSeeker) (Stream, error) {
	if _, err := r.Seek(0, io.SeekStart); nil != err {
		return Stream{}, fmt.Errorf("seek to start: %v", err)
	}

	info, err := mp4.Probe(r)
	if nil != err {
		return Stream{}, fmt.Errorf("probe container: %v", err)
	}

	var track *mp4.Track
	for _, t := range info.Tracks {
		if t.Codec == mp4.CodecMP4A {
			track = t
			break
		}
	}
	if nil == track {
		return Stream{}, errNoAudio
	}

	s := Stream{
		Codec:      "mp4a",
		Bitrate:    float64(track.Samples.GetBitrate(track.Timescale)) / 1000,
		SampleRate: int(track.Timescale),
		Channels:   0,
		BitDepth:   0,
	}
	if nil != track.MP4A {
		s.Codec = mp4aCodec(track.MP4A)
		s.Channels = int(track.MP4A.ChannelCount)
	}

	entries, err := mp4.ExtractBoxWithPayload(r, nil, mp4.BoxPath{
		mp4.BoxTypeMoov(),
		mp4.BoxTypeTrak(),
		mp4.BoxTypeMdia(),
		mp4.BoxTypeMinf(),
		mp4.BoxTypeStbl(),
		mp4.BoxTypeStsd(),
		mp4.BoxTypeMp4a(),
	})
	if nil != err {
		return Stream{}, fmt.Errorf("read sample entry: %v", err)
	}
	if len(entries) > 0 {
		if ase, ok := entries[0].Payload.(*mp4.AudioSampleEntry); ok {
			s.BitDepth = int(ase.SampleSize)
			if s.Channels == 0 {
				s.Channels = int(ase.ChannelCount)
			}
			// 16.16 fixed point. Writers leave it zero for rates above 65535 Hz and the media
			// timescale stands.
			if rate := ase.GetSampleRateInt(); rate > 0 {
				s.SampleRate = int(rate)
			}
		}
	}

	return s, nil
}

func mp4aCodec(info *mp4.MP4AInfo) string {
	switch info.OTI {
	case 0x40:
		switch info.AudOTI {
		case 2:
			return "AAC-LC"
		case 5:
			return "HE-AAC"
		case 29:
			return "HE-AACv2"
		default:
			return "AAC"
		}
	case 0x69, 0x6b:
		return "MP3"
	default:
		return "mp4a"
	}
}
