package metadata

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Field string

const (
	FieldTitle         Field = "title"
	FieldArtist        Field = "artist"
	FieldAlbum         Field = "album"
	FieldAlbumArtist   Field = "album_artist"
	FieldGenre         Field = "genre"
	FieldYear          Field = "year"
	FieldTrackNumber   Field = "track_number"
	FieldDiskNumber    Field = "disk_number"
	FieldComposer      Field = "composer"
	FieldCoverImageURL Field = "cover_image_url"
	FieldDuration      Field = "duration"
	FieldPopularity    Field = "popularity"
)

var Fields = []Field{
	FieldTitle,
	FieldArtist,
	FieldAlbum,
	FieldAlbumArtist,
	FieldGenre,
	FieldYear,
	FieldTrackNumber,
	FieldDiskNumber,
	FieldComposer,
	FieldCoverImageURL,
	FieldDuration,
	FieldPopularity,
}

var ErrUnknownField = errors.New("unknown field")

func ParseFields(names []string) ([]Field, error) {
	out := make([]Field, 0, len(names))
	for _, n := range names {
		f := Field(strings.ToLower(strings.TrimSpace(n)))
		if !f.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, n)
		}
		out = append(out, f)
	}

	return out, nil
}

func (f Field) Valid() bool {
	return slices.Contains(Fields, f)
}

// ProviderName identifies where a field value came from.
type ProviderName string

const (
	ProviderHint ProviderName = "hint"
)

// Record is a metadata record where every field is optional. A field counts as missing when it
// is zero, blank, or one of the placeholder values "Unknown" and "N/A".
type Record struct {
	Title         string
	Artist        string
	Album         string
	AlbumArtist   string
	Genre         string
	Year          int
	TrackNumber   int
	DiskNumber    int
	Composer      string
	CoverImageURL string
	Duration      time.Duration
	Popularity    int

	// Provider is credited for fields it holds that have no explicit origin.
	Provider ProviderName

	origins map[Field]ProviderName
}

func (r *Record) Get(f Field) string {
	switch f {
	case FieldTitle:
		return r.Title
	case FieldArtist:
		return r.Artist
	case FieldAlbum:
		return r.Album
	case FieldAlbumArtist:
		return r.AlbumArtist
	case FieldGenre:
		return r.Genre
	case FieldYear:
		return itoa(r.Year)
	case FieldTrackNumber:
		return itoa(r.TrackNumber)
	case FieldDiskNumber:
		return itoa(r.DiskNumber)
	case FieldComposer:
		return r.Composer
	case FieldCoverImageURL:
		return r.CoverImageURL
	case FieldDuration:
		if r.Duration <= 0 {
			return ""
		}
		return strconv.FormatInt(int64(r.Duration/time.Second), 10)
	case FieldPopularity:
		return itoa(r.Popularity)
	default:
		return ""
	}
}

func itoa(n int) string {
	if n <= 0 {
		return ""
	}

	return strconv.Itoa(n)
}

var leadingYear = regexp.MustCompile(`^\s*(\d{4})`)

// Set assigns a field from its textual form. Numeric fields accept a leading number, so "3/12"
// sets track 3 and "2019-05-01T00:00:00Z" sets year 2019. Durations are seconds or Go durations.
func (r *Record) Set(f Field, value string) error {
	value = strings.TrimSpace(value)
	switch f {
	case FieldTitle:
		r.Title = value
	case FieldArtist:
		r.Artist = value
	case FieldAlbum:
		r.Album = value
	case FieldAlbumArtist:
		r.AlbumArtist = value
	case FieldGenre:
		r.Genre = value
	case FieldComposer:
		r.Composer = value
	case FieldCoverImageURL:
		r.CoverImageURL = value
	case FieldYear:
		if value == "" {
			r.Year = 0
			return nil
		}
		m := leadingYear.FindStringSubmatch(value)
		if nil == m {
			return fmt.Errorf("invalid year %q", value)
		}
		r.Year, _ = strconv.Atoi(m[1])
	case FieldTrackNumber, FieldDiskNumber, FieldPopularity:
		n, err := leadingInt(value)
		if nil != err {
			return fmt.Errorf("invalid %s %q: %v", f, value, err)
		}
		switch f {
		case FieldTrackNumber:
			r.TrackNumber = n
		case FieldDiskNumber:
			r.DiskNumber = n
		default:
			r.Popularity = n
		}
	case FieldDuration:
		if value == "" {
			r.Duration = 0
			return nil
		}
		if secs, err := strconv.ParseFloat(value, 64); nil == err {
			r.Duration = time.Duration(secs * float64(time.Second))
			return nil
		}
		d, err := time.ParseDuration(value)
		if nil != err {
			return fmt.Errorf("invalid duration %q: %v", value, err)
		}
		r.Duration = d
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, f)
	}

	return nil
}

func leadingInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}

	end := strings.IndexFunc(s, func(c rune) bool { return c < '0' || c > '9' })
	if end == 0 {
		return 0, errors.New("no leading digits")
	}
	if end > 0 {
		s = s[:end]
	}

	return strconv.Atoi(s)
}

func (r *Record) IsMissing(f Field) bool {
	v := strings.TrimSpace(r.Get(f))

	return v == "" || strings.EqualFold(v, "unknown") || strings.EqualFold(v, "n/a")
}

func (r *Record) Missing(fields []Field) []Field {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		if r.IsMissing(f) {
			out = append(out, f)
		}
	}

	return out
}

func (r *Record) IsEmpty() bool {
	return len(r.Missing(Fields)) == len(Fields)
}

// Origin reports which provider supplied f, or "" when f is missing.
func (r *Record) Origin(f Field) ProviderName {
	if r.IsMissing(f) {
		return ""
	}

	if o, ok := r.origins[f]; ok {
		return o
	}

	return r.Provider
}

func (r *Record) copyField(other *Record, f Field) {
	// Values read through Get are always valid input for Set.
	_ = r.Set(f, other.Get(f))
	if f == FieldDuration {
		r.Duration = other.Duration
	}

	if nil == r.origins {
		r.origins = make(map[Field]ProviderName, len(Fields))
	}
	r.origins[f] = other.Origin(f)
}

// Fill copies fields of other into fields missing in r and returns the fields it changed.
func (r *Record) Fill(other *Record) []Field {
	if nil == other {
		return nil
	}

	var filled []Field
	for _, f := range Fields {
		if r.IsMissing(f) && !other.IsMissing(f) {
			r.copyField(other, f)
			filled = append(filled, f)
		}
	}

	return filled
}

// Complete is Fill restricted to allowed.
func (r *Record) Complete(other *Record, allowed []Field) []Field {
	if nil == other {
		return nil
	}

	var filled []Field
	for _, f := range allowed {
		if r.IsMissing(f) && !other.IsMissing(f) {
			r.copyField(other, f)
			filled = append(filled, f)
		}
	}

	return filled
}

func (r *Record) Clone() *Record {
	c := *r
	c.origins = maps.Clone(r.origins)

	return &c
}

func (r *Record) ToDict() *zerolog.Event {
	d := zerolog.Dict()
	for _, f := range Fields {
		if !r.IsMissing(f) {
			d.Str(string(f), r.Get(f))
		}
	}

	return d
}
