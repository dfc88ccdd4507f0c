package itunes_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeptore/tunefetch/httputil"
	"github.com/xeptore/tunefetch/metadata"
	"github.com/xeptore/tunefetch/metadata/itunes"
)

const searchBody = `{
  "resultCount": 1,
  "results": [{
    "trackName": "Song Name",
    "artistName": "Some Artist",
    "collectionName": "The Album",
    "releaseDate": "2019-05-01T07:00:00Z",
    "trackNumber": 3,
    "discNumber": 1,
    "primaryGenreName": "Pop",
    "artworkUrl100": "https://is1-ssl.mzstatic.com/image/thumb/x/100x100bb.jpg",
    "trackTimeMillis": 212000
  }]
}`

func newProvider(t *testing.T, handler http.HandlerFunc) *itunes.Provider {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := httputil.NewClient(nil, time.Second, httputil.WithRetries(0, time.Millisecond))

	return itunes.NewWithClient(client, srv.URL, "US")
}

func TestLookup(t *testing.T) {
	t.Parallel()

	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Song Name Some Artist", r.URL.Query().Get("term"))
		assert.Equal(t, "song", r.URL.Query().Get("entity"))
		assert.Equal(t, "US", r.URL.Query().Get("country"))
		_, _ = w.Write([]byte(searchBody))
	})

	res := p.Lookup(context.Background(), zerolog.Nop(), metadata.Query{Title: "Song Name", Artist: "Some Artist"}) //nolint:exhaustruct
	require.True(t, res.IsOk())

	rec := res.Unwrap()
	assert.Equal(t, "The Album", rec.Album)
	assert.Equal(t, "Some Artist", rec.AlbumArtist)
	assert.Equal(t, 2019, rec.Year)
	assert.Equal(t, 3, rec.TrackNumber)
	assert.Equal(t, 1, rec.DiskNumber)
	assert.Equal(t, "Pop", rec.Genre)
	assert.Equal(t, "https://is1-ssl.mzstatic.com/image/thumb/x/600x600bb.jpg", rec.CoverImageURL)
	assert.Equal(t, 212*time.Second, rec.Duration)
	assert.Equal(t, itunes.Name, rec.Origin(metadata.FieldAlbum))
}

func TestLookupOutcomes(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		status  int
		body    string
		query   metadata.Query
		wantOk  bool
		wantErr bool
	}{
		{name: "no results", status: http.StatusOK, body: `{"resultCount":0,"results":[]}`, query: metadata.Query{Title: "x"}}, //nolint:exhaustruct
		{name: "server error", status: http.StatusInternalServerError, query: metadata.Query{Title: "x"}, wantErr: true},       //nolint:exhaustruct
		{name: "malformed", status: http.StatusOK, body: `{"results":`, query: metadata.Query{Title: "x"}, wantErr: true},      //nolint:exhaustruct
		{name: "empty query", status: http.StatusOK, body: searchBody, query: metadata.Query{}},                                //nolint:exhaustruct
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			res := p.Lookup(context.Background(), zerolog.Nop(), tc.query)
			assert.Equal(t, tc.wantErr, res.IsFailed())
			assert.Equal(t, tc.wantOk, res.IsOk())
		})
	}
}
