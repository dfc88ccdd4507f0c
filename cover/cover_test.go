package cover_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeptore/tunefetch/config"
	"github.com/xeptore/tunefetch/cover"
)

var (
	jpeg = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, make([]byte, 64)...)
	png  = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}, make([]byte, 64)...)
)

func newFetcher(maxSize int64) *cover.Fetcher {
	return cover.New(config.Cover{
		Timeout: config.Duration{Duration: time.Second},
		MaxSize: maxSize,
		Retries: 2,
	}).WithInitialInterval(time.Millisecond)
}

func TestFetch(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		responses []int
		body      []byte
		maxSize   int64
		wantErr   bool
		wantHits  int32
	}{
		{name: "jpeg", responses: []int{http.StatusOK}, body: jpeg, maxSize: 1024, wantHits: 1},
		{name: "retries server errors", responses: []int{http.StatusBadGateway, http.StatusTooManyRequests, http.StatusOK}, body: png, maxSize: 1024, wantHits: 3},
		{name: "gives up after retries", responses: []int{http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway, http.StatusOK}, body: png, maxSize: 1024, wantErr: true, wantHits: 3},
		{name: "not found is permanent", responses: []int{http.StatusNotFound}, maxSize: 1024, wantErr: true, wantHits: 1},
		{name: "not an image", responses: []int{http.StatusOK}, body: []byte("<html><body>nope</body></html>"), maxSize: 1024, wantErr: true, wantHits: 1},
		{name: "too large", responses: []int{http.StatusOK}, body: jpeg, maxSize: 16, wantErr: true, wantHits: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				n := int(hits.Add(1)) - 1
				status := tc.responses[min(n, len(tc.responses)-1)]
				w.WriteHeader(status)
				if status == http.StatusOK {
					_, _ = w.Write(tc.body)
				}
			}))
			t.Cleanup(srv.Close)

			b, err := newFetcher(tc.maxSize).Fetch(context.Background(), zerolog.Nop(), srv.URL+"/cover.jpg")
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.body, b)
			}
			assert.Equal(t, tc.wantHits, hits.Load())
		})
	}
}

func TestMIME(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "image/jpeg", cover.MIME(jpeg))
	assert.Equal(t, "image/png", cover.MIME(png))
	assert.Equal(t, "image/jpeg", cover.MIME([]byte("garbage")))
}
