package infrastructure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/destream-go/internal/domain"
)

const videoDocument = `{
	"id": "abc",
	"name": "Quarterly Review: Q3/2020",
	"publishedDate": "2020-10-01T09:30:00Z",
	"media": {"duration": "PT5M"},
	"playbackUrls": [
		{"mimeType": "application/dash+xml", "playbackUrl": "https://stream.example.com/dash"},
		{"mimeType": "application/vnd.apple.mpegurl", "playbackUrl": "https://stream.example.com/hls"}
	],
	"posterImage": {"medium": {"url": "https://img.example.com/poster.jpg"}}
}`

const textTracks = `{"value": [
	{"language": "it-it", "url": "https://captions.example.com/it.vtt"},
	{"language": "en-us", "url": "https://captions.example.com/en.vtt"}
]}`

func testResolver(dir string, skipExisting bool) (*StreamResolver, *domain.ResolverConfig) {
	rc := &domain.ResolverConfig{Timeout: 5 * time.Second, MaxRetries: 2, RetryDelay: time.Millisecond, CaptionLanguage: "en"}
	dc := &domain.DownloadConfig{Format: "mkv", SecondsPerChunk: 6, SkipExisting: skipExisting}
	return NewStreamResolver(rc, dc, nil), rc
}

func sessionFor(server *httptest.Server) domain.Session {
	return domain.Session{
		AccessToken:       "tok",
		APIGatewayURI:     server.URL + "/api/",
		APIGatewayVersion: "1.4-private",
	}
}

func TestStreamResolver_Resolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "1.4-private", r.URL.Query().Get("api-version"))

		switch r.URL.Path {
		case "/api/videos/abc":
			assert.Equal(t, "creator", r.URL.Query().Get("$expand"))
			w.Write([]byte(videoDocument))
		case "/api/videos/abc/texttracks":
			w.Write([]byte(textTracks))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	resolver, _ := testResolver(dir, false)

	videos, err := resolver.Resolve(context.Background(), []domain.VideoRequest{
		{ID: "abc", OutDir: dir},
		{ID: "abc", OutDir: dir},
	}, sessionFor(server), true)
	require.NoError(t, err)
	require.Len(t, videos, 2)

	v := videos[0]
	assert.Equal(t, "abc", v.ID)
	assert.Equal(t, "Quarterly Review: Q3/2020", v.Title)
	assert.Equal(t, "https://stream.example.com/hls", v.PlaybackURL)
	assert.Equal(t, "https://img.example.com/poster.jpg", v.PosterImageURL)
	assert.Equal(t, "https://captions.example.com/en.vtt", v.CaptionsURL)
	assert.Equal(t, 5*time.Minute, v.Duration)
	assert.Equal(t, 50, v.TotalChunks)
	assert.Equal(t, time.Date(2020, 10, 1, 9, 30, 0, 0, time.UTC), v.PublishDate)
	assert.Equal(t, filepath.Join(dir, "Quarterly Review Q32020.mkv"), v.OutPath)

	// same title in one batch gets a distinct path
	assert.Equal(t, filepath.Join(dir, "Quarterly Review Q32020 (1).mkv"), videos[1].OutPath)
}

func TestStreamResolver_UnknownVideoFailsBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/videos/good" {
			w.Write([]byte(videoDocument))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	resolver, _ := testResolver(t.TempDir(), false)

	videos, err := resolver.Resolve(context.Background(), []domain.VideoRequest{
		{ID: "good", OutDir: t.TempDir()},
		{ID: "missing", OutDir: t.TempDir()},
	}, sessionFor(server), false)

	assert.Nil(t, videos)
	assert.ErrorIs(t, err, domain.ErrInvalidVideo)
	assert.Equal(t, domain.ExitInvalidVideoID, domain.ExitCodeFor(err))
}

func TestStreamResolver_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(videoDocument))
	}))
	defer server.Close()

	resolver, _ := testResolver(t.TempDir(), false)

	videos, err := resolver.Resolve(context.Background(), []domain.VideoRequest{{ID: "abc", OutDir: t.TempDir()}}, sessionFor(server), false)
	require.NoError(t, err)
	assert.Len(t, videos, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestStreamResolver_GivesUpAfterRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	resolver, rc := testResolver(t.TempDir(), false)

	_, err := resolver.Resolve(context.Background(), []domain.VideoRequest{{ID: "abc", OutDir: t.TempDir()}}, sessionFor(server), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, int32(rc.MaxRetries+1), atomic.LoadInt32(&calls))
}

func TestStreamResolver_UnauthorizedIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	resolver, _ := testResolver(t.TempDir(), false)

	_, err := resolver.Resolve(context.Background(), []domain.VideoRequest{{ID: "abc", OutDir: t.TempDir()}}, sessionFor(server), false)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestStreamResolver_ExistingFiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(videoDocument))
	}))
	defer server.Close()

	dir := t.TempDir()
	existing := filepath.Join(dir, "Quarterly Review Q32020.mkv")
	require.NoError(t, os.WriteFile(existing, []byte("done"), 0644))
	requests := []domain.VideoRequest{{ID: "abc", OutDir: dir}}

	// without the skip policy a new name is chosen
	resolver, _ := testResolver(dir, false)
	videos, err := resolver.Resolve(context.Background(), requests, sessionFor(server), false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Quarterly Review Q32020 (1).mkv"), videos[0].OutPath)

	// with it the existing file is targeted so it can be skipped
	resolver, _ = testResolver(dir, true)
	videos, err = resolver.Resolve(context.Background(), requests, sessionFor(server), false)
	require.NoError(t, err)
	assert.Equal(t, existing, videos[0].OutPath)
}

func TestParseVideoMetadata_Errors(t *testing.T) {
	_, err := ParseVideoMetadata("x", []byte(`{"media":{"duration":"PT1M"},"playbackUrls":[]}`), 6)
	assert.ErrorIs(t, err, domain.ErrInvalidVideo)

	_, err = ParseVideoMetadata("x", []byte(`{"media":{"duration":"bogus"},"playbackUrls":[{"mimeType":"application/vnd.apple.mpegurl","playbackUrl":"u"}]}`), 6)
	assert.ErrorIs(t, err, domain.ErrInvalidVideo)

	_, err = ParseVideoMetadata("x", []byte(`not json`), 6)
	assert.ErrorIs(t, err, domain.ErrInvalidVideo)
}

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"PT10S", 10 * time.Second, false},
		{"PT1M30S", 90 * time.Second, false},
		{"PT1H2M3.5S", time.Hour + 2*time.Minute + 3500*time.Millisecond, false},
		{"P1DT1H", 25 * time.Hour, false},
		{"PT0S", 0, false},
		{"PT", 0, true},
		{"", 0, true},
		{"00:05:00", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseISODuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPickCaptionTrack(t *testing.T) {
	assert.Equal(t, "https://captions.example.com/en.vtt", PickCaptionTrack([]byte(textTracks), "EN"))
	assert.Equal(t, "https://captions.example.com/it.vtt", PickCaptionTrack([]byte(textTracks), ""))
	assert.Equal(t, "https://captions.example.com/it.vtt", PickCaptionTrack([]byte(textTracks), "fr"))
	assert.Equal(t, "", PickCaptionTrack([]byte(`{"value":[]}`), "en"))
}

func TestAPIURL(t *testing.T) {
	s := domain.Session{APIGatewayURI: "https://api.example.com/api/", APIGatewayVersion: "1.4-private"}

	assert.Equal(t, "https://api.example.com/api/videos/x?$expand=creator&api-version=1.4-private", APIURL(s, "videos/x?$expand=creator"))
	assert.Equal(t, "https://api.example.com/api/videos/x/texttracks?api-version=1.4-private", APIURL(s, "/videos/x/texttracks"))
}

func TestSanitizeTitle(t *testing.T) {
	assert.Equal(t, "Review Q32020", SanitizeTitle(`Review: Q3/2020`))
	assert.Equal(t, "a b", SanitizeTitle("  a \t b ..."))
	assert.Equal(t, "", SanitizeTitle(`<>:"/\|?*`))
}
