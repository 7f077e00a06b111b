package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octospacc/Pignio/pkg/media"
)

func serve(t *testing.T, contentType, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func fetcher() Fetcher {
	return media.NewIngestor(media.Options{FetchTimeout: 5 * time.Second})
}

func TestFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("OpenGraphPage", func(t *testing.T) {
		srv := serve(t, "text/html", `<!DOCTYPE html>
<html><head>
<title>Fallback Title</title>
<meta property="og:title" content="A Sunset">
<meta property="og:description" content="Golden hour over the bay.">
<meta property="og:image" content="/media/sunset.jpg">
<meta property="og:image:alt" content="The sun touching the horizon">
<link rel="canonical" href="https://example.com/posts/sunset">
</head><body></body></html>`)

		data, err := Fetch(ctx, fetcher(), srv.URL+"/posts/sunset?utm=x")
		require.NoError(t, err)
		assert.Equal(t, "A Sunset", data.Title)
		assert.Equal(t, "Golden hour over the bay.", data.Description)
		assert.Equal(t, "The sun touching the horizon", data.AltText)
		assert.Equal(t, srv.URL+"/media/sunset.jpg", data.Media[media.KindImage])
		assert.Equal(t, "https://example.com/posts/sunset", data.Link)
	})

	t.Run("TwitterCardFallback", func(t *testing.T) {
		srv := serve(t, "text/html", `<html><head>
<meta name="twitter:title" content="Tweeted">
<meta name="twitter:image" content="https://cdn.example.com/pic.png">
</head></html>`)

		data, err := Fetch(ctx, fetcher(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "Tweeted", data.Title)
		assert.Equal(t, "https://cdn.example.com/pic.png", data.Media[media.KindImage])
		assert.Equal(t, srv.URL, data.Link)
	})

	t.Run("TitleTagFallback", func(t *testing.T) {
		srv := serve(t, "text/html", `<html><head><title>  Plain Page  </title></head></html>`)

		data, err := Fetch(ctx, fetcher(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "Plain Page", data.Title)
	})

	t.Run("FirstMetaWins", func(t *testing.T) {
		srv := serve(t, "text/html", `<html><head>
<meta property="og:title" content="First">
<meta property="og:title" content="Second">
</head></html>`)

		data, err := Fetch(ctx, fetcher(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "First", data.Title)
	})

	t.Run("DirectImage", func(t *testing.T) {
		srv := serve(t, "image/png", "not-really-a-png")

		data, err := Fetch(ctx, fetcher(), srv.URL+"/pic.png")
		require.NoError(t, err)
		assert.Empty(t, data.Title)
		assert.Equal(t, srv.URL+"/pic.png", data.Media[media.KindImage])
		assert.Equal(t, srv.URL+"/pic.png", data.Link)
	})

	t.Run("DirectVideo", func(t *testing.T) {
		srv := serve(t, "video/mp4", "not-really-an-mp4")

		data, err := Fetch(ctx, fetcher(), srv.URL+"/clip.mp4")
		require.NoError(t, err)
		assert.Equal(t, srv.URL+"/clip.mp4", data.Media[media.KindVideo])
	})

	t.Run("FetchFailure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := Fetch(ctx, fetcher(), srv.URL)
		assert.Error(t, err)
	})
}
