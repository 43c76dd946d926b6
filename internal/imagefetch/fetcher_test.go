package imagefetch

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/lokalapp/notiflow/internal/logging"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFetchAndBlur(t *testing.T) {
	data := pngBytes(t, 60, 30)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/post.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	f := New(WithLogger(logging.Nop()))
	got, err := f.Fetch(context.Background(), srv.URL+"/post.png")
	require.NoError(t, err)
	require.Equal(t, data, got)

	blurred, err := f.FetchBlurred(context.Background(), srv.URL+"/post.png", 20, 3)
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(blurred))
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
	require.Equal(t, 20, cfg.Width)
	require.Equal(t, 10, cfg.Height)

	_, err = f.Fetch(context.Background(), srv.URL+"/missing.png")
	require.Error(t, err)
}

func TestFetchBlurredReusesLastBody(t *testing.T) {
	data := pngBytes(t, 30, 30)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	ctx := context.Background()
	f := New(WithLogger(logging.Nop()))
	_, err := f.Fetch(ctx, srv.URL+"/a.png")
	require.NoError(t, err)
	_, err = f.FetchBlurred(ctx, srv.URL+"/a.png", 20, 3)
	require.NoError(t, err)
	require.EqualValues(t, 1, hits.Load())

	_, err = f.FetchBlurred(ctx, srv.URL+"/b.png", 20, 3)
	require.NoError(t, err)
	require.EqualValues(t, 2, hits.Load())
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	_, err := New(WithMaxBytes(16), WithLogger(logging.Nop())).Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestBlurRejectsGarbage(t *testing.T) {
	_, err := Blur([]byte("not an image"), 20, 3)
	require.Error(t, err)
}
