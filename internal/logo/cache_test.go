package logo

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 50, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "eth_0xabc.png", FileName("eth:0xabc"))
	assert.Equal(t, "sol_a_b.png", FileName("sol:a/b"))
}

func TestResize_KeepsAspect(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 50))
	for x := 0; x < 100; x++ {
		for y := 0; y < 50; y++ {
			src.Set(x, y, color.White)
		}
	}
	dst := Resize(src, Size)
	assert.Equal(t, image.Rect(0, 0, Size, Size), dst.Bounds())

	// Top row stays transparent, the middle row is painted.
	_, _, _, a := dst.At(Size/2, 0).RGBA()
	assert.Zero(t, a)
	_, _, _, a = dst.At(Size/2, Size/2).RGBA()
	assert.NotZero(t, a)
}

func TestFetchMissing_DownloadsAndCaches(t *testing.T) {
	body := pngBytes(t, 64, 64)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/broken.png" {
			_, _ = w.Write([]byte("not an image"))
			return
		}
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := NewCache(dir)
	urls := map[string]string{
		"eth:0xa": srv.URL + "/a.png",
		"eth:0xb": srv.URL + "/b.png",
		"eth:0xc": srv.URL + "/broken.png",
		"eth:0xd": "",
	}

	added, err := c.FetchMissing(context.Background(), urls)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"eth:0xa", "eth:0xb"}, added)
	assert.Equal(t, int32(3), hits.Load())

	img, ok := c.Get("eth:0xa")
	require.True(t, ok)
	assert.Equal(t, Size, img.Bounds().Dx())
	_, err = os.Stat(filepath.Join(dir, "eth_0xa.png"))
	assert.NoError(t, err)

	_, ok = c.Get("eth:0xc")
	assert.False(t, ok)

	// Cached and recently failed keys are not requested again.
	added, err = c.FetchMissing(context.Background(), urls)
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Equal(t, int32(3), hits.Load())
}

func TestGet_LoadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bsc_0xf.png"), pngBytes(t, Size, Size), 0o600))

	c := NewCache(dir)
	img, ok := c.Get("bsc:0xf")
	require.True(t, ok)
	assert.Equal(t, Size, img.Bounds().Dy())

	_, ok = c.Get("bsc:0xmissing")
	assert.False(t, ok)
}

func TestGet_RemembersMisses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pngBytes(t, Size, Size))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := NewCache(dir)
	_, ok := c.Get("eth:0xe")
	require.False(t, ok)

	// A file appearing behind the cache's back is not read on later misses.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "eth_0xe.png"), pngBytes(t, Size, Size), 0o600))
	_, ok = c.Get("eth:0xe")
	assert.False(t, ok)

	added, err := c.FetchMissing(context.Background(), map[string]string{"eth:0xe": srv.URL + "/e.png"})
	require.NoError(t, err)
	assert.Equal(t, []string{"eth:0xe"}, added)
	_, ok = c.Get("eth:0xe")
	assert.True(t, ok)
}
