package logo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"cryptick/internal/paths"
)

const (
	// Size is the edge length of a cached logo in pixels.
	Size = 22

	MaxConcurrent = 4

	downloadTimeout = 10 * time.Second
	retryAfter      = 10 * time.Minute
	maxLogoBytes    = 2 << 20
)

// Cache keeps token logos resized to Size×Size, in memory and as PNG files
// under dir. Get is called from the UI goroutine while FetchMissing runs in
// the background.
type Cache struct {
	dir  string
	http *http.Client
	log  *zap.SugaredLogger
	now  func() time.Time

	mu      sync.Mutex
	images  map[string]image.Image
	missing map[string]bool
	failed  map[string]time.Time
}

type Option func(*Cache)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Cache) { c.http = hc }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Cache) { c.log = log }
}

func NewCache(dir string, opts ...Option) *Cache {
	c := &Cache{
		dir:    dir,
		http:   &http.Client{Timeout: downloadTimeout},
		log:    zap.NewNop().Sugar(),
		now:    time.Now,
		images:  map[string]image.Image{},
		missing: map[string]bool{},
		failed:  map[string]time.Time{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FileName maps a ticker key to its cache file name.
func FileName(key string) string {
	r := strings.NewReplacer(":", "_", "/", "_", `\`, "_")
	return r.Replace(key) + ".png"
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, FileName(key))
}

// Get returns the logo for key from memory or disk. A key is looked up on
// disk at most once; later misses are answered from memory until
// FetchMissing stores the logo.
func (c *Cache) Get(key string) (image.Image, bool) {
	c.mu.Lock()
	img, ok := c.images[key]
	missing := c.missing[key]
	c.mu.Unlock()
	if ok {
		return img, true
	}
	if missing {
		return nil, false
	}

	img, err := c.load(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.log.Debugw("Discarding unreadable cached logo", "key", key, "error", err)
		}
		c.missing[key] = true
		return nil, false
	}
	c.images[key] = img
	return img, true
}

func (c *Cache) load(key string) (image.Image, error) {
	f, err := os.Open(c.path(key))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}

// FetchMissing downloads logos for keys that are neither cached nor failed
// recently, at most MaxConcurrent at a time. It returns the keys that were
// added. Individual failures are logged, not returned.
func (c *Cache) FetchMissing(ctx context.Context, urls map[string]string) ([]string, error) {
	var todo []string
	for key, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := c.Get(key); ok {
			continue
		}
		c.mu.Lock()
		at, failed := c.failed[key]
		c.mu.Unlock()
		if failed && c.now().Sub(at) < retryAfter {
			continue
		}
		todo = append(todo, key)
	}
	if len(todo) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(c.dir, paths.DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create logo dir: %w", err)
	}

	var (
		mu    sync.Mutex
		added []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxConcurrent)
	for _, key := range todo {
		g.Go(func() error {
			img, err := c.download(gctx, urls[key])
			if err == nil {
				err = c.store(key, img)
			}
			c.mu.Lock()
			if err != nil {
				c.failed[key] = c.now()
			} else {
				delete(c.failed, key)
				delete(c.missing, key)
				c.images[key] = img
			}
			c.mu.Unlock()

			if err != nil {
				c.log.Debugw("Logo download failed", "key", key, "error", err)
				return nil
			}
			mu.Lock()
			added = append(added, key)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(added) > 0 {
		c.log.Infow("Logos cached", "count", len(added))
	}
	return added, ctx.Err()
}

func (c *Cache) download(ctx context.Context, u string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed [%s]: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("logo error [%s]: %s", u, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLogoBytes))
	if err != nil {
		return nil, fmt.Errorf("body read error [%s]: %w", u, err)
	}

	src, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode error [%s]: %w", u, err)
	}
	c.log.Debugw("Logo decoded", "url", u, "format", format)
	return Resize(src, Size), nil
}

func (c *Cache) store(key string, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), paths.FilePerm); err != nil {
		return err
	}
	return os.Rename(tmp, c.path(key))
}

// Resize scales src to fit a size×size square, keeping its aspect ratio and
// centering it on a transparent background.
func Resize(src image.Image, size int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return dst
	}

	w, h := size, size
	if b.Dx() > b.Dy() {
		h = max(1, size*b.Dy()/b.Dx())
	} else if b.Dy() > b.Dx() {
		w = max(1, size*b.Dx()/b.Dy())
	}
	x0, y0 := (size-w)/2, (size-h)/2
	draw.CatmullRom.Scale(dst, image.Rect(x0, y0, x0+w, y0+h), src, b, draw.Over, nil)
	return dst
}
