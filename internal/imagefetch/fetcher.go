// Package imagefetch downloads notification imagery over HTTP and produces blurred variants.
package imagefetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/lokalapp/notiflow/internal/logging"
)

// Limits applied to every download.
const (
	DefaultTimeout  = 10 * time.Second
	DefaultMaxBytes = 5 << 20
)

// ErrTooLarge is returned when a body exceeds the configured size.
var ErrTooLarge = errors.New("imagefetch: image too large")

// Fetcher implements ports.ImageFetcher over HTTP.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	log      logging.Logger

	mu       sync.Mutex
	lastURL  string
	lastBody []byte
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithMaxBytes caps the accepted body size.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) { f.maxBytes = n }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

// New returns a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: DefaultTimeout},
		maxBytes: DefaultMaxBytes,
		log:      logging.GetGlobal(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.With("component", "imagefetch")
	return f
}

// Fetch downloads url and returns the encoded image bytes.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("imagefetch: request %s: %w", url, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imagefetch: get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("imagefetch: get %s: unexpected status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("imagefetch: read %s: %w", url, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, ErrTooLarge
	}
	f.log.Debug("image fetched", "url", url, "bytes", len(data))
	f.remember(url, data)
	return data, nil
}

func (f *Fetcher) remember(url string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastURL, f.lastBody = url, data
}

func (f *Fetcher) cached(url string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastBody == nil || f.lastURL != url {
		return nil, false
	}
	return f.lastBody, true
}

// FetchBlurred downsamples the image at url by sampling and applies a blur of radius.
// The most recent Fetch body is reused when it was for the same url.
// The result is JPEG encoded.
func (f *Fetcher) FetchBlurred(ctx context.Context, url string, radius, sampling int) ([]byte, error) {
	data, ok := f.cached(url)
	if !ok {
		var err error
		if data, err = f.Fetch(ctx, url); err != nil {
			return nil, err
		}
	}
	return Blur(data, radius, sampling)
}

// Blur decodes data, shrinks it by sampling and blurs it with radius.
func Blur(data []byte, radius, sampling int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imagefetch: decode: %w", err)
	}
	if sampling > 1 {
		w := img.Bounds().Dx() / sampling
		if w < 1 {
			w = 1
		}
		img = imaging.Resize(img, w, 0, imaging.Box)
	}
	blurred := imaging.Blur(img, float64(radius)/2)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, blurred, imaging.JPEG); err != nil {
		return nil, fmt.Errorf("imagefetch: encode: %w", err)
	}
	return buf.Bytes(), nil
}
