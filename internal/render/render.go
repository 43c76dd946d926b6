// Package render posts notification content through an ordered chain of
// rendering tiers, degrading from the richest presentation to plain text.
package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/lokalapp/notiflow/internal/domain"
	"github.com/lokalapp/notiflow/internal/logging"
	"github.com/lokalapp/notiflow/internal/ports"
)

// Blur parameters passed to ImageFetcher.FetchBlurred.
const (
	BlurRadius   = 20
	BlurSampling = 3
)

// Tier names a rendering variant.
type Tier string

const (
	TierImageBlur Tier = "image_blur"
	TierImage     Tier = "image"
	TierPlain     Tier = "plain"
)

// ErrNoImage is returned by image tiers when the request carries no image URL.
var ErrNoImage = errors.New("no image url")

// Result describes a successful render.
type Result struct {
	ID   int
	Tier Tier
}

// images memoizes image fetches for a single Render call.
type images struct {
	fetcher ports.ImageFetcher
	url     string

	baseImg, blurImg    []byte
	baseErr, blurredErr error
	baseDone, blurDone  bool
}

func (im *images) base(ctx context.Context) ([]byte, error) {
	if !im.baseDone {
		im.baseDone = true
		switch {
		case im.url == "" || im.fetcher == nil:
			im.baseErr = ErrNoImage
		default:
			im.baseImg, im.baseErr = im.fetcher.Fetch(ctx, im.url)
		}
	}
	return im.baseImg, im.baseErr
}

func (im *images) blur(ctx context.Context) ([]byte, error) {
	if !im.blurDone {
		im.blurDone = true
		if _, err := im.base(ctx); err != nil {
			im.blurredErr = err
		} else {
			im.blurImg, im.blurredErr = im.fetcher.FetchBlurred(ctx, im.url, BlurRadius, BlurSampling)
		}
	}
	return im.blurImg, im.blurredErr
}

// tier prepares content for one rendering variant.
type tier struct {
	name    Tier
	prepare func(ctx context.Context, c domain.Content, im *images) (domain.Content, error)
}

var chain = []tier{
	{
		name: TierImageBlur,
		prepare: func(ctx context.Context, c domain.Content, im *images) (domain.Content, error) {
			base, err := im.base(ctx)
			if err != nil {
				return c, err
			}
			blurred, err := im.blur(ctx)
			if err != nil {
				return c, err
			}
			c.Image, c.BlurredImage = base, blurred
			return c, nil
		},
	},
	{
		name: TierImage,
		prepare: func(ctx context.Context, c domain.Content, im *images) (domain.Content, error) {
			base, err := im.base(ctx)
			if err != nil {
				return c, err
			}
			c.Image, c.BlurredImage = base, nil
			return c, nil
		},
	},
	{
		name: TierPlain,
		prepare: func(_ context.Context, c domain.Content, _ *images) (domain.Content, error) {
			c.Image, c.BlurredImage = nil, nil
			return c, nil
		},
	},
}

// Renderer posts content using the first tier that succeeds.
type Renderer struct {
	platform ports.PlatformNotifier
	fetcher  ports.ImageFetcher
	log      logging.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Renderer) { r.log = l }
}

// New returns a Renderer. A nil fetcher renders every request as plain text.
func New(platform ports.PlatformNotifier, fetcher ports.ImageFetcher, opts ...Option) *Renderer {
	r := &Renderer{platform: platform, fetcher: fetcher, log: logging.GetGlobal()}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With("component", "render")
	return r
}

// Render posts c, attaching imagery from imageURL when it can be fetched.
// A tier fails when its fetch fails or when the platform rejects the content,
// and the next simpler tier is tried. The base image is fetched at most once.
func (r *Renderer) Render(ctx context.Context, c domain.Content, imageURL string) (Result, error) {
	im := &images{fetcher: r.fetcher, url: imageURL}
	start := 0
	if imageURL == "" {
		start = len(chain) - 1
	}

	var lastErr error
	for _, t := range chain[start:] {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		prepared, err := t.prepare(ctx, c, im)
		if err != nil {
			r.log.Debug("render tier skipped", "tier", string(t.name), "notification_id", c.ID, "error", err)
			lastErr = err
			continue
		}
		id, err := r.platform.Create(ctx, prepared)
		if err != nil {
			r.log.Warn("render tier failed", "tier", string(t.name), "notification_id", c.ID, "error", err)
			lastErr = err
			continue
		}
		return Result{ID: id, Tier: t.name}, nil
	}
	return Result{}, fmt.Errorf("render: notification %d: %w", c.ID, lastErr)
}
