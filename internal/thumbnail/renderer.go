// Package thumbnail rasterizes optimized icons into small PNG previews that
// are embedded as data URIs in the manifest and documentation.
package thumbnail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"math"
	"runtime"

	"github.com/conneroisu/svgsprite/internal/errors"
	"github.com/conneroisu/svgsprite/internal/icon"
	"github.com/disintegration/imaging"
	"github.com/sourcegraph/conc/pool"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const (
	// DefaultSize is the edge length of a thumbnail in pixels.
	DefaultSize = 64
	// DataURIPrefix starts every thumbnail reference.
	DataURIPrefix = "data:image/png;base64,"

	// icons are drawn at supersample times the target size and then
	// downscaled, which gives anti-aliased edges on thin strokes
	supersample = 4
	// maxAspect bounds the raster for extremely wide or tall view boxes
	maxAspect = 8
)

// RasterizeFunc draws SVG markup into an image whose shorter side is at least
// minSide pixels.
type RasterizeFunc func(content []byte, minSide int) (image.Image, error)

// Renderer produces thumbnail-bearing records for a working set.
type Renderer struct {
	size        int
	concurrency int
	rasterize   RasterizeFunc
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithSize sets the thumbnail edge length.
func WithSize(size int) Option {
	return func(r *Renderer) {
		if size > 0 {
			r.size = size
		}
	}
}

// WithConcurrency bounds the number of renders in flight.
func WithConcurrency(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithRasterizer replaces the SVG rasterizer.
func WithRasterizer(fn RasterizeFunc) Option {
	return func(r *Renderer) {
		if fn != nil {
			r.rasterize = fn
		}
	}
}

// NewRenderer creates a renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		size:        DefaultSize,
		concurrency: runtime.NumCPU(),
		rasterize:   Rasterize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Size returns the thumbnail edge length.
func (r *Renderer) Size() int { return r.size }

// Render rasterizes every record of view concurrently and returns new
// records carrying their thumbnails, in view order. The first failure
// cancels the renders still pending and is returned as a RenderError.
func (r *Renderer) Render(ctx context.Context, view icon.View) ([]icon.Record, error) {
	out := make([]icon.Record, view.Len())

	p := pool.New().
		WithMaxGoroutines(r.concurrency).
		WithErrors().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()

	for i, rec := range view.All() {
		p.Go(func(ctx context.Context) error {
			if ctx.Err() != nil {
				return nil
			}
			uri, err := r.Thumbnail(rec.Content())
			if err != nil {
				return errors.NewRenderError(rec.RelativePath(), err)
			}
			// each goroutine owns exactly one slot
			out[i] = rec.WithThumbnail(uri)
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Thumbnail rasterizes one document to a size×size PNG data URI. The image
// covers the square: aspect ratio is kept and overflow is cropped centred.
func (r *Renderer) Thumbnail(content []byte) (uri string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("rasterizer panic: %v", rec)
		}
	}()

	img, err := r.rasterize(content, r.size*supersample)
	if err != nil {
		return "", err
	}

	thumb := imaging.Fill(img, r.size, r.size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}

	return DataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Rasterize is the default RasterizeFunc backed by oksvg.
func Rasterize(content []byte, minSide int) (image.Image, error) {
	svg, err := oksvg.ReadIconStream(bytes.NewReader(content), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, err
	}

	vw, vh := svg.ViewBox.W, svg.ViewBox.H
	if vw <= 0 || vh <= 0 || math.IsNaN(vw) || math.IsNaN(vh) {
		vw, vh = float64(minSide), float64(minSide)
		svg.ViewBox.X, svg.ViewBox.Y = 0, 0
		svg.ViewBox.W, svg.ViewBox.H = vw, vh
	}

	w, h := coverDimensions(vw, vh, minSide)
	svg.SetTarget(0, 0, float64(w), float64(h))

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, canvas, canvas.Bounds())
	svg.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	return canvas, nil
}

// coverDimensions scales a view box so its shorter side equals minSide.
func coverDimensions(vw, vh float64, minSide int) (int, int) {
	ratio := vw / vh
	if ratio > maxAspect {
		ratio = maxAspect
	}
	if ratio < 1.0/maxAspect {
		ratio = 1.0 / maxAspect
	}

	if ratio >= 1 {
		return int(math.Round(float64(minSide) * ratio)), minSide
	}
	return minSide, int(math.Round(float64(minSide) / ratio))
}
