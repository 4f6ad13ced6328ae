package thumbnail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	builderrors "github.com/conneroisu/svgsprite/internal/errors"
	"github.com/conneroisu/svgsprite/internal/icon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newView(t *testing.T, paths ...string) icon.View {
	t.Helper()
	records := make([]icon.Record, 0, len(paths))
	for _, p := range paths {
		records = append(records, icon.NewRecord(p, []byte(`<svg viewBox="0 0 24 24"><rect x="4" y="4" width="16" height="16"/></svg>`)))
	}
	set, err := icon.NewSet(records)
	require.NoError(t, err)
	return set.View()
}

func decodeThumbnail(t *testing.T, uri string) image.Image {
	t.Helper()
	require.True(t, strings.HasPrefix(uri, DataURIPrefix), "unexpected prefix: %.40s", uri)

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, DataURIPrefix))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func TestThumbnailRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"square", `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24"><path d="M2 2h20v20H2z"/></svg>`},
		{"wide", `<svg viewBox="0 0 48 12"><rect width="48" height="12"/></svg>`},
		{"tall", `<svg viewBox="0 0 10 40"><circle cx="5" cy="20" r="5"/></svg>`},
		{"no viewbox", `<svg><rect width="10" height="10"/></svg>`},
		{"empty", `<svg viewBox="0 0 24 24"/>`},
	}

	r := NewRenderer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uri, err := r.Thumbnail([]byte(tt.content))
			require.NoError(t, err)

			img := decodeThumbnail(t, uri)
			assert.Equal(t, 64, img.Bounds().Dx())
			assert.Equal(t, 64, img.Bounds().Dy())
		})
	}
}

func TestThumbnailDrawsGeometry(t *testing.T) {
	uri, err := NewRenderer().Thumbnail([]byte(`<svg viewBox="0 0 24 24"><rect width="24" height="24"/></svg>`))
	require.NoError(t, err)

	img := decodeThumbnail(t, uri)
	_, _, _, a := img.At(32, 32).RGBA()
	assert.NotZero(t, a, "centre pixel should be painted")
}

func TestThumbnailCustomSize(t *testing.T) {
	uri, err := NewRenderer(WithSize(16)).Thumbnail([]byte(`<svg viewBox="0 0 1 1"/>`))
	require.NoError(t, err)
	assert.Equal(t, 16, decodeThumbnail(t, uri).Bounds().Dx())
}

func TestThumbnailRasterError(t *testing.T) {
	_, err := NewRenderer().Thumbnail([]byte(`<svg`))
	assert.Error(t, err)
}

func TestThumbnailRecoversPanic(t *testing.T) {
	r := NewRenderer(WithRasterizer(func([]byte, int) (image.Image, error) {
		panic("bad path data")
	}))
	_, err := r.Thumbnail([]byte(`<svg/>`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad path data")
}

func solid(_ []byte, side int) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, side, side))
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			img.Set(x, y, color.Black)
		}
	}
	return img, nil
}

func TestRenderKeepsSortedOrder(t *testing.T) {
	view := newView(t, "a.svg", "b.svg", "c.svg", "d.svg", "e.svg")

	var calls atomic.Int32
	slowFirst := func(content []byte, side int) (image.Image, error) {
		// earlier calls finish later so completion order is reversed
		n := calls.Add(1)
		time.Sleep(time.Duration(6-n) * 5 * time.Millisecond)
		return solid(content, side)
	}

	out, err := NewRenderer(WithConcurrency(5), WithRasterizer(slowFirst)).Render(context.Background(), view)
	require.NoError(t, err)
	require.Len(t, out, 5)

	for i, rec := range out {
		assert.Equal(t, view.At(i).RelativePath(), rec.RelativePath())
		assert.True(t, rec.HasThumbnail())
		assert.False(t, view.At(i).HasThumbnail(), "source records stay untouched")
	}
}

func TestRenderFailsFast(t *testing.T) {
	view := newView(t, "a.svg", "b.svg", "broken.svg", "d.svg")

	failing := func(content []byte, side int) (image.Image, error) {
		return nil, errors.New("cannot rasterize")
	}
	_, err := NewRenderer(WithConcurrency(1), WithRasterizer(failing)).Render(context.Background(), view)
	require.Error(t, err)
	assert.True(t, builderrors.IsType(err, builderrors.ErrorTypeRender))

	be, ok := builderrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "a.svg", be.Path)
	assert.Equal(t, builderrors.StageThumbnail, be.Stage)
}

func TestRenderStopsAfterFirstError(t *testing.T) {
	paths := make([]string, 20)
	for i := range paths {
		paths[i] = fmt.Sprintf("icon%02d.svg", i)
	}
	view := newView(t, paths...)

	var rendered atomic.Int32
	r := NewRenderer(WithConcurrency(1), WithRasterizer(func(content []byte, side int) (image.Image, error) {
		if rendered.Add(1) == 3 {
			return nil, errors.New("boom")
		}
		return solid(content, side)
	}))

	_, err := r.Render(context.Background(), view)
	require.Error(t, err)
	assert.Less(t, int(rendered.Load()), 20)
}

func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRenderer(WithRasterizer(solid)).Render(ctx, newView(t, "a.svg"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCoverDimensions(t *testing.T) {
	w, h := coverDimensions(24, 24, 256)
	assert.Equal(t, [2]int{256, 256}, [2]int{w, h})

	w, h = coverDimensions(48, 12, 256)
	assert.Equal(t, [2]int{1024, 256}, [2]int{w, h})

	w, h = coverDimensions(10, 40, 256)
	assert.Equal(t, [2]int{256, 1024}, [2]int{w, h})

	w, h = coverDimensions(1000, 1, 10)
	assert.Equal(t, [2]int{80, 10}, [2]int{w, h})
}
