// Package compositor rasterizes a cutout over a background into one bitmap.
//
// A composite is a single pass: load the foreground, draw the background
// (nothing, a flat color, or a cover-fit image with adjustments), draw the
// foreground at its native size, encode PNG. A failure at any step aborts
// the pass and nothing is returned but the error.
//
// Adjustments are applied to a separate background layer before that layer
// is drawn onto the canvas, so they can never reach the foreground.
package compositor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"

	"github.com/fpang/bg-studio/internal/apperr"
)

// DefaultCanvasSize is used for both dimensions when the foreground reports
// no intrinsic size.
const DefaultCanvasSize = 1024

// Checkerboard colors and cell size used by previews.
var (
	checkerLight = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	checkerDark  = color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
)

const checkerCell = 16

// Compositor merges foreground and background layers. It holds no per-call
// state, so one value can serve a whole session.
type Compositor struct {
	defaultWidth  int
	defaultHeight int
}

// New creates a Compositor with the fallback canvas size. Non-positive
// dimensions select DefaultCanvasSize.
func New(defaultWidth, defaultHeight int) *Compositor {
	if defaultWidth <= 0 {
		defaultWidth = DefaultCanvasSize
	}
	if defaultHeight <= 0 {
		defaultHeight = DefaultCanvasSize
	}
	return &Compositor{defaultWidth: defaultWidth, defaultHeight: defaultHeight}
}

// Result is a finished composite.
type Result struct {
	// Image is the canvas, sized to the foreground.
	Image *image.RGBA
	// PNG is Image encoded for download.
	PNG []byte
}

// Composite produces the downloadable artifact. A BackgroundNone spec leaves
// the canvas transparent.
func (c *Compositor) Composite(ctx context.Context, foreground Source, bg BackgroundSpec) (*Result, error) {
	return c.run(ctx, foreground, bg, false)
}

// Preview is Composite for on-screen display: under BackgroundNone it paints
// a checkerboard so transparency is visible. Never export a preview.
func (c *Compositor) Preview(ctx context.Context, foreground Source, bg BackgroundSpec) (*Result, error) {
	return c.run(ctx, foreground, bg, true)
}

func (c *Compositor) run(ctx context.Context, foreground Source, bg BackgroundSpec, preview bool) (*Result, error) {
	start := time.Now()

	log.Debug().
		Str("background", bg.Kind.String()).
		Bool("preview", preview).
		Msg("Composite: loading foreground")

	if foreground == nil {
		return nil, &apperr.CompositingError{Stage: apperr.ForegroundLoadFailed, Err: errors.New("no foreground")}
	}
	fg, err := foreground.Load(ctx)
	if err != nil {
		return nil, &apperr.CompositingError{Stage: apperr.ForegroundLoadFailed, Err: err}
	}

	canvas := image.NewRGBA(c.canvasRect(fg))

	if err := c.drawBackground(ctx, canvas, bg, preview); err != nil {
		return nil, err
	}

	fgBounds := fg.Bounds()
	draw.Draw(canvas, image.Rect(0, 0, fgBounds.Dx(), fgBounds.Dy()), fg, fgBounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, &apperr.CompositingError{Stage: apperr.EncodeFailed, Err: err}
	}

	log.Debug().
		Int("width", canvas.Rect.Dx()).
		Int("height", canvas.Rect.Dy()).
		Str("background", bg.Kind.String()).
		Int("png_bytes", buf.Len()).
		Dur("duration", time.Since(start)).
		Msg("Composite complete")

	return &Result{Image: canvas, PNG: buf.Bytes()}, nil
}

// canvasRect is the foreground's native size, or the default when the
// foreground has a zero dimension.
func (c *Compositor) canvasRect(fg image.Image) image.Rectangle {
	w, h := fg.Bounds().Dx(), fg.Bounds().Dy()
	if w <= 0 || h <= 0 {
		log.Warn().
			Int("width", w).
			Int("height", h).
			Int("fallback_width", c.defaultWidth).
			Int("fallback_height", c.defaultHeight).
			Msg("Foreground has no intrinsic size, using default canvas")
		w, h = c.defaultWidth, c.defaultHeight
	}
	return image.Rect(0, 0, w, h)
}

func (c *Compositor) drawBackground(ctx context.Context, canvas *image.RGBA, bg BackgroundSpec, preview bool) error {
	switch bg.Kind {
	case BackgroundNone:
		if preview {
			draw.Draw(canvas, canvas.Rect, Checkerboard(canvas.Rect.Dx(), canvas.Rect.Dy(), checkerCell), image.Point{}, draw.Src)
		}
		return nil

	case BackgroundColor:
		fill, err := ParseColor(bg.Color)
		if err != nil {
			return err
		}
		draw.Draw(canvas, canvas.Rect, image.NewUniform(fill), image.Point{}, draw.Src)
		return nil

	case BackgroundImage:
		if bg.Source == nil {
			return &apperr.CompositingError{Stage: apperr.BackgroundLoadFailed, Err: errors.New("no background image")}
		}
		img, err := bg.Source.Load(ctx)
		if err != nil {
			return &apperr.CompositingError{Stage: apperr.BackgroundLoadFailed, Err: err}
		}
		size := img.Bounds().Size()
		if size.X <= 0 || size.Y <= 0 {
			return &apperr.CompositingError{Stage: apperr.BackgroundLoadFailed, Err: fmt.Errorf("background has no pixels (%dx%d)", size.X, size.Y)}
		}

		layer := image.NewRGBA(canvas.Rect)
		dst := CoverRect(canvas.Rect, size)
		draw.CatmullRom.Scale(layer, dst, img, img.Bounds(), draw.Src, nil)

		log.Debug().
			Int("bg_width", size.X).
			Int("bg_height", size.Y).
			Str("dest", dst.String()).
			Interface("adjustments", bg.Adjustments).
			Msg("Composite: drawing background image")

		filtered := ApplyAdjustments(layer, bg.Adjustments)
		draw.Draw(canvas, canvas.Rect, filtered, filtered.Bounds().Min, draw.Over)
		return nil

	default:
		return fmt.Errorf("unknown background kind %d", int(bg.Kind))
	}
}

// CoverRect returns where a src-sized image lands when scaled to cover
// canvas with its aspect ratio kept and centered:
//
//	scale  = max(cw/bw, ch/bh)
//	offset = ((cw - bw*scale)/2, (ch - bh*scale)/2)
//
// Edges are rounded outward, so the rectangle always contains canvas and
// the two margins on each axis differ by at most one pixel.
func CoverRect(canvas image.Rectangle, src image.Point) image.Rectangle {
	cw, ch := float64(canvas.Dx()), float64(canvas.Dy())
	bw, bh := float64(src.X), float64(src.Y)
	if bw <= 0 || bh <= 0 {
		return canvas
	}

	scale := math.Max(cw/bw, ch/bh)
	dw, dh := bw*scale, bh*scale
	ox, oy := (cw-dw)/2, (ch-dh)/2

	x0 := int(math.Floor(snap(ox)))
	y0 := int(math.Floor(snap(oy)))
	x1 := int(math.Ceil(snap(ox + dw)))
	y1 := int(math.Ceil(snap(oy + dh)))

	return image.Rect(x0, y0, x1, y1).Add(canvas.Min)
}

// snap removes float noise so exact fits stay exact.
func snap(v float64) float64 {
	if r := math.Round(v); math.Abs(v-r) < 1e-6 {
		return r
	}
	return v
}

// Checkerboard returns a w×h light/dark checkerboard with square cells.
func Checkerboard(w, h, cell int) *image.RGBA {
	if cell <= 0 {
		cell = checkerCell
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.SetRGBA(x, y, checkerLight)
			} else {
				img.SetRGBA(x, y, checkerDark)
			}
		}
	}
	return img
}
