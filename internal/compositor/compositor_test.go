package compositor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"golang.org/x/image/draw"

	"github.com/fpang/bg-studio/internal/apperr"
)

// cutout is a w×h transparent image with an opaque square in the middle.
func cutout(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := h / 4; y < 3*h/4; y++ {
		for x := w / 4; x < 3*w/4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	return img
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 90, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestComposite_CanvasIsForegroundSize(t *testing.T) {
	c := New(0, 0)
	fg := cutout(37, 23)

	res, err := c.Composite(context.Background(), ImageSource{Image: fg}, NoBackground())
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}
	if got := res.Image.Bounds(); got != image.Rect(0, 0, 37, 23) {
		t.Errorf("canvas bounds = %v, want 37x23", got)
	}

	decoded, err := png.Decode(bytes.NewReader(res.PNG))
	if err != nil {
		t.Fatalf("PNG does not decode: %v", err)
	}
	if decoded.Bounds().Dx() != 37 || decoded.Bounds().Dy() != 23 {
		t.Errorf("PNG size = %v, want 37x23", decoded.Bounds())
	}
}

func TestComposite_DefaultCanvasForEmptyForeground(t *testing.T) {
	tests := []struct {
		name         string
		c            *Compositor
		wantW, wantH int
	}{
		{"package default", New(0, 0), DefaultCanvasSize, DefaultCanvasSize},
		{"configured", New(64, 32), 64, 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			empty := image.NewNRGBA(image.Rect(0, 0, 0, 0))
			res, err := tt.c.Composite(context.Background(), ImageSource{Image: empty}, NoBackground())
			if err != nil {
				t.Fatalf("Composite() error = %v", err)
			}
			if res.Image.Bounds().Dx() != tt.wantW || res.Image.Bounds().Dy() != tt.wantH {
				t.Errorf("canvas = %v, want %dx%d", res.Image.Bounds(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestComposite_NoneIsTransparent(t *testing.T) {
	c := New(0, 0)
	res, err := c.Composite(context.Background(), ImageSource{Image: cutout(20, 20)}, NoBackground())
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}
	if a := res.Image.RGBAAt(0, 0).A; a != 0 {
		t.Errorf("corner alpha = %d, want 0", a)
	}
	if a := res.Image.RGBAAt(10, 10).A; a != 255 {
		t.Errorf("center alpha = %d, want 255", a)
	}
}

func TestPreview_NoneShowsCheckerboard(t *testing.T) {
	c := New(0, 0)
	fg := ImageSource{Image: cutout(40, 40)}

	preview, err := c.Preview(context.Background(), fg, NoBackground())
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if got := preview.Image.RGBAAt(0, 0); got != checkerLight {
		t.Errorf("preview (0,0) = %v, want %v", got, checkerLight)
	}
	if got := preview.Image.RGBAAt(checkerCell, 0); got != checkerDark {
		t.Errorf("preview (%d,0) = %v, want %v", checkerCell, got, checkerDark)
	}

	exported, err := c.Composite(context.Background(), fg, NoBackground())
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}
	if a := exported.Image.RGBAAt(0, 0).A; a != 0 {
		t.Errorf("exported corner alpha = %d, want 0", a)
	}
}

func TestComposite_ColorBorder(t *testing.T) {
	colors := []string{"#ff0000", "#123456", "rgb(1, 2, 3)", "white", "#0f0"}

	for _, value := range colors {
		t.Run(value, func(t *testing.T) {
			want, err := ParseColor(value)
			if err != nil {
				t.Fatal(err)
			}
			spec, err := ColorBackground(value)
			if err != nil {
				t.Fatalf("ColorBackground() error = %v", err)
			}

			res, err := New(0, 0).Composite(context.Background(), ImageSource{Image: cutout(16, 12)}, spec)
			if err != nil {
				t.Fatalf("Composite() error = %v", err)
			}

			b := res.Image.Bounds()
			for x := 0; x < b.Dx(); x++ {
				for _, y := range []int{0, b.Dy() - 1} {
					got := res.Image.RGBAAt(x, y)
					if got.R != want.R || got.G != want.G || got.B != want.B || got.A != 255 {
						t.Fatalf("border (%d,%d) = %v, want %v", x, y, got, want)
					}
				}
			}
		})
	}
}

func TestComposite_ImageCoversCanvas(t *testing.T) {
	sizes := []image.Point{{10, 40}, {40, 10}, {7, 7}, {300, 17}, {33, 100}}

	for _, size := range sizes {
		t.Run(size.String(), func(t *testing.T) {
			bg := ImageBackground(ImageSource{Image: solid(size.X, size.Y, color.NRGBA{R: 10, G: 120, B: 30, A: 255})}, DefaultAdjustments())
			res, err := New(0, 0).Composite(context.Background(), ImageSource{Image: cutout(25, 18)}, bg)
			if err != nil {
				t.Fatalf("Composite() error = %v", err)
			}
			for y := 0; y < 18; y++ {
				for x := 0; x < 25; x++ {
					if a := res.Image.RGBAAt(x, y).A; a != 255 {
						t.Fatalf("pixel (%d,%d) alpha = %d, want fully covered", x, y, a)
					}
				}
			}
		})
	}
}

func TestCoverRect(t *testing.T) {
	tests := []struct {
		canvas image.Rectangle
		src    image.Point
	}{
		{image.Rect(0, 0, 100, 100), image.Pt(200, 100)},
		{image.Rect(0, 0, 100, 100), image.Pt(100, 300)},
		{image.Rect(0, 0, 640, 480), image.Pt(1920, 1080)},
		{image.Rect(0, 0, 480, 640), image.Pt(1920, 1080)},
		{image.Rect(0, 0, 10, 10), image.Pt(3, 3)},
		{image.Rect(0, 0, 31, 17), image.Pt(7, 11)},
		{image.Rect(0, 0, 1024, 1024), image.Pt(1024, 1024)},
		{image.Rect(0, 0, 101, 99), image.Pt(13, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.canvas.String()+"_"+tt.src.String(), func(t *testing.T) {
			r := CoverRect(tt.canvas, tt.src)
			if !tt.canvas.In(r) {
				t.Fatalf("CoverRect() = %v does not cover %v", r, tt.canvas)
			}

			left, right := tt.canvas.Min.X-r.Min.X, r.Max.X-tt.canvas.Max.X
			top, bottom := tt.canvas.Min.Y-r.Min.Y, r.Max.Y-tt.canvas.Max.Y
			if abs(left-right) > 1 {
				t.Errorf("horizontal margins %d/%d not centered", left, right)
			}
			if abs(top-bottom) > 1 {
				t.Errorf("vertical margins %d/%d not centered", top, bottom)
			}

			// One axis fits exactly (up to rounding), the other overflows.
			if left > 1 && top > 1 {
				t.Errorf("both axes overflow: %v", r)
			}
		})
	}
}

func TestCoverRect_ExactFit(t *testing.T) {
	canvas := image.Rect(0, 0, 10, 10)
	if got := CoverRect(canvas, image.Pt(3, 3)); got != canvas {
		t.Errorf("CoverRect(3x3 -> 10x10) = %v, want %v", got, canvas)
	}
	if got := CoverRect(canvas, image.Pt(20, 20)); got != canvas {
		t.Errorf("CoverRect(20x20 -> 10x10) = %v, want %v", got, canvas)
	}
}

func TestComposite_Idempotent(t *testing.T) {
	c := New(0, 0)
	fg := BytesSource{Data: encodePNG(t, cutout(30, 20)), MIMEType: "image/png"}
	bg := ImageBackground(BytesSource{Data: encodePNG(t, gradient(50, 90))}, Adjustments{Opacity: 70, Blur: 3, Brightness: 140, Grayscale: 40})

	first, err := c.Composite(context.Background(), fg, bg)
	if err != nil {
		t.Fatalf("first Composite() error = %v", err)
	}
	second, err := c.Composite(context.Background(), fg, bg)
	if err != nil {
		t.Fatalf("second Composite() error = %v", err)
	}
	if !bytes.Equal(first.Image.Pix, second.Image.Pix) {
		t.Error("composites of identical inputs differ")
	}
	if !bytes.Equal(first.PNG, second.PNG) {
		t.Error("PNG encodings of identical inputs differ")
	}
}

func TestComposite_FiltersDoNotReachForeground(t *testing.T) {
	c := New(0, 0)
	fgImg := cutout(32, 32)
	fg := ImageSource{Image: fgImg}
	bgImg := gradient(64, 48)

	heavy := Adjustments{Opacity: 40, Blur: 20, Brightness: 200, Grayscale: 100}
	res, err := c.Composite(context.Background(), fg, ImageBackground(ImageSource{Image: bgImg}, heavy))
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}

	for y := 8; y < 24; y++ {
		for x := 8; x < 24; x++ {
			want := fgImg.NRGBAAt(x, y)
			got := res.Image.RGBAAt(x, y)
			if got.R != want.R || got.G != want.G || got.B != want.B || got.A != want.A {
				t.Fatalf("foreground pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestComposite_DefaultAdjustmentsMatchUnfiltered(t *testing.T) {
	fgImg := cutout(30, 30)
	bgImg := gradient(45, 90)

	res, err := New(0, 0).Composite(context.Background(), ImageSource{Image: fgImg}, ImageBackground(ImageSource{Image: bgImg}, DefaultAdjustments()))
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}

	// Same pipeline by hand, with no filter stage at all.
	want := image.NewRGBA(image.Rect(0, 0, 30, 30))
	layer := image.NewRGBA(want.Rect)
	draw.CatmullRom.Scale(layer, CoverRect(want.Rect, bgImg.Bounds().Size()), bgImg, bgImg.Bounds(), draw.Src, nil)
	draw.Draw(want, want.Rect, layer, image.Point{}, draw.Over)
	draw.Draw(want, want.Rect, fgImg, image.Point{}, draw.Over)

	if !bytes.Equal(res.Image.Pix, want.Pix) {
		t.Error("default adjustments changed the composite")
	}
}

func TestComposite_ForegroundLoadFailed(t *testing.T) {
	c := New(0, 0)

	tests := []struct {
		name string
		src  Source
	}{
		{"nil source", nil},
		{"garbage bytes", BytesSource{Data: []byte("not an image")}},
		{"empty bytes", BytesSource{}},
		{"missing file", FileSource{Path: "/definitely/not/here.png"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Composite(context.Background(), tt.src, NoBackground())
			if res != nil {
				t.Error("Composite() returned partial output on failure")
			}
			if !apperr.IsStage(err, apperr.ForegroundLoadFailed) {
				t.Errorf("Composite() error = %v, want ForegroundLoadFailed", err)
			}
		})
	}
}

func TestComposite_BackgroundLoadFailed(t *testing.T) {
	c := New(0, 0)
	fg := ImageSource{Image: cutout(10, 10)}

	tests := []struct {
		name string
		spec BackgroundSpec
	}{
		{"nil source", BackgroundSpec{Kind: BackgroundImage}},
		{"garbage bytes", ImageBackground(BytesSource{Data: []byte("nope")}, DefaultAdjustments())},
		{"empty image", ImageBackground(ImageSource{Image: image.NewNRGBA(image.Rect(0, 0, 0, 5))}, DefaultAdjustments())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Composite(context.Background(), fg, tt.spec)
			if res != nil {
				t.Error("Composite() returned partial output on failure")
			}
			if !apperr.IsStage(err, apperr.BackgroundLoadFailed) {
				t.Errorf("Composite() error = %v, want BackgroundLoadFailed", err)
			}
		})
	}
}

func TestComposite_InvalidColor(t *testing.T) {
	_, err := New(0, 0).Composite(context.Background(), ImageSource{Image: cutout(4, 4)}, BackgroundSpec{Kind: BackgroundColor, Color: "#zzz"})
	var validationErr *apperr.ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("Composite() error = %v, want ValidationError", err)
	}
}

func TestComposite_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(0, 0).Composite(ctx, ImageSource{Image: cutout(4, 4)}, NoBackground())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Composite() error = %v, want context.Canceled", err)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
