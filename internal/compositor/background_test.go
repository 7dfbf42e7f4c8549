package compositor

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/fpang/bg-studio/internal/apperr"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#ff0000", color.NRGBA{255, 0, 0, 255}},
		{"#FF8800", color.NRGBA{255, 136, 0, 255}},
		{"#f80", color.NRGBA{255, 136, 0, 255}},
		{"#f808", color.NRGBA{255, 136, 0, 136}},
		{"#11223344", color.NRGBA{0x11, 0x22, 0x33, 0x44}},
		{"rgb(1, 2, 3)", color.NRGBA{1, 2, 3, 255}},
		{"rgba(10,20,30,0.5)", color.NRGBA{10, 20, 30, 128}},
		{"  White ", color.NRGBA{255, 255, 255, 255}},
		{"transparent", color.NRGBA{0, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if err != nil {
				t.Fatalf("ParseColor(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseColor_Invalid(t *testing.T) {
	inputs := []string{"", "#", "#12", "#12345", "#ggg", "rgb(1,2)", "rgb(1,2,300)", "rgba(1,2,3,2)", "rgb(a,b,c)", "chartreuse-ish"}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := ParseColor(in)
			var validationErr *apperr.ValidationError
			if !errors.As(err, &validationErr) {
				t.Errorf("ParseColor(%q) error = %v, want ValidationError", in, err)
			}
		})
	}
}

func TestFormatColor(t *testing.T) {
	if got := FormatColor(color.NRGBA{255, 136, 0, 255}); got != "#ff8800" {
		t.Errorf("FormatColor(opaque) = %q, want #ff8800", got)
	}
	if got := FormatColor(color.NRGBA{1, 2, 3, 4}); got != "#01020304" {
		t.Errorf("FormatColor(translucent) = %q, want #01020304", got)
	}
}

func TestColorBackground(t *testing.T) {
	spec, err := ColorBackground("#abcdef")
	if err != nil {
		t.Fatalf("ColorBackground() error = %v", err)
	}
	if spec.Kind != BackgroundColor || spec.Color != "#abcdef" {
		t.Errorf("ColorBackground() = %+v", spec)
	}

	if _, err := ColorBackground("nope"); err == nil {
		t.Error("ColorBackground(nope) error = nil, want ValidationError")
	}
}

func TestAdjustmentsClamp(t *testing.T) {
	tests := []struct {
		name string
		in   Adjustments
		want Adjustments
	}{
		{"defaults untouched", DefaultAdjustments(), DefaultAdjustments()},
		{"above range", Adjustments{Opacity: 150, Blur: 99, Brightness: 500, Grayscale: 101}, Adjustments{100, 20, 200, 100}},
		{"below range", Adjustments{Opacity: -1, Blur: -5, Brightness: -10, Grayscale: -0.5}, Adjustments{0, 0, 0, 0}},
		{"in range", Adjustments{Opacity: 50, Blur: 2.5, Brightness: 120, Grayscale: 30}, Adjustments{50, 2.5, 120, 30}},
		{"NaN", Adjustments{Opacity: math.NaN(), Blur: 1, Brightness: 100, Grayscale: 0}, Adjustments{0, 1, 100, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Clamp(); got != tt.want {
				t.Errorf("Clamp() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestImageBackgroundClamps(t *testing.T) {
	spec := ImageBackground(ImageSource{Image: solid(2, 2, color.NRGBA{A: 255})}, Adjustments{Opacity: 300, Brightness: 100})
	if spec.Kind != BackgroundImage {
		t.Errorf("Kind = %v, want image", spec.Kind)
	}
	if spec.Adjustments.Opacity != 100 {
		t.Errorf("Opacity = %v, want 100", spec.Adjustments.Opacity)
	}
}

func TestIsNeutral(t *testing.T) {
	if !DefaultAdjustments().IsNeutral() {
		t.Error("DefaultAdjustments().IsNeutral() = false")
	}
	if (Adjustments{Opacity: 100, Brightness: 100, Blur: 1}).IsNeutral() {
		t.Error("blurred adjustments reported neutral")
	}
}

func TestApplyAdjustments_DefaultIsIdentity(t *testing.T) {
	img := gradient(8, 8)
	if got := ApplyAdjustments(img, DefaultAdjustments()); got != image.Image(img) {
		t.Error("ApplyAdjustments(default) did not return the input unchanged")
	}
}

func TestApplyAdjustments_Steps(t *testing.T) {
	base := color.NRGBA{R: 100, G: 150, B: 200, A: 255}
	img := solid(4, 4, base)

	tests := []struct {
		name string
		adj  Adjustments
		want color.NRGBA
	}{
		{"opacity", Adjustments{Opacity: 50, Brightness: 100}, color.NRGBA{100, 150, 200, 128}},
		{"zero opacity", Adjustments{Opacity: 0, Brightness: 100}, color.NRGBA{100, 150, 200, 0}},
		{"brightness up", Adjustments{Opacity: 100, Brightness: 150}, color.NRGBA{150, 225, 255, 255}},
		{"brightness off", Adjustments{Opacity: 100, Brightness: 0}, color.NRGBA{0, 0, 0, 255}},
		{"full grayscale", Adjustments{Opacity: 100, Brightness: 100, Grayscale: 100}, color.NRGBA{143, 143, 143, 255}},
		{"blur on flat color", Adjustments{Opacity: 100, Brightness: 100, Blur: 5}, base},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ApplyAdjustments(img, tt.adj)
			got := color.NRGBAModel.Convert(out.At(1, 1)).(color.NRGBA)
			if !near(got, tt.want, 1) {
				t.Errorf("pixel = %v, want %v", got, tt.want)
			}
			if img.NRGBAAt(1, 1) != base {
				t.Error("input image was modified")
			}
		})
	}
}

func near(a, b color.NRGBA, tol int) bool {
	d := func(x, y uint8) bool { return abs(int(x)-int(y)) <= tol }
	return d(a.R, b.R) && d(a.G, b.G) && d(a.B, b.B) && d(a.A, b.A)
}

func TestCanDecode(t *testing.T) {
	tests := []struct {
		mimeType string
		want     bool
	}{
		{"image/png", true},
		{"image/jpeg", true},
		{"IMAGE/WEBP", true},
		{"image/gif; charset=binary", true},
		{"image/heic", false},
		{"image/heif", false},
		{"application/pdf", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := CanDecode(tt.mimeType); got != tt.want {
			t.Errorf("CanDecode(%q) = %v, want %v", tt.mimeType, got, tt.want)
		}
	}
}
