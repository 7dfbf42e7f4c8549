package compositor

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/fpang/bg-studio/internal/apperr"
)

// BackgroundKind tags the BackgroundSpec union.
type BackgroundKind int

const (
	// BackgroundNone leaves the canvas transparent.
	BackgroundNone BackgroundKind = iota
	// BackgroundColor fills the canvas with a flat color.
	BackgroundColor
	// BackgroundImage draws a cover-fit image with adjustments.
	BackgroundImage
)

func (k BackgroundKind) String() string {
	switch k {
	case BackgroundNone:
		return "none"
	case BackgroundColor:
		return "color"
	case BackgroundImage:
		return "image"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// BackgroundSpec describes what goes under the cutout. Only the fields of
// the active Kind are meaningful. Specs are values; edits replace them.
type BackgroundSpec struct {
	Kind        BackgroundKind
	Color       string
	Source      Source
	Adjustments Adjustments
}

// NoBackground returns the transparent spec.
func NoBackground() BackgroundSpec {
	return BackgroundSpec{Kind: BackgroundNone}
}

// ColorBackground returns a flat color spec. The color is validated so a bad
// value is rejected when it is chosen, not at download time.
func ColorBackground(value string) (BackgroundSpec, error) {
	if _, err := ParseColor(value); err != nil {
		return BackgroundSpec{}, err
	}
	return BackgroundSpec{Kind: BackgroundColor, Color: value}, nil
}

// ImageBackground returns an image spec with clamped adjustments.
func ImageBackground(src Source, adj Adjustments) BackgroundSpec {
	return BackgroundSpec{Kind: BackgroundImage, Source: src, Adjustments: adj.Clamp()}
}

// Adjustment ranges.
const (
	MaxOpacity    = 100
	MaxBlur       = 20
	MaxBrightness = 200
	MaxGrayscale  = 100
)

// Adjustments are the background-image filters. Opacity, Brightness and
// Grayscale are percentages; Blur is in canvas pixels.
type Adjustments struct {
	Opacity    float64 `yaml:"opacity"`
	Blur       float64 `yaml:"blur"`
	Brightness float64 `yaml:"brightness"`
	Grayscale  float64 `yaml:"grayscale"`
}

// DefaultAdjustments is fully opaque, sharp, normal brightness, full color.
func DefaultAdjustments() Adjustments {
	return Adjustments{Opacity: 100, Blur: 0, Brightness: 100, Grayscale: 0}
}

// Clamp returns a copy with every field forced into its range.
func (a Adjustments) Clamp() Adjustments {
	return Adjustments{
		Opacity:    clamp(a.Opacity, 0, MaxOpacity),
		Blur:       clamp(a.Blur, 0, MaxBlur),
		Brightness: clamp(a.Brightness, 0, MaxBrightness),
		Grayscale:  clamp(a.Grayscale, 0, MaxGrayscale),
	}
}

// IsNeutral reports whether applying a would change nothing.
func (a Adjustments) IsNeutral() bool {
	return a.Clamp() == DefaultAdjustments()
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

var namedColors = map[string]color.NRGBA{
	"transparent": {0, 0, 0, 0},
	"black":       {0, 0, 0, 255},
	"white":       {255, 255, 255, 255},
	"red":         {255, 0, 0, 255},
	"green":       {0, 128, 0, 255},
	"lime":        {0, 255, 0, 255},
	"blue":        {0, 0, 255, 255},
	"yellow":      {255, 255, 0, 255},
	"gray":        {128, 128, 128, 255},
	"grey":        {128, 128, 128, 255},
	"orange":      {255, 165, 0, 255},
	"purple":      {128, 0, 128, 255},
	"pink":        {255, 192, 203, 255},
}

// ParseColor accepts #rgb, #rgba, #rrggbb, #rrggbbaa, rgb(r, g, b),
// rgba(r, g, b, a) with a in 0..1, and a few color names.
func ParseColor(value string) (color.NRGBA, error) {
	s := strings.ToLower(strings.TrimSpace(value))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}

	if hex, ok := strings.CutPrefix(s, "#"); ok {
		if c, ok := parseHex(hex); ok {
			return c, nil
		}
		return color.NRGBA{}, invalidColor(value)
	}

	if args, ok := functionArgs(s, "rgba"); ok {
		if c, ok := parseRGB(args, true); ok {
			return c, nil
		}
		return color.NRGBA{}, invalidColor(value)
	}
	if args, ok := functionArgs(s, "rgb"); ok {
		if c, ok := parseRGB(args, false); ok {
			return c, nil
		}
	}
	return color.NRGBA{}, invalidColor(value)
}

// FormatColor renders c as #rrggbb, or #rrggbbaa when not opaque.
func FormatColor(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", n.R, n.G, n.B, n.A)
}

func invalidColor(value string) error {
	return apperr.Validation(fmt.Sprintf("Unrecognized color %q.", value))
}

func parseHex(hex string) (color.NRGBA, bool) {
	var digits []uint8
	for _, r := range hex {
		v, err := strconv.ParseUint(string(r), 16, 8)
		if err != nil {
			return color.NRGBA{}, false
		}
		digits = append(digits, uint8(v))
	}

	switch len(digits) {
	case 3, 4:
		c := color.NRGBA{R: digits[0] * 17, G: digits[1] * 17, B: digits[2] * 17, A: 255}
		if len(digits) == 4 {
			c.A = digits[3] * 17
		}
		return c, true
	case 6, 8:
		c := color.NRGBA{
			R: digits[0]<<4 | digits[1],
			G: digits[2]<<4 | digits[3],
			B: digits[4]<<4 | digits[5],
			A: 255,
		}
		if len(digits) == 8 {
			c.A = digits[6]<<4 | digits[7]
		}
		return c, true
	default:
		return color.NRGBA{}, false
	}
}

func functionArgs(s, name string) ([]string, bool) {
	inner, ok := strings.CutPrefix(s, name+"(")
	if !ok {
		return nil, false
	}
	inner, ok = strings.CutSuffix(inner, ")")
	if !ok {
		return nil, false
	}
	args := strings.Split(inner, ",")
	for i := range args {
		args[i] = strings.TrimSpace(args[i])
	}
	return args, true
}

func parseRGB(args []string, withAlpha bool) (color.NRGBA, bool) {
	want := 3
	if withAlpha {
		want = 4
	}
	if len(args) != want {
		return color.NRGBA{}, false
	}

	var channels [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.Atoi(args[i])
		if err != nil || v < 0 || v > 255 {
			return color.NRGBA{}, false
		}
		channels[i] = uint8(v)
	}

	c := color.NRGBA{R: channels[0], G: channels[1], B: channels[2], A: 255}
	if withAlpha {
		a, err := strconv.ParseFloat(args[3], 64)
		if err != nil || a < 0 || a > 1 {
			return color.NRGBA{}, false
		}
		c.A = uint8(math.Round(a * 255))
	}
	return c, true
}
