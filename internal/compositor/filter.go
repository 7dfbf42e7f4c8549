package compositor

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Luma weights used by the grayscale filter.
const (
	lumaR = 0.2126
	lumaG = 0.7152
	lumaB = 0.0722
)

// ApplyAdjustments runs the filter chain over img in the fixed order
// opacity, blur, brightness, grayscale. Steps at their neutral value are
// skipped, so DefaultAdjustments returns img itself. The input is never
// modified.
func ApplyAdjustments(img image.Image, adj Adjustments) image.Image {
	adj = adj.Clamp()
	out := img

	if adj.Opacity != 100 {
		out = opacity(out, adj.Opacity/100)
	}
	if adj.Blur > 0 {
		out = imaging.Blur(out, adj.Blur)
	}
	if adj.Brightness != 100 {
		out = brightness(out, adj.Brightness/100)
	}
	if adj.Grayscale > 0 {
		out = grayscale(out, adj.Grayscale/100)
	}
	return out
}

func opacity(img image.Image, amount float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.A = channel(float64(c.A) * amount)
		return c
	})
}

func brightness(img image.Image, amount float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.R = channel(float64(c.R) * amount)
		c.G = channel(float64(c.G) * amount)
		c.B = channel(float64(c.B) * amount)
		return c
	})
}

// grayscale interpolates between identity and full luma desaturation.
func grayscale(img image.Image, amount float64) *image.NRGBA {
	k := 1 - amount
	m := [3][3]float64{
		{lumaR + (1-lumaR)*k, lumaG - lumaG*k, lumaB - lumaB*k},
		{lumaR - lumaR*k, lumaG + (1-lumaG)*k, lumaB - lumaB*k},
		{lumaR - lumaR*k, lumaG - lumaG*k, lumaB + (1-lumaB)*k},
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		r, g, b := float64(c.R), float64(c.G), float64(c.B)
		c.R = channel(m[0][0]*r + m[0][1]*g + m[0][2]*b)
		c.G = channel(m[1][0]*r + m[1][1]*g + m[1][2]*b)
		c.B = channel(m[2][0]*r + m[2][1]*g + m[2][2]*b)
		return c
	})
}

func channel(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}
