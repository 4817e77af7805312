// Package preprocess prepares a captured frame for OCR: grayscale, a hard
// contrast stretch around mid-gray, and inversion of dark-mode screens.
package preprocess

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	apperrors "github.com/motoristapro/offerwatch/internal/errors"
)

const (
	// ContrastGain multiplies the distance of each channel from mid-gray.
	ContrastGain = 4.0
	// DarkThreshold is the center luminance below which a frame is dark mode.
	DarkThreshold = 0.5

	midGray = 127.5
)

// Result is a preprocessed frame.
type Result struct {
	Image image.Image
	Dark  bool
}

// Apply runs the OCR preprocessing chain. On any failure it returns the raw
// frame together with the error so the caller can still run OCR.
func Apply(img image.Image) (res Result, err error) {
	res = Result{Image: img}
	if img == nil || img.Bounds().Empty() {
		return res, apperrors.New(apperrors.CodePreprocessFailed, "empty frame")
	}
	defer func() {
		if r := recover(); r != nil {
			res = Result{Image: img}
			err = apperrors.Newf(apperrors.CodePreprocessFailed, "preprocess panic: %v", r)
		}
	}()

	gray := imaging.Grayscale(img)
	dark := CenterLuminance(gray) < DarkThreshold
	out := imaging.AdjustFunc(gray, stretch)
	if dark {
		out = imaging.Invert(out)
	}
	return Result{Image: out, Dark: dark}, nil
}

// CenterLuminance returns the relative luminance in [0,1] of the center pixel.
func CenterLuminance(img image.Image) float64 {
	b := img.Bounds()
	c := color.NRGBAModel.Convert(img.At(b.Min.X+b.Dx()/2, b.Min.Y+b.Dy()/2)).(color.NRGBA)
	return (0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)) / 255
}

func stretch(c color.NRGBA) color.NRGBA {
	return color.NRGBA{R: gain(c.R), G: gain(c.G), B: gain(c.B), A: c.A}
}

func gain(v uint8) uint8 {
	f := (float64(v)-midGray)*ContrastGain + midGray
	switch {
	case f <= 0:
		return 0
	case f >= 255:
		return 255
	default:
		return uint8(f + 0.5)
	}
}

// Describe summarises a result for logs.
func (r Result) Describe() string {
	mode := "light"
	if r.Dark {
		mode = "dark"
	}
	b := r.Image.Bounds()
	return fmt.Sprintf("%dx%d %s", b.Dx(), b.Dy(), mode)
}
