// Package watermark overlays the branding logo onto photos.
package watermark

import (
	"errors"
	"image"
	"math"

	"golang.org/x/image/draw"
)

// ErrEmptyLogo is returned when the logo has no width to scale from.
var ErrEmptyLogo = errors.New("watermark: logo has zero width")

// Placement returns where a logo of size logoW x logoH lands on a source
// image of width srcWidth: scaled to a third of the source width with its
// aspect ratio kept, centred horizontally and flush with the top edge.
func Placement(srcWidth, logoW, logoH int) (image.Rectangle, error) {
	if logoW <= 0 {
		return image.Rectangle{}, ErrEmptyLogo
	}
	w := srcWidth / 3
	h := int(math.Round(float64(w) * float64(logoH) / float64(logoW)))
	x := (srcWidth - w) / 2
	return image.Rect(x, 0, x+w, h), nil
}

// Composite returns a copy of src with logo drawn at the top centre.
// The logo's alpha channel is honoured; src is left untouched. The result
// always starts at the origin, whatever src.Bounds().Min is.
func Composite(src, logo image.Image) (*image.RGBA, error) {
	if src == nil {
		return nil, errors.New("watermark: nil source image")
	}
	if logo == nil {
		return nil, errors.New("watermark: nil logo image")
	}

	sb := src.Bounds()
	lb := logo.Bounds()
	rect, err := Placement(sb.Dx(), lb.Dx(), lb.Dy())
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, sb.Dx(), sb.Dy()))
	draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Src)
	if !rect.Empty() {
		draw.CatmullRom.Scale(dst, rect, logo, lb, draw.Over, nil)
	}
	return dst, nil
}

// FitWidth scales img down to maxWidth keeping its aspect ratio.
// Images already within the limit, or a non-positive limit, are returned as is.
func FitWidth(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}
	h := int(float64(b.Dy()) * float64(maxWidth) / float64(b.Dx()))
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
