package capture

import (
	"image"
	"image/draw"
	"time"
)

// FromImage copies img into an RGBA frame.
func FromImage(img image.Image, ts time.Time) *Frame {
	if rgba, ok := img.(*image.RGBA); ok {
		return &Frame{Image: rgba, Timestamp: ts}
	}

	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	return &Frame{Image: rgba, Timestamp: ts}
}

// Uniform returns a frame of the given size filled with one gray level.
func Uniform(width, height int, level uint8, ts time.Time) *Frame {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = level
		img.Pix[i+1] = level
		img.Pix[i+2] = level
		img.Pix[i+3] = 0xff
	}

	return &Frame{Image: img, Timestamp: ts}
}
