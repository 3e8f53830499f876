package sampler

import (
	"image"
	"image/color"
)

// ToGray converts a frame to 8-bit luma. Gray and YCbCr frames (the JPEG
// decoder output) are read straight from their luma plane.
func ToGray(img image.Image) *image.Gray {
	switch src := img.(type) {
	case *image.Gray:
		return src
	case *image.YCbCr:
		b := src.Rect
		dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			row := src.Y[y*src.YStride:]
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()], row[:b.Dx()])
		}
		return dst
	}

	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.SetGray(x-b.Min.X, y-b.Min.Y, color.GrayModel.Convert(img.At(x, y)).(color.Gray))
		}
	}
	return dst
}

// Brightness returns the mean luma of the frame, 0-255. An empty frame is 0.
func Brightness(img image.Image) float64 {
	gray := ToGray(img)
	b := gray.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}

	var sum uint64
	for y := 0; y < b.Dy(); y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()]
		for _, p := range row {
			sum += uint64(p)
		}
	}
	return float64(sum) / float64(n)
}
