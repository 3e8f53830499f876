package sampler

import "image"

// MotionDetector compares each frame against the previous one.
type MotionDetector struct {
	pixelThreshold uint8
	areaRatio      float64
	prev           *image.Gray
}

// NewMotionDetector creates a frame-difference detector. A pixel counts as
// changed when its luma moved by more than pixelThreshold; the frame counts as
// motion when at least areaRatio of its pixels changed.
func NewMotionDetector(pixelThreshold uint8, areaRatio float64) *MotionDetector {
	return &MotionDetector{pixelThreshold: pixelThreshold, areaRatio: areaRatio}
}

// Detect reports whether frame differs from the previous frame. The first
// frame, and any frame whose size differs from the previous one, reports no
// motion and becomes the new reference.
func (d *MotionDetector) Detect(frame *image.Gray) bool {
	cur := cloneGray(frame)
	prev := d.prev
	d.prev = cur

	if prev == nil || prev.Bounds().Size() != cur.Bounds().Size() {
		return false
	}

	w, h := cur.Bounds().Dx(), cur.Bounds().Dy()
	if w*h == 0 {
		return false
	}

	changed := 0
	for y := 0; y < h; y++ {
		a := prev.Pix[y*prev.Stride : y*prev.Stride+w]
		b := cur.Pix[y*cur.Stride : y*cur.Stride+w]
		for x := range a {
			if absDiff(a[x], b[x]) > d.pixelThreshold {
				changed++
			}
		}
	}
	return float64(changed)/float64(w*h) >= d.areaRatio
}

// Reset drops the reference frame.
func (d *MotionDetector) Reset() {
	d.prev = nil
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

func cloneGray(src *image.Gray) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(dst.Pix[y*dst.Stride:(y+1)*dst.Stride], src.Pix[y*src.Stride:y*src.Stride+b.Dx()])
	}
	return dst
}
