package quality

import "image"

// Brightness returns the mean luma of every stride-th pixel.
func Brightness(img *image.RGBA, stride int) float64 {
	if img == nil {
		return 0
	}
	if stride < 1 {
		stride = 1
	}

	b := img.Bounds()
	w, n := b.Dx(), b.Dx()*b.Dy()
	if n == 0 {
		return 0
	}

	var sum float64
	var count int
	for i := 0; i < n; i += stride {
		off := img.PixOffset(b.Min.X+i%w, b.Min.Y+i/w)
		p := img.Pix[off : off+3 : off+3]
		sum += 0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])
		count++
	}

	return sum / float64(count)
}

// Motion returns the mean absolute per-channel difference between the
// sampled pixels of cur and prev. It is 0 without a comparable prev.
func Motion(cur, prev *image.RGBA, stride int) float64 {
	if cur == nil || prev == nil {
		return 0
	}
	if stride < 1 {
		stride = 1
	}

	cb, pb := cur.Bounds(), prev.Bounds()
	if cb.Dx() != pb.Dx() || cb.Dy() != pb.Dy() {
		return 0
	}

	w, n := cb.Dx(), cb.Dx()*cb.Dy()
	if n == 0 {
		return 0
	}

	var sum float64
	var count int
	for i := 0; i < n; i += stride {
		x, y := i%w, i/w
		co := cur.PixOffset(cb.Min.X+x, cb.Min.Y+y)
		po := prev.PixOffset(pb.Min.X+x, pb.Min.Y+y)
		for c := 0; c < 3; c++ {
			sum += absDiff(cur.Pix[co+c], prev.Pix[po+c])
		}
		count += 3
	}

	return sum / float64(count)
}

func absDiff(a, b uint8) float64 {
	if a > b {
		return float64(a - b)
	}
	return float64(b - a)
}
