package preprocess

import (
	"image"
	"math"
)

const (
	// Estimates below this magnitude are noise; rotation is skipped.
	minSkewDegrees = 0.5
	// Estimates beyond this are almost certainly a mis-detected layout
	// rather than page tilt.
	maxSkewDegrees = 45.0
	// Minimum number of dark pixels for a usable estimate.
	minInkPixels = 64
	// Minimum axis anisotropy of the ink distribution. Near-isotropic
	// distributions (sparse dots, empty pages) give meaningless angles.
	minAnisotropy = 0.05
)

// estimateSkew estimates the tilt of text lines in a grayscale image from
// the second-order moments of its dark pixels, the same measurement a
// minimum-area bounding rectangle makes. It returns the correction angle
// in degrees and whether the estimate is reliable; unreliable estimates
// leave the caller's image untouched rather than failing the run.
func estimateSkew(img *image.NRGBA) (float64, bool) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return 0, false
	}

	threshold := otsuThreshold(img)

	// First pass: centroid of ink pixels.
	var n, sumX, sumY float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)] <= threshold {
				n++
				sumX += float64(x)
				sumY += float64(y)
			}
		}
	}
	if n < minInkPixels {
		return 0, false
	}
	cx, cy := sumX/n, sumY/n

	// Second pass: central moments.
	var mu20, mu02, mu11 float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)] <= threshold {
				dx, dy := float64(x)-cx, float64(y)-cy
				mu20 += dx * dx
				mu02 += dy * dy
				mu11 += dx * dy
			}
		}
	}

	if mu20+mu02 == 0 {
		return 0, false
	}
	anisotropy := math.Hypot(mu20-mu02, 2*mu11) / (mu20 + mu02)
	if anisotropy < minAnisotropy {
		return 0, false
	}

	// Orientation of the principal axis, in degrees. With y growing
	// downward this is also the counter-clockwise rotation that levels
	// the axis, so it feeds the rotation directly.
	angle := 0.5 * math.Atan2(2*mu11, mu20-mu02) * 180 / math.Pi

	if math.Abs(angle) < minSkewDegrees || math.Abs(angle) > maxSkewDegrees {
		return 0, false
	}
	return angle, true
}

// otsuThreshold computes the global binarization threshold that maximizes
// between-class variance of the luminance histogram.
func otsuThreshold(img *image.NRGBA) uint8 {
	b := img.Bounds()
	var hist [256]int
	total := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[img.Pix[img.PixOffset(x, y)]]++
			total++
		}
	}
	if total == 0 {
		return 128
	}

	var sum float64
	for i, c := range hist {
		sum += float64(i) * float64(c)
	}

	var sumB, wB float64
	var best float64
	threshold := 128
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = t
		}
	}
	return uint8(threshold)
}
