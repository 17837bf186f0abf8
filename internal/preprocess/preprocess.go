// Package preprocess applies deterministic raster transforms ahead of
// recognition: deskew, contrast-limited local equalization, and
// binarization. Transforms are pure; each produces a new image.
package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	oerr "github.com/textlift/ocr-worker/internal/errors"
)

// Options selects the enabled transforms. The zero value is the identity.
type Options struct {
	Deskew   bool
	CLAHE    bool
	Binarize bool
}

// Enabled reports whether any transform is selected.
func (o Options) Enabled() bool {
	return o.Deskew || o.CLAHE || o.Binarize
}

var recognizedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// Load reads and decodes a raster image from disk. Unrecognized
// extensions and undecodable content fail before any transform runs.
func Load(path string) (image.Image, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !recognizedExtensions[ext] {
		return nil, oerr.NewInvalidImage(path, nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oerr.NewInvalidImage(path, err)
	}

	return Decode(path, data)
}

// Decode decodes a caller-supplied image buffer. The source name is used
// only for error reporting.
func Decode(source string, data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, oerr.NewInvalidImage(source, err)
	}
	return img, nil
}

// Apply runs the enabled transforms in their fixed order: deskew, then
// CLAHE, then binarization. Deskewing runs before equalization because
// angle estimation is more reliable before local contrast amplifies
// noise. Disabled transforms are identity; with nothing enabled the
// input is returned unchanged.
func Apply(img image.Image, opts Options) image.Image {
	if !opts.Enabled() {
		return img
	}

	gray := imaging.Grayscale(img)

	if opts.Deskew {
		if angle, ok := estimateSkew(gray); ok {
			gray = imaging.Rotate(gray, angle, color.White)
		}
	}

	if opts.CLAHE {
		gray = equalizeAdaptive(gray, claheClipLimit, claheTileGrid)
	}

	if opts.Binarize {
		gray = binarize(gray)
	}

	return gray
}

const (
	// Adaptive threshold parameters, fixed to match the recognition
	// engine's preferred input.
	thresholdBlockSize = 11
	thresholdConstant  = 4
)

// binarize blurs lightly and applies an inverted adaptive mean threshold,
// leaving text white on a black background.
func binarize(img *image.NRGBA) *image.NRGBA {
	blurred := imaging.Blur(img, 1.0)

	b := blurred.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))

	sums := integralImage(blurred)
	half := thresholdBlockSize / 2

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0, y0 := max(0, x-half), max(0, y-half)
			x1, y1 := min(w-1, x+half), min(h-1, y+half)
			area := (x1 - x0 + 1) * (y1 - y0 + 1)
			sum := sums[(y1+1)*(w+1)+(x1+1)] - sums[y0*(w+1)+(x1+1)] -
				sums[(y1+1)*(w+1)+x0] + sums[y0*(w+1)+x0]
			mean := int(sum) / area

			v := uint8(0)
			if int(blurred.Pix[blurred.PixOffset(b.Min.X+x, b.Min.Y+y)]) <= mean-thresholdConstant {
				v = 255
			}
			i := out.PixOffset(x, y)
			out.Pix[i+0] = v
			out.Pix[i+1] = v
			out.Pix[i+2] = v
			out.Pix[i+3] = 255
		}
	}

	return out
}

// integralImage computes the summed-area table of the red channel, which
// carries luminance for grayscale input. Dimensions are (h+1)x(w+1).
func integralImage(img *image.NRGBA) []uint64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	sums := make([]uint64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var row uint64
		for x := 0; x < w; x++ {
			row += uint64(img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)])
			sums[(y+1)*(w+1)+(x+1)] = sums[y*(w+1)+(x+1)] + row
		}
	}
	return sums
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
