package preprocess

import "image"

const (
	// Fixed equalization parameters. Not user-exposed, so repeated runs
	// over the same input stay byte-identical.
	claheClipLimit = 2.0
	claheTileGrid  = 8
)

// equalizeAdaptive applies contrast-limited adaptive histogram
// equalization to the luminance channel of a grayscale image. The image
// is divided into a tileGrid x tileGrid grid; each tile gets a clipped,
// redistributed histogram mapping, and pixels are remapped by bilinear
// interpolation between the four surrounding tile mappings to avoid
// visible tile seams.
func equalizeAdaptive(img *image.NRGBA, clipLimit float64, tileGrid int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return img
	}

	tilesX, tilesY := tileGrid, tileGrid
	if tilesX > w {
		tilesX = w
	}
	if tilesY > h {
		tilesY = h
	}

	// Balanced partition: tile k covers [k*n/tiles, (k+1)*n/tiles), so
	// every tile is non-empty for any dimension >= the tile count.
	maps := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0, y0 := tx*w/tilesX, ty*h/tilesY
			x1, y1 := (tx+1)*w/tilesX, (ty+1)*h/tilesY
			maps[ty*tilesX+tx] = tileMapping(img, b, x0, y0, x1, y1, clipLimit)
		}
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		// Tile-space position of the pixel relative to tile centers.
		fy := (float64(y)+0.5)*float64(tilesY)/float64(h) - 0.5
		ty0 := int(fy)
		if fy < 0 {
			ty0 = -1
		}
		wy := fy - float64(ty0)
		tyA, tyB := clampTile(ty0, tilesY), clampTile(ty0+1, tilesY)

		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)*float64(tilesX)/float64(w) - 0.5
			tx0 := int(fx)
			if fx < 0 {
				tx0 = -1
			}
			wx := fx - float64(tx0)
			txA, txB := clampTile(tx0, tilesX), clampTile(tx0+1, tilesX)

			v := img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)]
			tl := float64(maps[tyA*tilesX+txA][v])
			tr := float64(maps[tyA*tilesX+txB][v])
			bl := float64(maps[tyB*tilesX+txA][v])
			br := float64(maps[tyB*tilesX+txB][v])

			top := tl + (tr-tl)*wx
			bot := bl + (br-bl)*wx
			val := uint8(top + (bot-top)*wy + 0.5)

			i := out.PixOffset(x, y)
			out.Pix[i+0] = val
			out.Pix[i+1] = val
			out.Pix[i+2] = val
			out.Pix[i+3] = 255
		}
	}

	return out
}

// tileMapping builds the clipped-histogram equalization lookup table for
// one tile.
func tileMapping(img *image.NRGBA, b image.Rectangle, x0, y0, x1, y1 int, clipLimit float64) [256]uint8 {
	var hist [256]int
	area := (x1 - x0) * (y1 - y0)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			hist[img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)]]++
		}
	}

	// Clip and redistribute the excess uniformly.
	clip := int(clipLimit * float64(area) / 256)
	if clip < 1 {
		clip = 1
	}
	excess := 0
	for i := range hist {
		if hist[i] > clip {
			excess += hist[i] - clip
			hist[i] = clip
		}
	}
	share := excess / 256
	remainder := excess % 256
	for i := range hist {
		hist[i] += share
		if i < remainder {
			hist[i]++
		}
	}

	var lut [256]uint8
	cdf := 0
	for i := range hist {
		cdf += hist[i]
		lut[i] = uint8((cdf*255 + area/2) / area)
	}
	return lut
}

func clampTile(t, n int) int {
	if t < 0 {
		return 0
	}
	if t >= n {
		return n - 1
	}
	return t
}
