package convert

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // screenshots arrive as PNG

	xdraw "golang.org/x/image/draw"
)

// Default bounds for images sent to the extraction service.
const (
	DefaultMaxEdge = 1024
	DefaultQuality = 85
)

// Bound decodes an image, shrinks it so that its longest edge is at most
// maxEdge (aspect ratio preserved, never upscaled), flattens it to RGB and
// re-encodes it as JPEG at the given quality.
//
// Zero or negative arguments select DefaultMaxEdge / DefaultQuality.
func Bound(src []byte, maxEdge, quality int) ([]byte, error) {
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	img, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("convert: decode: %w", err)
	}

	b := img.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), maxEdge)

	// JPEG has no alpha; draw over white the way a PNG screenshot would
	// look on screen.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(dst, dst.Bounds(), image.White, image.Point{}, xdraw.Src)
	if w == b.Dx() && h == b.Dy() {
		xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Over)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("convert: encode %s as jpeg: %w", format, err)
	}
	return out.Bytes(), nil
}

// FitWithin returns the largest size with the same aspect ratio as w x h
// whose longest edge does not exceed maxEdge. Sizes already within bounds
// are returned unchanged.
func FitWithin(w, h, maxEdge int) (int, int) {
	if w <= maxEdge && h <= maxEdge {
		return w, h
	}
	if w >= h {
		nh := h * maxEdge / w
		if nh < 1 {
			nh = 1
		}
		return maxEdge, nh
	}
	nw := w * maxEdge / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxEdge
}
