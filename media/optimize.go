package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 85

// optimized is the outcome of resizing and re-encoding one image.
type optimized struct {
	data      []byte
	width     int
	height    int
	extension string
}

// optimize resizes an image into the maxDim bounding box preserving aspect
// ratio and re-encodes it: PNG when the source carries transparency, JPEG
// otherwise, to keep the upload payload small.
func optimize(data []byte, maxDim int) (*optimized, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxDim || bounds.Dy() > maxDim {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
		bounds = img.Bounds()
	}

	var buf bytes.Buffer
	if hasAlpha(img, format) {
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
		return &optimized{data: buf.Bytes(), width: bounds.Dx(), height: bounds.Dy(), extension: "png"}, nil
	}

	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return &optimized{data: buf.Bytes(), width: bounds.Dx(), height: bounds.Dy(), extension: "jpg"}, nil
}

// hasAlpha reports whether the decoded image actually uses transparency.
// Only formats that can carry an alpha channel are worth scanning.
func hasAlpha(img image.Image, format string) bool {
	if format == "jpeg" {
		return false
	}
	bounds := img.Bounds()
	// sample on a coarse grid; full scans are wasteful on large photos
	stepX := bounds.Dx()/64 + 1
	stepY := bounds.Dy()/64 + 1
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			if _, _, _, a := img.At(x, y).RGBA(); a < 0xffff {
				return true
			}
		}
	}
	return false
}
