package ioutils

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif" // GIF decoder registration
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder registration
)

// CoverQuality is the JPEG quality used for every cover written to disk or tags.
const CoverQuality = 90

// ImageService prepares cover art downloaded from a book's detail page.
//
// Covers are scaled down (never up) so the longest side fits maxSize, and are
// always re-encoded as JPEG so that cover.jpg and the embedded ID3 picture
// share one format.
type ImageService struct {
	scaler draw.Scaler
}

// NewImageService creates an ImageService using Catmull-Rom scaling.
func NewImageService() *ImageService {
	return &ImageService{scaler: draw.CatmullRom}
}

// PrepareCover decodes data (JPEG, PNG, GIF or WebP), fits it within a
// maxSize x maxSize box keeping the aspect ratio, and returns JPEG bytes.
// A maxSize of zero or less disables resizing.
func (s *ImageService) PrepareCover(data []byte, maxSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty cover image")
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var dst image.Image = src
	bounds := src.Bounds()
	if w, h, scaled := fitWithin(bounds.Dx(), bounds.Dy(), maxSize); scaled {
		rgba := image.NewRGBA(image.Rect(0, 0, w, h))
		s.scaler.Scale(rgba, rgba.Bounds(), src, bounds, draw.Over, nil)
		dst = rgba
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: CoverQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fitWithin returns the dimensions of a width x height image scaled down so
// that neither side exceeds maxSize.
func fitWithin(width, height, maxSize int) (int, int, bool) {
	if maxSize <= 0 || (width <= maxSize && height <= maxSize) {
		return width, height, false
	}

	if width >= height {
		h := height * maxSize / width
		if h < 1 {
			h = 1
		}
		return maxSize, h, true
	}

	w := width * maxSize / height
	if w < 1 {
		w = 1
	}
	return w, maxSize, true
}
