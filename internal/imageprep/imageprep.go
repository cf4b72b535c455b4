// Package imageprep shrinks photos of handwriting and math problems before
// they are uploaded.
package imageprep

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	// MaxDimension bounds the longer side of an uploaded image.
	MaxDimension = 2048
	// MaxInputSize matches the API's upload limit for images.
	MaxInputSize = 20 << 20
)

// ErrTooLarge is returned for inputs over MaxInputSize.
var ErrTooLarge = errors.New("image is larger than 20MB")

// Image is an upload-ready image.
type Image struct {
	Name    string
	Data    []byte
	Resized bool
}

// Prepare fits the image within maxDim x maxDim, applying its EXIF
// orientation. Images that already fit, and formats the decoder does not know
// (webp, heic), are returned unchanged for the server to handle.
func Prepare(name string, data []byte, maxDim int) (Image, error) {
	if len(data) > MaxInputSize {
		return Image{}, fmt.Errorf("%s: %w", filepath.Base(name), ErrTooLarge)
	}
	if maxDim <= 0 {
		maxDim = MaxDimension
	}
	orig := Image{Name: name, Data: data}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if errors.Is(err, image.ErrFormat) {
		return orig, nil
	}
	if err != nil {
		return Image{}, fmt.Errorf("decoding %s: %w", filepath.Base(name), err)
	}

	b := img.Bounds()
	if b.Dx() <= maxDim && b.Dy() <= maxDim {
		return orig, nil
	}

	format, err := imaging.FormatFromFilename(name)
	if err != nil {
		format = imaging.PNG
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".png"
	}

	var buf bytes.Buffer
	resized := imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		return Image{}, fmt.Errorf("encoding %s: %w", filepath.Base(name), err)
	}
	return Image{Name: name, Data: buf.Bytes(), Resized: true}, nil
}
