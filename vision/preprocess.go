// Package vision reads and writes platform pixel buffers.
//
// Everything here works on Go images and never touches the foreign module:
// decoded files are normalised to *image.NRGBA, which is the canvas-style
// RGBA layout the binding exchanges with the module.
package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image source errors
var (
	ErrInvalidImage      = errors.New("vision: invalid image data")
	ErrUnsupportedFormat = errors.New("vision: unsupported image format")
	ErrInvalidDimensions = errors.New("vision: invalid dimensions")
	ErrEmptyImage        = errors.New("vision: empty image data")
)

// DefaultJPEGQuality is used when SaveFile is given a quality outside 1..100.
const DefaultJPEGQuality = 90

// DecodeImage decodes PNG, JPEG, GIF, BMP, TIFF or WebP data and returns
// the format name reported by the decoder.
// This is a pure function with no side effects.
func DecodeImage(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	return img, format, nil
}

// LoadFile decodes an image file and normalises it to NRGBA.
func LoadFile(path string) (*image.NRGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vision: read %s: %w", path, err)
	}
	img, _, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ToNRGBA(img), nil
}

// ToNRGBA returns img as a tightly packed NRGBA image anchored at (0,0).
// An NRGBA image that already has that shape is returned as is.
// This is a pure function with no side effects.
func ToNRGBA(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && bounds.Min == (image.Point{}) && n.Stride == 4*bounds.Dx() {
		return n
	}

	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}

// FitWithin scales img down so neither side exceeds maxSide, keeping the
// aspect ratio, using Catmull-Rom resampling. Images that already fit, and
// a maxSide of zero or less, are returned unchanged.
// This is a pure function with no side effects.
func FitWithin(img *image.NRGBA, maxSide int) *image.NRGBA {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if maxSide <= 0 || (width <= maxSide && height <= maxSide) {
		return img
	}

	scale := float64(maxSide) / float64(max(width, height))
	newWidth := max(1, int(float64(width)*scale))
	newHeight := max(1, int(float64(height)*scale))

	dst := image.NewNRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// EncodeJPEG writes img as JPEG. Alpha is dropped by the encoder.
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}

// FormatFor returns the output format for a file name: "png" or "jpeg".
func FormatFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png", nil
	case ".jpg", ".jpeg":
		return "jpeg", nil
	default:
		return "", fmt.Errorf("%w: %q (use .png, .jpg or .jpeg)", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// SaveFile encodes img in the format implied by the extension of path.
func SaveFile(path string, img image.Image, jpegQuality int) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	if img.Bounds().Empty() {
		return ErrInvalidDimensions
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		err = EncodePNG(&buf, img)
	default:
		err = EncodeJPEG(&buf, img, jpegQuality)
	}
	if err != nil {
		return fmt.Errorf("vision: encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("vision: write %s: %w", path, err)
	}
	return nil
}
