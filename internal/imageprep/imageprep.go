// Package imageprep validates uploaded stool photos and normalises them to a
// bounded JPEG before they are sent to a vision backend.
package imageprep

import (
	"bytes"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder

	"pet-triage-backend/internal/shared/apperr"
)

const (
	// MaxBytes is the upload ceiling. Exactly MaxBytes is accepted.
	MaxBytes = 10 * 1024 * 1024

	// MaxPixels caps the decoded area. Compressed formats can declare far
	// more pixels than their byte size suggests.
	MaxPixels = 40_000_000

	MaxWidth    = 800
	MaxHeight   = 600
	JPEGQuality = 70
)

// Image is a normalised JPEG ready for upload.
type Image struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Validate checks size and type. The MIME type is sniffed from the bytes;
// a declared type, when present, must also be an image type.
func Validate(data []byte, declaredType string) (string, error) {
	if len(data) == 0 {
		return "", apperr.InvalidInput("image is empty")
	}
	if len(data) > MaxBytes {
		return "", apperr.InvalidInput("image exceeds the 10 MB limit")
	}
	declared := strings.ToLower(strings.TrimSpace(declaredType))
	if declared != "" && declared != "application/octet-stream" && !strings.HasPrefix(declared, "image/") {
		return "", apperr.InvalidInput("unsupported file type %q, an image is required", declaredType)
	}
	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return "", apperr.InvalidInput("unsupported file type %q, an image is required", detected.String())
	}
	return detected.String(), nil
}

// Prepare validates, decodes and re-encodes the image as JPEG, scaling it
// down to fit MaxWidth for landscape or MaxHeight otherwise. Images are
// never upscaled.
func Prepare(data []byte, declaredType string) (Image, error) {
	if _, err := Validate(data, declaredType); err != nil {
		return Image{}, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, apperr.InvalidInput("unsupported or corrupt image: %v", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return Image{}, apperr.InvalidInput("image dimensions %dx%d exceed the 40 MP limit", cfg.Width, cfg.Height)
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, apperr.InvalidInput("unsupported or corrupt image: %v", err)
	}

	b := src.Bounds()
	w, h := TargetSize(b.Dx(), b.Dy())

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return Image{}, err
	}
	return Image{Data: buf.Bytes(), ContentType: "image/jpeg", Width: w, Height: h}, nil
}

// TargetSize returns the scaled dimensions for a w×h source.
func TargetSize(w, h int) (int, int) {
	if w <= 0 || h <= 0 {
		return w, h
	}
	if w > h {
		if w > MaxWidth {
			return MaxWidth, max(1, h*MaxWidth/w)
		}
		return w, h
	}
	if h > MaxHeight {
		return max(1, w*MaxHeight/h), MaxHeight
	}
	return w, h
}
