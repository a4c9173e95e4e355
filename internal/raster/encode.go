package raster

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
)

var ErrUnknownImageFormat = errors.New("unknown image format")

// ImageFormat names a preview encoding.
type ImageFormat string

const (
	WebP ImageFormat = "webp"
	TGA  ImageFormat = "tga"
	PNG  ImageFormat = "png"
)

var ImageFormats = []ImageFormat{WebP, TGA, PNG}

func ParseImageFormat(s string) (ImageFormat, error) {
	f := ImageFormat(strings.ToLower(strings.TrimPrefix(s, ".")))
	switch f {
	case WebP, TGA, PNG:
		return f, nil
	}
	return "", fmt.Errorf("raster: %w %q", ErrUnknownImageFormat, s)
}

// ContentType is the media type served for f.
func (f ImageFormat) ContentType() string {
	switch f {
	case WebP:
		return "image/webp"
	case TGA:
		return "image/x-tga"
	}
	return "image/png"
}

// Encode writes img in format f.
func Encode(w io.Writer, img image.Image, f ImageFormat) error {
	var err error
	switch f {
	case WebP:
		err = nativewebp.Encode(w, img, nil)
	case TGA:
		err = tga.Encode(w, img)
	case PNG:
		err = png.Encode(w, img)
	default:
		return fmt.Errorf("raster: %w %q", ErrUnknownImageFormat, f)
	}
	if err != nil {
		return fmt.Errorf("raster: %s encode: %w", f, err)
	}
	return nil
}

// Save encodes img to path, creating parent directories.
func Save(path string, img image.Image, f ImageFormat) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(out, img, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
