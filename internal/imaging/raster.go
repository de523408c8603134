package imaging

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	"github.com/disintegration/imaging"
)

// ColorMode describes how a raster stores its pixels.
type ColorMode string

const (
	ModeGray     ColorMode = "gray"
	ModeGray16   ColorMode = "gray16"
	ModeRGB      ColorMode = "rgb" // YCbCr and other opaque 3-channel buffers
	ModeRGBA     ColorMode = "rgba"
	ModeRGBA64   ColorMode = "rgba64"
	ModeCMYK     ColorMode = "cmyk"
	ModePaletted ColorMode = "paletted"
	ModeUnknown  ColorMode = "unknown"
)

// Raster is a decoded bitmap ready for recognition.
//
// The pixel buffer is the decoded image.Image exactly as the decoder returned
// it. Width and Height are taken from its bounds.
type Raster struct {
	// Image is the decoded pixel buffer.
	Image image.Image `json:"-"`

	// Width is the raster width in pixels.
	Width int `json:"width"`

	// Height is the raster height in pixels.
	Height int `json:"height"`

	// Mode is the color mode of Image.
	Mode ColorMode `json:"mode"`

	// Format names the decoder that produced the raster ("png", "jpeg", "gif",
	// "bmp", "tiff") or "bitmap" for in-memory sources.
	Format string `json:"format"`

	// Source identifies where the raster came from, for logs and reports.
	Source string `json:"source"`

	// Page is the 1-based page number for rasters rendered from a document,
	// or 0 when the raster did not come from a document.
	Page int `json:"page,omitempty"`
}

// newRaster wraps a decoded image.
func newRaster(img image.Image, format, source string) *Raster {
	b := img.Bounds()
	return &Raster{
		Image:  img,
		Width:  b.Dx(),
		Height: b.Dy(),
		Mode:   colorModeOf(img),
		Format: format,
		Source: source,
	}
}

// colorModeOf classifies an image by its concrete type, falling back to the
// color model for types outside the standard library.
func colorModeOf(img image.Image) ColorMode {
	switch img.(type) {
	case *image.Gray:
		return ModeGray
	case *image.Gray16:
		return ModeGray16
	case *image.RGBA, *image.NRGBA:
		return ModeRGBA
	case *image.RGBA64, *image.NRGBA64:
		return ModeRGBA64
	case *image.CMYK:
		return ModeCMYK
	case *image.Paletted:
		return ModePaletted
	case *image.YCbCr:
		return ModeRGB
	}

	switch img.ColorModel() {
	case color.GrayModel:
		return ModeGray
	case color.Gray16Model:
		return ModeGray16
	case color.RGBAModel, color.NRGBAModel:
		return ModeRGBA
	case color.RGBA64Model, color.NRGBA64Model:
		return ModeRGBA64
	case color.CMYKModel:
		return ModeCMYK
	case color.YCbCrModel:
		return ModeRGB
	}
	return ModeUnknown
}

// String returns a short description such as "640x480 rgba png".
func (r *Raster) String() string {
	return fmt.Sprintf("%dx%d %s %s", r.Width, r.Height, r.Mode, r.Format)
}

// EncodePNG writes the raster to w as PNG.
func (r *Raster) EncodePNG(w io.Writer) error {
	if r == nil || r.Image == nil {
		return fmt.Errorf("empty raster")
	}
	return imaging.Encode(w, r.Image, imaging.PNG)
}

// WriteTemp saves the raster to a new PNG file in dir (the system temp
// directory when dir is empty) and returns its path.
//
// The caller is responsible for removing the file with os.Remove.
func (r *Raster) WriteTemp(dir, pattern string) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()

	if err := r.EncodePNG(f); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to encode temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close temp image: %w", err)
	}
	return path, nil
}
