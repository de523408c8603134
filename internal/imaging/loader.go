package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
)

var (
	// ErrUnsupportedFormat is returned for inputs whose extension is not one of
	// the supported image types, or whose contents cannot be decoded.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrEmptyClipboard is returned when the clipboard holds no bitmap or does
	// not answer in time.
	ErrEmptyClipboard = errors.New("no image in clipboard")
)

// DefaultClipboardTimeout bounds a clipboard read when the source does not set
// its own timeout.
const DefaultClipboardTimeout = 5 * time.Second

// supportedExtensions maps accepted file extensions to the decoder name
// expected for them.
var supportedExtensions = map[string]string{
	".png":  "png",
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".tif":  "tiff",
	".tiff": "tiff",
	".bmp":  "bmp",
	".gif":  "gif",
}

// SupportedExtensions returns the accepted image file extensions, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedExtensions))
	for ext := range supportedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// IsSupportedFile reports whether path has an accepted image extension.
func IsSupportedFile(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Source is an input that Normalize can decode.
//
// Sources are created with FileSource, ClipboardSource or BitmapSource.
type Source interface {
	// Label identifies the source in logs and reports.
	Label() string

	decode(ctx context.Context) (image.Image, string, error)
}

// FileSource returns a source that decodes the image file at path.
func FileSource(path string) Source {
	return fileSource{path: path}
}

// ClipboardSource returns a source that reads a bitmap from cb.
//
// The read is abandoned after timeout (DefaultClipboardTimeout when timeout is
// not positive) and reported as ErrEmptyClipboard.
func ClipboardSource(cb Clipboard, timeout time.Duration) Source {
	if timeout <= 0 {
		timeout = DefaultClipboardTimeout
	}
	return clipboardSource{cb: cb, timeout: timeout}
}

// BitmapSource returns a source for an image that is already decoded, such as
// a rendered PDF page. label is used in reports.
func BitmapSource(img image.Image, label string) Source {
	return bitmapSource{img: img, label: label}
}

// Normalize decodes src into a Raster.
//
// Parameters:
//   - ctx: Bounds clipboard reads; file and bitmap sources ignore it.
//   - src: The input to decode.
//
// Returns:
//   - *Raster: The decoded pixels, dimensions and color mode.
//   - error: ErrUnsupportedFormat for rejected or undecodable files,
//     ErrEmptyClipboard for clipboard sources without a bitmap, or the
//     underlying I/O error when a file cannot be opened.
//
// Decoded pixels are passed through without resizing or color correction.
func Normalize(ctx context.Context, src Source) (*Raster, error) {
	if src == nil {
		return nil, fmt.Errorf("nil source")
	}

	img, format, err := src.decode(ctx)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: %s decoded to an empty image", ErrUnsupportedFormat, src.Label())
	}

	return newRaster(img, format, src.Label()), nil
}

type fileSource struct {
	path string
}

func (s fileSource) Label() string { return s.path }

func (s fileSource) decode(_ context.Context) (image.Image, string, error) {
	ext := strings.ToLower(filepath.Ext(s.path))
	want, ok := supportedExtensions[ext]
	if !ok {
		if ext == "" {
			ext = "(none)"
		}
		return nil, "", fmt.Errorf("%w: extension %s", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := imaging.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("%w: cannot decode %s as %s: %v", ErrUnsupportedFormat, filepath.Base(s.path), want, err)
	}

	return img, want, nil
}

type clipboardSource struct {
	cb      Clipboard
	timeout time.Duration
}

func (s clipboardSource) Label() string { return "clipboard" }

func (s clipboardSource) decode(ctx context.Context) (image.Image, string, error) {
	if s.cb == nil {
		return nil, "", fmt.Errorf("%w: no clipboard configured", ErrEmptyClipboard)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type reply struct {
		data []byte
		err  error
	}
	replies := make(chan reply, 1)
	go func() {
		data, err := s.cb.ReadImage(ctx)
		replies <- reply{data: data, err: err}
	}()

	var r reply
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("%w: clipboard did not answer within %s", ErrEmptyClipboard, s.timeout)
	case r = <-replies:
	}

	if r.err != nil {
		return nil, "", r.err
	}
	if len(r.data) == 0 {
		return nil, "", ErrEmptyClipboard
	}

	img, format, err := image.Decode(bytes.NewReader(r.data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: clipboard data is not a bitmap: %v", ErrEmptyClipboard, err)
	}
	return img, format, nil
}

type bitmapSource struct {
	img   image.Image
	label string
}

func (s bitmapSource) Label() string { return s.label }

func (s bitmapSource) decode(_ context.Context) (image.Image, string, error) {
	if s.img == nil {
		return nil, "", fmt.Errorf("%w: empty bitmap %s", ErrUnsupportedFormat, s.label)
	}
	return s.img, "bitmap", nil
}
