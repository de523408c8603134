package imaging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	textclip "github.com/atotto/clipboard"
	"golang.design/x/clipboard"
)

// ErrClipboardUnavailable is returned when the platform clipboard cannot be
// opened at all (no display, or a build without clipboard support).
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// Clipboard reads bitmaps from a clipboard.
type Clipboard interface {
	// ReadImage returns the clipboard bitmap as encoded image bytes (PNG on
	// every supported platform), or nil when the clipboard holds no image.
	ReadImage(ctx context.Context) ([]byte, error)
}

// SystemClipboard is the platform clipboard.
//
// Bitmaps are read through golang.design/x/clipboard; text is written through
// github.com/atotto/clipboard, which shells out to the platform tools and
// needs no display connection setup.
type SystemClipboard struct {
	once    sync.Once
	initErr error
}

// NewSystemClipboard returns a clipboard bound to the platform clipboard.
// The platform connection is opened lazily on first read.
func NewSystemClipboard() *SystemClipboard {
	return &SystemClipboard{}
}

// ReadImage implements Clipboard.
func (c *SystemClipboard) ReadImage(ctx context.Context) ([]byte, error) {
	c.once.Do(func() {
		c.initErr = clipboard.Init()
	})
	if c.initErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrClipboardUnavailable, c.initErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return clipboard.Read(clipboard.FmtImage), nil
}

// WriteText places text on the clipboard.
func (c *SystemClipboard) WriteText(text string) error {
	if textclip.Unsupported {
		return fmt.Errorf("%w: no clipboard utility found", ErrClipboardUnavailable)
	}
	if err := textclip.WriteAll(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return nil
}
