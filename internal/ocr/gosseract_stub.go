//go:build !(cgo && (linux || gosseract))

package ocr

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// LibraryAvailable reports whether this build links the Tesseract library.
const LibraryAvailable = false

// ErrLibraryNotEnabled is returned by NewLibrary in builds that do not link
// Tesseract: without cgo, or on other platforms without the gosseract tag.
var ErrLibraryNotEnabled = errors.New("in-process OCR not enabled: build with CGO_ENABLED=1 (and -tags gosseract outside Linux)")

// Library is the in-process engine. This build does not include it.
type Library struct{}

// NewLibrary always fails in this build; the error wraps ErrEngineNotFound.
func NewLibrary(string, zerolog.Logger) (*Library, error) {
	return nil, errors.Join(ErrEngineNotFound, ErrLibraryNotEnabled)
}

// Name implements Engine.
func (l *Library) Name() string { return "gosseract" }

// Probe implements Engine.
func (l *Library) Probe(context.Context) (*EngineInfo, error) {
	err := errors.Join(ErrEngineNotFound, ErrLibraryNotEnabled)
	return &EngineInfo{Name: l.Name(), Backend: "gosseract (not linked)", Error: err.Error()}, err
}

// Languages implements Engine.
func (l *Library) Languages(context.Context) ([]string, error) {
	return nil, errors.Join(ErrEngineNotFound, ErrLibraryNotEnabled)
}

// Recognize implements Engine.
func (l *Library) Recognize(context.Context, Request) (*Result, error) {
	return nil, errors.Join(ErrEngineNotFound, ErrLibraryNotEnabled)
}
