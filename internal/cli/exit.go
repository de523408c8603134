package cli

import (
	"errors"
	"io/fs"

	"github.com/ironsheep/ocrdesk/internal/document"
	"github.com/ironsheep/ocrdesk/internal/export"
	"github.com/ironsheep/ocrdesk/internal/imaging"
	"github.com/ironsheep/ocrdesk/internal/ocr"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitError    = 1
	ExitInput    = 2
	ExitEngine   = 3
	ExitDocument = 4
	ExitExport   = 5
)

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, fs.ErrNotExist),
		errors.Is(err, imaging.ErrUnsupportedFormat),
		errors.Is(err, imaging.ErrEmptyClipboard),
		errors.Is(err, imaging.ErrClipboardUnavailable):
		return ExitInput
	case errors.Is(err, ocr.ErrEngineNotFound),
		errors.Is(err, ocr.ErrRecognitionFailed),
		errors.Is(err, ocr.ErrUnsupportedLanguage):
		return ExitEngine
	case errors.Is(err, document.ErrCorruptDocument),
		errors.Is(err, document.ErrEncryptedDocument),
		errors.Is(err, document.ErrRendererNotFound):
		return ExitDocument
	case errors.Is(err, export.ErrFormatUnavailable),
		errors.Is(err, export.ErrWriteError):
		return ExitExport
	default:
		return ExitError
	}
}
