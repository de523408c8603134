package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ironsheep/ocrdesk/internal/document"
	"github.com/ironsheep/ocrdesk/internal/export"
	"github.com/ironsheep/ocrdesk/internal/imaging"
	"github.com/ironsheep/ocrdesk/internal/ocr"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{errors.New("boom"), ExitError},
		{fmt.Errorf("%w: x.webp", imaging.ErrUnsupportedFormat), ExitInput},
		{fmt.Errorf("failed to open document: %w", fs.ErrNotExist), ExitInput},
		{imaging.ErrEmptyClipboard, ExitInput},
		{imaging.ErrClipboardUnavailable, ExitInput},
		{ocr.ErrEngineNotFound, ExitEngine},
		{fmt.Errorf("page 2: %w", ocr.ErrRecognitionFailed), ExitEngine},
		{ocr.ErrUnsupportedLanguage, ExitEngine},
		{document.ErrCorruptDocument, ExitDocument},
		{document.ErrEncryptedDocument, ExitDocument},
		{document.ErrRendererNotFound, ExitDocument},
		{export.ErrFormatUnavailable, ExitExport},
		{fmt.Errorf("wrap: %w", export.ErrWriteError), ExitExport},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err), "%v", tt.err)
	}
}
