package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// Format is an export file type.
type Format string

// Supported formats.
const (
	FormatTXT  Format = "txt"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatRTF  Format = "rtf"
	FormatHTML Format = "html"
	FormatXLSX Format = "xlsx"
)

// AllFormats lists every format this package can write, in display order.
var AllFormats = []Format{FormatTXT, FormatPDF, FormatDOCX, FormatRTF, FormatHTML, FormatXLSX}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ParseFormat parses a format name, case-insensitively. "htm" is accepted
// for html.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	if s == "htm" {
		s = "html"
	}
	for _, f := range AllFormats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// FormatFromPath infers the format from a destination path's extension.
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("cannot infer export format from %q: no extension", path)
	}
	return ParseFormat(ext)
}

// DefaultTitle heads formatted documents when the request sets no title.
const DefaultTitle = "OCR Results"

// Document is the content handed to a Writer.
type Document struct {
	// Text is the recognized text, written verbatim.
	Text string

	// Title heads formatted documents. Plain text output has no heading.
	Title string

	// Generated is shown as "Generated: <timestamp>" under the title.
	Generated time.Time
}

// generatedLine returns the "Generated: ..." line shown under the title.
func (d Document) generatedLine() string {
	return "Generated: " + d.Generated.Format("2006-01-02 15:04:05")
}

// Writer produces one export format.
//
// Adding a format means adding one Writer and registering it with a
// Dispatcher.
type Writer interface {
	// Format returns the format this writer produces.
	Format() Format

	// Available reports whether the writer can run in this process. It must
	// not touch the destination. A nil error means available.
	Available() error

	// Write renders doc to w.
	Write(w io.Writer, doc Document) error
}
