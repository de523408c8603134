package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ironsheep/ocrdesk/internal/ocr"
)

// Kind is the type of input a report was produced from.
type Kind string

const (
	KindImage     Kind = "image"
	KindDocument  Kind = "document"
	KindClipboard Kind = "clipboard"
)

// PageResult is the outcome for one raster. Images and clipboard bitmaps
// produce a single result; documents produce one per physical page.
type PageResult struct {
	// Index is the 1-based page number for documents, 0 otherwise.
	Index int `json:"index" yaml:"index"`

	// Text is the recognized text.
	Text string `json:"text" yaml:"text"`

	// TextLayer is the page's embedded text, for documents that have one.
	TextLayer string `json:"text_layer,omitempty" yaml:"text_layer,omitempty"`

	// Confidence is the mean word confidence, or -1 when unknown.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Language is the language the engine used.
	Language string `json:"language,omitempty" yaml:"language,omitempty"`

	// DetectedLanguage is set when auto-detection found a language.
	DetectedLanguage string `json:"detected_language,omitempty" yaml:"detected_language,omitempty"`

	// Words is the number of words the engine reported.
	Words int `json:"words" yaml:"words"`

	// Result is the engine's full result.
	Result *ocr.Result `json:"-" yaml:"-"`

	// Err is the failure for this page. Successful pages leave it nil.
	Err error `json:"-" yaml:"-"`

	// Error is Err's message, for serialized reports.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

func failedPage(index int, textLayer string, err error) PageResult {
	return PageResult{Index: index, TextLayer: textLayer, Confidence: -1, Err: err, Error: err.Error()}
}

// Report is the outcome of one pipeline run.
type Report struct {
	Kind   Kind   `json:"kind" yaml:"kind"`
	Source string `json:"source" yaml:"source"`

	// Name is the file's base name, or "clipboard".
	Name string `json:"name" yaml:"name"`

	// FileSize is the input file size in bytes, when read from a file.
	FileSize int64 `json:"file_size,omitempty" yaml:"file_size,omitempty"`

	// Width and Height are the image dimensions for single-raster inputs.
	Width  int `json:"width,omitempty" yaml:"width,omitempty"`
	Height int `json:"height,omitempty" yaml:"height,omitempty"`

	Settings Settings `json:"settings" yaml:"settings"`

	// DetectedLanguage is the first language found by auto-detection.
	DetectedLanguage string `json:"detected_language,omitempty" yaml:"detected_language,omitempty"`

	// UsedLanguage is the language the engine ran with.
	UsedLanguage string `json:"used_language,omitempty" yaml:"used_language,omitempty"`

	// Confidence is the word-weighted mean confidence, or -1 when unknown.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Pages holds the results in physical page order.
	Pages []PageResult `json:"pages" yaml:"pages"`

	Processed time.Time `json:"processed" yaml:"processed"`
}

// Text returns the recognized text of every successful page, in page order,
// separated by blank lines.
func (r *Report) Text() string {
	parts := make([]string, 0, len(r.Pages))
	for _, p := range r.Pages {
		if p.Err == nil && strings.TrimSpace(p.Text) != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Failed returns the indexes of pages that failed.
func (r *Report) Failed() []int {
	var failed []int
	for _, p := range r.Pages {
		if p.Err != nil {
			failed = append(failed, p.Index)
		}
	}
	return failed
}

// Err joins the per-page failures, or returns nil when every page succeeded.
func (r *Report) Err() error {
	var errs []error
	for _, p := range r.Pages {
		if p.Err != nil {
			errs = append(errs, fmt.Errorf("page %d: %w", p.Index, p.Err))
		}
	}
	return errors.Join(errs...)
}

const reportRule = "=================================================="

var noTextHints = []string{
	"Different Page Segmentation Mode (PSM) or OCR Engine Mode (OEM)",
	"Different language setting or disable language auto-detection",
	"Adjusting preprocessing options (deskew, adaptive threshold)",
	"Ensuring good image quality (resolution, clarity)",
}

// Render formats the report as the plain-text summary shown to users: a
// header describing the run, then the recognized text. Documents get one
// section per page with the embedded text layer next to the OCR output.
func (r *Report) Render() string {
	var b strings.Builder

	switch r.Kind {
	case KindDocument:
		b.WriteString("=== PDF OCR RESULTS ===\n")
	case KindClipboard:
		b.WriteString("=== CLIPBOARD OCR RESULTS ===\n")
	default:
		b.WriteString("=== IMAGE OCR RESULTS ===\n")
	}

	fmt.Fprintf(&b, "File: %s\n", r.Name)
	if r.FileSize > 0 {
		fmt.Fprintf(&b, "File size: %s\n", formatBytes(r.FileSize))
	}
	if r.Kind == KindDocument {
		fmt.Fprintf(&b, "Pages: %d\n", len(r.Pages))
	} else {
		fmt.Fprintf(&b, "Image size: %dx%d\n", r.Width, r.Height)
	}

	s := r.Settings
	fmt.Fprintf(&b, "Language (Selected): %s\n", s.Language)
	fmt.Fprintf(&b, "Language (Detected): %s\n", orDefault(r.DetectedLanguage, "none"))
	fmt.Fprintf(&b, "Language (OCR Used): %s\n", orDefault(r.UsedLanguage, s.Language))
	fmt.Fprintf(&b, "PSM: %s\n", s.PSM)
	fmt.Fprintf(&b, "OEM: %s\n", s.OEM)
	fmt.Fprintf(&b, "Preprocessing Enabled: %t\n", s.Preprocess.Enabled)
	if s.Preprocess.Enabled {
		fmt.Fprintf(&b, "  - Deskewing: %t\n", s.Preprocess.Deskew)
		fmt.Fprintf(&b, "  - Adaptive Threshold: %t\n", s.Preprocess.AdaptiveThreshold)
	}
	if s.Region != "" {
		fmt.Fprintf(&b, "Region: %s\n", s.Region)
	}
	b.WriteString("OCR Confidence: " + formatConfidence(r.Confidence) + "\n")

	text := r.Text()
	fmt.Fprintf(&b, "Characters found: %d\n", utf8.RuneCountInString(text))
	if failed := r.Failed(); len(failed) > 0 {
		fmt.Fprintf(&b, "Failed pages: %s\n", joinInts(failed))
	}
	fmt.Fprintf(&b, "Processed: %s\n", r.Processed.Format("2006-01-02 15:04:05"))
	b.WriteString(reportRule + "\n")

	if r.Kind == KindDocument {
		r.renderPages(&b)
	} else if strings.TrimSpace(text) != "" {
		b.WriteString("\n")
		b.WriteString(text)
		b.WriteString("\n")
	}

	if strings.TrimSpace(text) == "" {
		b.WriteString("\nNo text found. Try:\n")
		for _, hint := range noTextHints {
			b.WriteString("- " + hint + "\n")
		}
	}
	return b.String()
}

func (r *Report) renderPages(b *strings.Builder) {
	for _, p := range r.Pages {
		if p.TextLayer != "" {
			fmt.Fprintf(b, "\n=== Page %d - Regular Text (Directly Extracted) ===\n%s\n", p.Index, p.TextLayer)
		}
		switch {
		case p.Err != nil:
			fmt.Fprintf(b, "\n=== Page %d - Error: %v ===\n", p.Index, p.Err)
		case strings.TrimSpace(p.Text) == "":
			fmt.Fprintf(b, "\n=== Page %d - OCR Results (no text found) ===\n", p.Index)
		default:
			fmt.Fprintf(b, "\n=== Page %d - OCR Results (confidence %s) ===\n%s\n", p.Index, formatConfidence(p.Confidence), p.Text)
		}
	}
}

func formatConfidence(c float64) string {
	if c < 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", c)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
