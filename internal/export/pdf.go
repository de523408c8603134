package export

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"
)

// PDFWriter writes an A4 PDF with the title, the generated line and the text
// in a monospaced body.
//
// Without a font file the PDF core fonts are used, which cover the Windows-1252
// character set; other characters are dropped. Setting FontPath to a TrueType
// font embeds it and allows any character the font covers.
type PDFWriter struct {
	// FontPath is an optional UTF-8 TrueType font file.
	FontPath string
}

const (
	pdfFontFamily = "export"
	pdfMargin     = 15.0
	pdfLineHeight = 5.0
)

// Format implements Writer.
func (p PDFWriter) Format() Format { return FormatPDF }

// Available implements Writer. A configured font that cannot be read makes
// the format unavailable.
func (p PDFWriter) Available() error {
	if p.FontPath == "" {
		return nil
	}
	info, err := os.Stat(p.FontPath)
	if err != nil {
		return fmt.Errorf("%w: pdf font: %v", ErrFormatUnavailable, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: pdf font %s is a directory", ErrFormatUnavailable, p.FontPath)
	}
	return nil
}

// Write implements Writer.
func (p PDFWriter) Write(w io.Writer, doc Document) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("ocrdesk", true)

	heading, body := "Helvetica", "Courier"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if p.FontPath != "" {
		pdf.AddUTF8Font(pdfFontFamily, "", p.FontPath)
		heading, body = pdfFontFamily, pdfFontFamily
		tr = func(s string) string { return s }
	}
	if pdf.Err() {
		return fmt.Errorf("failed to load pdf font: %w", pdf.Error())
	}

	pdf.AddPage()

	style := "B"
	if p.FontPath != "" {
		style = ""
	}
	pdf.SetFont(heading, style, 18)
	pdf.MultiCell(0, 9, tr(doc.Title), "", "L", false)

	pdf.SetFont(heading, "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.MultiCell(0, 6, tr(doc.generatedLine()), "", "L", false)
	pdf.Ln(4)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont(body, "", 10)
	text := strings.ReplaceAll(doc.Text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\t", "    ")
	pdf.MultiCell(0, pdfLineHeight, tr(text), "", "L", false)

	if pdf.Err() {
		return fmt.Errorf("failed to render pdf: %w", pdf.Error())
	}
	return pdf.Output(w)
}
