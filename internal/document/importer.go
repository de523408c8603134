package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"github.com/ironsheep/ocrdesk/internal/imaging"
)

var (
	// ErrCorruptDocument is returned when the PDF parser cannot open a file.
	ErrCorruptDocument = errors.New("corrupt document")

	// ErrEncryptedDocument is returned when a document needs a password that
	// was not supplied, or the supplied password is wrong.
	ErrEncryptedDocument = errors.New("encrypted document")

	// errParserUnsupported marks documents the built-in parser declines but
	// which may still be valid, such as PDF 2.0 or AES-256 encrypted files.
	errParserUnsupported = errors.New("unsupported by parser")
)

// IsDocument reports whether path names a PDF.
func IsDocument(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// Page is one physical page of a document.
//
// Exactly one of Raster and Err is set. Text holds the page's embedded text
// layer, if it has one, independent of whether rendering succeeded.
type Page struct {
	// Index is the 1-based physical page number.
	Index int `json:"index"`

	// Raster is the rendered page.
	Raster *imaging.Raster `json:"raster,omitempty"`

	// Text is the page's embedded text layer.
	Text string `json:"text,omitempty"`

	// Err is the rendering failure for this page.
	Err error `json:"-"`
}

// Importer opens PDFs and produces one raster per page.
//
// Every page is rendered, whether it holds a scanned image, vector art or a
// text layer. Pages are never skipped. The importer performs no OCR.
type Importer struct {
	renderer PageRenderer
	dpi      int
	password string
	logger   zerolog.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithDPI sets the page rendering resolution.
func WithDPI(dpi int) Option {
	return func(im *Importer) {
		if dpi > 0 {
			im.dpi = dpi
		}
	}
}

// WithPassword sets the password used for encrypted documents.
func WithPassword(password string) Option {
	return func(im *Importer) {
		im.password = password
	}
}

// WithLogger sets the importer's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(im *Importer) {
		im.logger = logger
	}
}

// NewImporter returns an importer that renders pages with renderer.
func NewImporter(renderer PageRenderer, opts ...Option) *Importer {
	im := &Importer{
		renderer: renderer,
		dpi:      DefaultDPI,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Renderer returns the importer's page renderer.
func (im *Importer) Renderer() PageRenderer { return im.renderer }

// Check reports whether pages can be rendered.
func (im *Importer) Check(ctx context.Context) error {
	if im.renderer == nil {
		return fmt.Errorf("%w: no renderer configured", ErrRendererNotFound)
	}
	return im.renderer.Check(ctx)
}

// Document is an open PDF. Pages are rendered on demand by Page, so a caller
// can hold one raster at a time regardless of document length.
//
// Documents the built-in parser does not support are still rendered, but
// have no text layer.
//
// Page may be called from several goroutines.
type Document struct {
	path     string
	file     *os.File
	reader   *pdf.Reader
	pages    int
	importer *Importer

	// textMu serializes text-layer extraction; the parser is not safe for
	// concurrent use.
	textMu sync.Mutex
}

// Open parses the document at path.
//
// Returns:
//   - *Document: The open document. Close it when done.
//   - error: ErrCorruptDocument when the file cannot be parsed,
//     ErrEncryptedDocument when a password is needed, the renderer's error
//     when no renderer is available, or the I/O error when the file cannot
//     be read.
func (im *Importer) Open(ctx context.Context, path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat document: %w", err)
	}

	var pages int
	reader, err := im.newReader(f, info.Size())
	switch {
	case err == nil:
		pages, err = numPages(reader)
	case errors.Is(err, errParserUnsupported):
		pages, err = im.countPages(ctx, path, err)
	}
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := im.Check(ctx); err != nil {
		f.Close()
		return nil, err
	}

	im.logger.Debug().Str("path", path).Int("pages", pages).Msg("Document opened")

	return &Document{
		path:     path,
		file:     f,
		reader:   reader,
		pages:    pages,
		importer: im,
	}, nil
}

// newReader opens the PDF, trying the configured password once if the
// document is encrypted. The parser panics on some malformed input, so
// panics are reported as corruption.
func (im *Importer) newReader(f *os.File, size int64) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			reader, err = nil, fmt.Errorf("%w: %v", ErrCorruptDocument, r)
		}
	}()

	tried := false
	password := func() string {
		if tried {
			return ""
		}
		tried = true
		return im.password
	}

	reader, err = pdf.NewReaderEncrypted(f, size, password)
	switch {
	case err == nil:
		return reader, nil
	case errors.Is(err, pdf.ErrInvalidPassword):
		if im.password == "" {
			return nil, fmt.Errorf("%w: a password is required", ErrEncryptedDocument)
		}
		return nil, fmt.Errorf("%w: the password is incorrect", ErrEncryptedDocument)
	case strings.HasPrefix(err.Error(), "unsupported PDF"),
		strings.HasSuffix(err.Error(), "invalid header") && hasPDFSignature(f):
		return nil, fmt.Errorf("%w: %v", errParserUnsupported, err)
	default:
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
}

// hasPDFSignature reports whether f starts with a "%PDF-" header of any
// version.
func hasPDFSignature(f *os.File) bool {
	buf := make([]byte, 5)
	n, _ := f.ReadAt(buf, 0)
	return n == len(buf) && string(buf) == "%PDF-"
}

// countPages asks the renderer for the page count of a document the parser
// declined. Only the renderer decides whether a password is the problem.
func (im *Importer) countPages(ctx context.Context, path string, cause error) (int, error) {
	counter, ok := im.renderer.(PageCounter)
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrCorruptDocument, cause)
	}
	n, err := counter.PageCount(ctx, path, im.password)
	switch {
	case err == nil && n > 0:
		im.logger.Debug().Err(cause).Str("path", path).Msg("Parser declined document, pages counted by renderer")
		return n, nil
	case err == nil:
		return 0, fmt.Errorf("%w: no pages", ErrCorruptDocument)
	case errors.Is(err, ErrEncryptedDocument), errors.Is(err, ErrRendererNotFound), ctx.Err() != nil:
		return 0, err
	default:
		return 0, fmt.Errorf("%w: %v (%v)", ErrCorruptDocument, cause, err)
	}
}

func numPages(reader *pdf.Reader) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("%w: page tree: %v", ErrCorruptDocument, r)
		}
	}()
	n = reader.NumPage()
	if n <= 0 {
		return 0, fmt.Errorf("%w: no pages", ErrCorruptDocument)
	}
	return n, nil
}

// Path returns the document's file path.
func (d *Document) Path() string { return d.path }

// NumPages returns the number of physical pages.
func (d *Document) NumPages() int { return d.pages }

// Close releases the document's file handle.
func (d *Document) Close() error {
	return d.file.Close()
}

// Page renders the 1-based page i and extracts its text layer.
// Failures are reported in Page.Err.
func (d *Document) Page(ctx context.Context, i int) Page {
	page := Page{Index: i}
	if i < 1 || i > d.pages {
		page.Err = fmt.Errorf("page %d out of range 1-%d", i, d.pages)
		return page
	}

	page.Text = d.textLayer(i)

	im := d.importer
	img, err := im.renderer.RenderPage(ctx, d.path, i, RenderOptions{DPI: im.dpi, Password: im.password})
	if err != nil {
		page.Err = err
		return page
	}

	raster, err := imaging.Normalize(ctx, imaging.BitmapSource(img, fmt.Sprintf("%s#page=%d", filepath.Base(d.path), i)))
	if err != nil {
		page.Err = err
		return page
	}
	raster.Page = i
	page.Raster = raster
	return page
}

// textLayer returns the embedded text of page i, or "" when the page has
// none or it cannot be decoded.
func (d *Document) textLayer(i int) (text string) {
	d.textMu.Lock()
	defer d.textMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			d.importer.logger.Debug().Int("page", i).Interface("panic", r).Msg("Text layer unreadable")
			text = ""
		}
	}()

	if d.reader == nil {
		return ""
	}
	p := d.reader.Page(i)
	if p.V.IsNull() {
		return ""
	}
	content, err := p.GetPlainText(nil)
	if err != nil {
		d.importer.logger.Debug().Err(err).Int("page", i).Msg("Text layer unreadable")
		return ""
	}
	return strings.TrimSpace(content)
}

// Import opens the document at path and renders every page in physical
// order.
//
// A page that fails to render is returned with its Err set and the
// remaining pages are still processed. If ctx ends, the pages finished so
// far are returned together with the context's error.
func (im *Importer) Import(ctx context.Context, path string) ([]Page, error) {
	doc, err := im.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	pages := make([]Page, 0, doc.NumPages())
	for i := 1; i <= doc.NumPages(); i++ {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		page := doc.Page(ctx, i)
		if page.Err != nil {
			im.logger.Warn().Err(page.Err).Int("page", i).Str("path", path).Msg("Page failed, continuing with others")
		}
		pages = append(pages, page)
	}
	return pages, nil
}
