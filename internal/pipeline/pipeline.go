package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/ocrdesk/internal/document"
	"github.com/ironsheep/ocrdesk/internal/imaging"
	"github.com/ironsheep/ocrdesk/internal/ocr"
)

// Settings are the per-run recognition choices.
type Settings struct {
	// Language is the selected engine language ("eng", "eng+deu").
	Language string `json:"language" yaml:"language"`

	// PSM is the page segmentation mode.
	PSM ocr.PageSegMode `json:"psm" yaml:"psm"`

	// OEM is the engine mode.
	OEM ocr.EngineMode `json:"oem" yaml:"oem"`

	// Preprocess selects the cleanup applied to each raster before OCR.
	Preprocess imaging.PreprocessOptions `json:"preprocess" yaml:"preprocess"`

	// Region restricts recognition to part of each raster. It takes the forms
	// accepted by imaging.ParseRegion; empty means the whole raster.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
}

// DefaultSettings returns English, fully automatic segmentation, the default
// engine mode and preprocessing with Otsu binarization.
func DefaultSettings() Settings {
	return Settings{
		Language:   ocr.DefaultLanguage,
		PSM:        ocr.DefaultPageSegMode,
		OEM:        ocr.DefaultEngineMode,
		Preprocess: imaging.PreprocessOptions{Enabled: true},
	}
}

// Pipeline turns input sources into recognized text.
//
// Image files and clipboard bitmaps go through the normalizer, PDFs through
// the document importer, and every resulting raster through the OCR invoker.
// A Pipeline holds only its collaborators and is safe for concurrent use.
type Pipeline struct {
	invoker          *ocr.Invoker
	importer         *document.Importer
	clipboard        imaging.Clipboard
	clipboardTimeout time.Duration
	workers          int
	now              func() time.Time
	logger           zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithImporter enables PDF input.
func WithImporter(importer *document.Importer) Option {
	return func(p *Pipeline) {
		p.importer = importer
	}
}

// WithClipboard enables clipboard input. Reads are abandoned after timeout.
func WithClipboard(cb imaging.Clipboard, timeout time.Duration) Option {
	return func(p *Pipeline) {
		p.clipboard = cb
		p.clipboardTimeout = timeout
	}
}

// WithWorkers sets how many document pages are recognized at once.
// Non-positive values keep the default of one per CPU.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithClock sets the time source for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithLogger sets the pipeline's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New returns a pipeline that recognizes text with invoker.
func New(invoker *ocr.Invoker, opts ...Option) *Pipeline {
	p := &Pipeline{
		invoker: invoker,
		workers: runtime.NumCPU(),
		now:     time.Now,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Invoker returns the pipeline's OCR invoker.
func (p *Pipeline) Invoker() *ocr.Invoker { return p.invoker }

// Importer returns the pipeline's document importer, or nil when PDF input
// is not configured.
func (p *Pipeline) Importer() *document.Importer { return p.importer }

// ProcessFile recognizes the text in an image file or PDF.
//
// Parameters:
//   - ctx: Cancels rendering and recognition.
//   - path: An image (png, jpg, jpeg, tif, tiff, bmp, gif) or a PDF.
//   - settings: Language, segmentation, preprocessing and region choices.
//
// Returns:
//   - *Report: The per-page results. For PDFs a report is returned even when
//     some pages failed; see Report.Failed.
//   - error: imaging.ErrUnsupportedFormat for other file types,
//     ocr.ErrEngineNotFound when the engine is unavailable, the importer's
//     errors for unreadable PDFs, or the OCR error for a single image.
//
// # Ordering
//
// Document pages may be recognized in parallel, but Report.Pages is always in
// physical page order.
func (p *Pipeline) ProcessFile(ctx context.Context, path string, settings Settings) (*Report, error) {
	settings = settings.withDefaults()
	if !document.IsDocument(path) && !imaging.IsSupportedFile(path) {
		return nil, fmt.Errorf("%w: %s", imaging.ErrUnsupportedFormat, filepath.Base(path))
	}
	session, err := p.preflight(ctx, settings)
	if err != nil {
		return nil, err
	}

	if document.IsDocument(path) {
		return p.processDocument(ctx, session, path, settings)
	}

	raster, err := imaging.Normalize(ctx, imaging.FileSource(path))
	if err != nil {
		return nil, err
	}
	report := p.newReport(KindImage, path, settings)
	if info, err := os.Stat(path); err == nil {
		report.FileSize = info.Size()
	}
	return p.processRaster(ctx, session, report, raster, settings)
}

// ProcessClipboard recognizes the bitmap on the clipboard.
//
// It fails with imaging.ErrEmptyClipboard when the clipboard holds no bitmap
// or does not answer within the configured timeout.
func (p *Pipeline) ProcessClipboard(ctx context.Context, settings Settings) (*Report, error) {
	if p.clipboard == nil {
		return nil, fmt.Errorf("%w: clipboard input not configured", imaging.ErrClipboardUnavailable)
	}
	settings = settings.withDefaults()
	session, err := p.preflight(ctx, settings)
	if err != nil {
		return nil, err
	}

	raster, err := imaging.Normalize(ctx, imaging.ClipboardSource(p.clipboard, p.clipboardTimeout))
	if err != nil {
		return nil, err
	}
	return p.processRaster(ctx, session, p.newReport(KindClipboard, "clipboard", settings), raster, settings)
}

// ProcessRaster recognizes an already decoded raster, such as an image
// received over the wire.
func (p *Pipeline) ProcessRaster(ctx context.Context, raster *imaging.Raster, settings Settings) (*Report, error) {
	settings = settings.withDefaults()
	session, err := p.preflight(ctx, settings)
	if err != nil {
		return nil, err
	}
	label := "bitmap"
	if raster != nil && raster.Source != "" {
		label = raster.Source
	}
	return p.processRaster(ctx, session, p.newReport(KindImage, label, settings), raster, settings)
}

// preflight validates settings and runs the capability query before any
// input is decoded. The returned session serves every page of the request.
func (p *Pipeline) preflight(ctx context.Context, settings Settings) (*ocr.Session, error) {
	if !settings.PSM.Valid() {
		return nil, fmt.Errorf("invalid page segmentation mode %d", int(settings.PSM))
	}
	if !settings.OEM.Valid() {
		return nil, fmt.Errorf("invalid engine mode %d", int(settings.OEM))
	}
	if settings.Region != "" {
		if _, _, err := imaging.ParseRegion(settings.Region); err != nil {
			return nil, err
		}
	}
	if p.invoker == nil {
		return nil, fmt.Errorf("%w: no invoker configured", ocr.ErrEngineNotFound)
	}
	return p.invoker.Session(ctx)
}

func (p *Pipeline) processRaster(ctx context.Context, session *ocr.Session, report *Report, raster *imaging.Raster, settings Settings) (*Report, error) {
	if raster != nil {
		report.Width, report.Height = raster.Width, raster.Height
	}

	page, err := p.recognize(ctx, session, raster, settings)
	if err != nil {
		return nil, err
	}
	report.Pages = []PageResult{page}
	p.finish(report)
	return report, nil
}

func (p *Pipeline) processDocument(ctx context.Context, session *ocr.Session, path string, settings Settings) (*Report, error) {
	if p.importer == nil {
		return nil, fmt.Errorf("%w: PDF input not configured", imaging.ErrUnsupportedFormat)
	}

	doc, err := p.importer.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	report := p.newReport(KindDocument, path, settings)
	if info, err := os.Stat(path); err == nil {
		report.FileSize = info.Size()
	}
	report.Pages = make([]PageResult, doc.NumPages())

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i := 1; i <= doc.NumPages(); i++ {
		g.Go(func() error {
			report.Pages[i-1] = p.documentPage(ctx, session, doc, i, settings)
			return nil
		})
	}
	g.Wait()

	p.finish(report)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// documentPage renders and recognizes page i. Every failure is recorded in
// the result so the other pages are unaffected.
func (p *Pipeline) documentPage(ctx context.Context, session *ocr.Session, doc *document.Document, i int, settings Settings) PageResult {
	if err := ctx.Err(); err != nil {
		return failedPage(i, "", err)
	}

	page := doc.Page(ctx, i)
	if page.Err != nil {
		p.logger.Warn().Err(page.Err).Int("page", i).Str("path", doc.Path()).Msg("Page render failed")
		return failedPage(i, page.Text, page.Err)
	}

	result, err := p.recognize(ctx, session, page.Raster, settings)
	if err != nil {
		p.logger.Warn().Err(err).Int("page", i).Str("path", doc.Path()).Msg("Page recognition failed")
		return failedPage(i, page.Text, err)
	}
	result.Index = i
	result.TextLayer = page.Text
	return result
}

// recognize crops, preprocesses and recognizes one raster.
func (p *Pipeline) recognize(ctx context.Context, session *ocr.Session, raster *imaging.Raster, settings Settings) (PageResult, error) {
	out := PageResult{Confidence: -1}
	if raster != nil {
		out.Index = raster.Page
	}

	raster, err := applyRegion(raster, settings.Region)
	if err != nil {
		return out, err
	}
	raster = imaging.Preprocess(raster, settings.Preprocess)

	result, err := session.Recognize(ctx, ocr.Request{
		Raster:   raster,
		Language: settings.Language,
		PSM:      settings.PSM,
		OEM:      settings.OEM,
	})
	if err != nil {
		return out, err
	}
	result.Page = out.Index

	out.Text = result.Text
	out.Confidence = result.Confidence
	out.Language = result.Language
	out.DetectedLanguage = result.DetectedLanguage
	out.Words = len(result.Words)
	out.Result = result

	p.logger.Debug().
		Int("page", out.Index).
		Str("language", result.Language).
		Int("chars", len(result.Text)).
		Float64("confidence", result.Confidence).
		Dur("elapsed", result.Duration).
		Msg("Recognized")
	return out, nil
}

// applyRegion crops raster to the region spec, resolving named regions
// against the raster itself.
func applyRegion(raster *imaging.Raster, spec string) (*imaging.Raster, error) {
	if spec == "" || raster == nil {
		return raster, nil
	}
	region, name, err := imaging.ParseRegion(spec)
	if err != nil {
		return nil, err
	}
	if name != "" {
		if region, err = raster.Resolve(name); err != nil {
			return nil, err
		}
	}
	return raster.Crop(region)
}

func (s Settings) withDefaults() Settings {
	if strings.TrimSpace(s.Language) == "" {
		s.Language = ocr.DefaultLanguage
	}
	return s
}

func (p *Pipeline) newReport(kind Kind, source string, settings Settings) *Report {
	name := source
	if kind != KindClipboard {
		name = filepath.Base(source)
	}
	return &Report{
		Kind:     kind,
		Source:   source,
		Name:     name,
		Settings: settings,
	}
}

// finish fills the report's summary fields from its pages.
func (p *Pipeline) finish(r *Report) {
	r.Processed = p.now()

	var words, weighted, plain float64
	var plainCount int
	for _, page := range r.Pages {
		if page.Err != nil {
			continue
		}
		if r.UsedLanguage == "" {
			r.UsedLanguage = page.Language
		}
		if r.DetectedLanguage == "" {
			r.DetectedLanguage = page.DetectedLanguage
		}
		if page.Confidence < 0 {
			continue
		}
		if page.Words > 0 {
			words += float64(page.Words)
			weighted += page.Confidence * float64(page.Words)
		} else {
			plain += page.Confidence
			plainCount++
		}
	}

	switch {
	case words > 0:
		r.Confidence = weighted / words
	case plainCount > 0:
		r.Confidence = plain / float64(plainCount)
	default:
		r.Confidence = -1
	}

	ev := p.logger.Info().
		Str("source", r.Name).
		Str("kind", string(r.Kind)).
		Int("pages", len(r.Pages)).
		Int("chars", len([]rune(r.Text())))
	if failed := r.Failed(); len(failed) > 0 {
		ev = ev.Ints("failed_pages", failed)
	}
	ev.Msg("OCR complete")
}
