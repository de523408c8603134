package cli

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ironsheep/ocrdesk/internal/config"
	"github.com/ironsheep/ocrdesk/internal/document"
	"github.com/ironsheep/ocrdesk/internal/export"
	"github.com/ironsheep/ocrdesk/internal/imaging"
	"github.com/ironsheep/ocrdesk/internal/ocr"
	"github.com/ironsheep/ocrdesk/internal/pipeline"
)

// TextClipboard receives recognized text for --copy.
type TextClipboard interface {
	WriteText(text string) error
}

// Services are the components a command runs against.
type Services struct {
	Pipeline   *pipeline.Pipeline
	Dispatcher *export.Dispatcher
	Renderer   document.PageRenderer
	Clipboard  TextClipboard
}

// BuildFunc constructs Services from a loaded configuration.
type BuildFunc func(cfg *config.Config, logger zerolog.Logger) (*Services, error)

// BuildServices wires the engine, PDF importer, clipboard and export writers
// selected by cfg.
func BuildServices(cfg *config.Config, logger zerolog.Logger) (*Services, error) {
	var engine ocr.Engine
	switch cfg.OCR.Engine {
	case config.EngineLibrary:
		lib, err := ocr.NewLibrary(cfg.OCR.TessdataPrefix, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OCR library: %w", err)
		}
		engine = lib
	default:
		engine = ocr.NewTesseract(cfg.OCR.Binary, cfg.OCR.TessdataPrefix, logger)
	}

	invoker := ocr.NewInvoker(engine,
		ocr.WithTimeout(cfg.OCR.Timeout),
		ocr.WithAutoDetect(cfg.OCR.AutoDetect),
		ocr.WithLogger(logger),
	)

	renderer := document.NewPdftoppm(cfg.Document.Renderer, logger)
	importer := document.NewImporter(renderer,
		document.WithDPI(cfg.Document.DPI),
		document.WithPassword(cfg.Document.Password),
		document.WithLogger(logger),
	)

	clipboard := imaging.NewSystemClipboard()
	p := pipeline.New(invoker,
		pipeline.WithImporter(importer),
		pipeline.WithClipboard(clipboard, cfg.Clipboard.Timeout),
		pipeline.WithWorkers(cfg.Document.Workers),
		pipeline.WithLogger(logger),
	)

	dispatcher := export.NewDefaultDispatcher(
		export.Options{PDFFont: cfg.Export.PDFFont},
		export.WithDispatcherLogger(logger),
	)

	return &Services{
		Pipeline:   p,
		Dispatcher: dispatcher,
		Renderer:   renderer,
		Clipboard:  clipboard,
	}, nil
}

// settingsFromConfig returns the OCR settings configured in cfg.
func settingsFromConfig(cfg *config.Config) pipeline.Settings {
	return pipeline.Settings{
		Language: cfg.OCR.Language,
		PSM:      ocr.PageSegMode(cfg.OCR.PSM),
		OEM:      ocr.EngineMode(cfg.OCR.OEM),
		Preprocess: imaging.PreprocessOptions{
			Enabled:           cfg.Preprocess.Enabled,
			Deskew:            cfg.Preprocess.Deskew,
			AdaptiveThreshold: cfg.Preprocess.AdaptiveThreshold,
		},
	}
}
