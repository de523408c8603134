package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/ocrdesk/internal/ocr"
	"github.com/ironsheep/ocrdesk/internal/pipeline"
)

// ocrFlags are the recognition and delivery flags shared by extract and
// clipboard. Settings flags override the configuration only when given.
type ocrFlags struct {
	language          string
	psm               int
	oem               int
	noPreprocess      bool
	deskew            bool
	adaptiveThreshold bool
	region            string
	autoDetect        bool

	textOnly  bool
	exportTo  string
	format    string
	title     string
	quickSave bool
	copy      bool
}

func (f *ocrFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.language, "lang", "l", "", "OCR language, e.g. eng or deu+eng (default from config)")
	flags.IntVar(&f.psm, "psm", int(ocr.DefaultPageSegMode), "page segmentation mode (0-13)")
	flags.IntVar(&f.oem, "oem", int(ocr.DefaultEngineMode), "OCR engine mode (0-3)")
	flags.BoolVar(&f.noPreprocess, "no-preprocess", false, "skip grayscale conversion and thresholding")
	flags.BoolVar(&f.deskew, "deskew", false, "straighten rotated scans")
	flags.BoolVar(&f.adaptiveThreshold, "adaptive-threshold", false, "use local thresholding")
	flags.StringVar(&f.region, "region", "", "restrict OCR to a named region (top-half, center, auto, ...) or x1,y1,x2,y2")
	flags.BoolVar(&f.autoDetect, "auto-detect", false, "detect the language and re-run OCR with it")

	flags.BoolVar(&f.textOnly, "text", false, "print only the recognized text")
	flags.StringVarP(&f.exportTo, "export", "e", "", "also write the text to this file")
	flags.StringVar(&f.format, "format", "", "export format: txt, pdf, docx, rtf, html, xlsx (default from extension)")
	flags.StringVar(&f.title, "title", "", "export document title")
	flags.BoolVar(&f.quickSave, "quicksave", false, "also save the text to a timestamped .txt file")
	flags.BoolVar(&f.copy, "copy", false, "copy the recognized text to the clipboard")
}

// settings overlays the flags the user set on base.
func (f *ocrFlags) settings(cmd *cobra.Command, base pipeline.Settings) pipeline.Settings {
	flags := cmd.Flags()
	s := base
	if flags.Changed("lang") {
		s.Language = f.language
	}
	if flags.Changed("psm") {
		s.PSM = ocr.PageSegMode(f.psm)
	}
	if flags.Changed("oem") {
		s.OEM = ocr.EngineMode(f.oem)
	}
	if f.noPreprocess {
		s.Preprocess.Enabled = false
	}
	if flags.Changed("deskew") {
		s.Preprocess.Deskew = f.deskew
	}
	if flags.Changed("adaptive-threshold") {
		s.Preprocess.AdaptiveThreshold = f.adaptiveThreshold
	}
	if f.region != "" {
		s.Region = f.region
	}
	return s
}

// prepare applies flags that change how services are built.
func (f *ocrFlags) prepare(cmd *cobra.Command, a *App) {
	if cmd.Flags().Changed("auto-detect") {
		a.cfg.OCR.AutoDetect = f.autoDetect
	}
}

// deliver prints the report and performs the requested export, quick save
// and clipboard copy.
func (f *ocrFlags) deliver(ctx context.Context, a *App, s *Services, report *pipeline.Report) error {
	text := report.Text()

	if f.textOnly {
		if err := a.formatter.PrintText(text, map[string]string{"text": text}); err != nil {
			return err
		}
	} else if err := a.formatter.PrintText(report.Render(), report); err != nil {
		return err
	}

	if failed := report.Failed(); len(failed) > 0 {
		a.logger.Warn().Ints("pages", failed).Err(report.Err()).Msg("Some pages could not be recognized")
	}

	if f.exportTo != "" {
		req, err := a.exportRequest(text, f.exportTo, f.format, f.title)
		if err != nil {
			return err
		}
		if err := s.Dispatcher.Export(ctx, req); err != nil {
			return err
		}
		a.status("Exported to %s", f.exportTo)
	}

	if f.quickSave {
		path, err := s.Dispatcher.QuickSave(ctx, a.cfg.Export.Dir, text)
		if err != nil {
			return err
		}
		a.status("Saved to %s", path)
	}

	if f.copy {
		if s.Clipboard == nil {
			return fmt.Errorf("no clipboard available")
		}
		if err := s.Clipboard.WriteText(text); err != nil {
			return err
		}
		a.status("Copied %d characters to the clipboard", len([]rune(text)))
	}
	return nil
}

func newExtractCommand(a *App) *cobra.Command {
	var f ocrFlags
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Recognize text in an image or PDF",
		Long: `Recognize text in an image (PNG, JPEG, GIF, BMP, TIFF) or a PDF.

PDF pages are rendered and recognized in parallel and reported in page order.
A page that fails is reported without aborting the rest of the document.

Examples:
  ocrdesk extract scan.png
  ocrdesk extract contract.pdf --lang deu --export contract.docx
  ocrdesk extract receipt.jpg --region bottom-half --text --copy
  ocrdesk extract scan.png -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.prepare(cmd, a)
			s, err := a.Services()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			report, err := s.Pipeline.ProcessFile(ctx, args[0], f.settings(cmd, settingsFromConfig(a.cfg)))
			if err != nil {
				return err
			}
			return f.deliver(ctx, a, s, report)
		},
	}
	f.register(cmd)
	return cmd
}

func newClipboardCommand(a *App) *cobra.Command {
	var f ocrFlags
	cmd := &cobra.Command{
		Use:   "clipboard",
		Short: "Recognize text in the clipboard image",
		Long: `Recognize text in the bitmap currently on the clipboard, for example a
screenshot.

Examples:
  ocrdesk clipboard
  ocrdesk clipboard --text --copy`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.prepare(cmd, a)
			s, err := a.Services()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			report, err := s.Pipeline.ProcessClipboard(ctx, f.settings(cmd, settingsFromConfig(a.cfg)))
			if err != nil {
				return err
			}
			return f.deliver(ctx, a, s, report)
		},
	}
	f.register(cmd)
	return cmd
}
