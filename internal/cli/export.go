package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ironsheep/ocrdesk/internal/export"
)

// readInput returns the contents of path, or of stdin when path is "-" or
// empty.
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// exportRequest builds the request for writing text to path. An explicit
// format wins; a path without an extension gets export.default_format;
// otherwise the dispatcher infers the format from the extension.
func (a *App) exportRequest(text, path, format, title string) (export.Request, error) {
	req := export.Request{Text: text, Path: path, Title: title}
	if req.Title == "" {
		req.Title = a.cfg.Export.Title
	}
	if format == "" && filepath.Ext(path) == "" {
		format = a.cfg.Export.DefaultFormat
	}
	if format != "" {
		f, err := export.ParseFormat(format)
		if err != nil {
			return req, fmt.Errorf("%w: %v", export.ErrFormatUnavailable, err)
		}
		req.Format = f
	}
	return req, nil
}

func newExportCommand(a *App) *cobra.Command {
	var (
		format string
		title  string
	)
	cmd := &cobra.Command{
		Use:   "export <text-file|-> <output>",
		Short: "Convert text to txt, pdf, docx, rtf, html or xlsx",
		Long: `Write text read from a file or stdin to an output document. The format
is taken from --format, then from the output file extension, then from
export.default_format when the name has no extension.

Examples:
  ocrdesk extract scan.png --text | ocrdesk export - scan.docx
  ocrdesk export notes.txt notes.pdf --title "Meeting notes"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.Services()
			if err != nil {
				return err
			}
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			req, err := a.exportRequest(text, args[1], format, title)
			if err != nil {
				return err
			}
			if err := s.Dispatcher.Export(cmd.Context(), req); err != nil {
				return err
			}

			if a.formatter.Structured() {
				return a.formatter.Print(map[string]string{"path": args[1]})
			}
			a.formatter.PrintSuccess(fmt.Sprintf("Exported to %s", args[1]))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "output format (default from extension)")
	cmd.Flags().StringVar(&title, "title", "", "document title (default from config)")
	return cmd
}

func newQuickSaveCommand(a *App) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "quicksave [text-file|-]",
		Short: "Save text to a timestamped .txt file",
		Long: `Save text from a file or stdin as ocr_results_YYYYMMDD_HHMMSS.txt in the
export directory. An existing file is never overwritten.

Examples:
  ocrdesk extract scan.png --text | ocrdesk quicksave
  ocrdesk quicksave notes.txt --dir ~/Documents`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.Services()
			if err != nil {
				return err
			}
			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			text, err := readInput(cmd, input)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = a.cfg.Export.Dir
			}

			path, err := s.Dispatcher.QuickSave(cmd.Context(), dir, text)
			if err != nil {
				return err
			}
			if a.formatter.Structured() {
				return a.formatter.Print(map[string]string{"path": path})
			}
			a.formatter.PrintSuccess(fmt.Sprintf("Saved to %s", path))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "destination directory (default from config)")
	return cmd
}
