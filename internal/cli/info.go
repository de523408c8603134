package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/ocrdesk/internal/diagnostics"
	"github.com/ironsheep/ocrdesk/internal/ocr"
	"github.com/ironsheep/ocrdesk/internal/output"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the version, commit hash, and build date of ocrdesk.`,
		// Runs without configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ocrdesk %s\n", Version)
			fmt.Fprintf(out, "Commit: %s\n", Commit)
			fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
		},
	}
}

func newLanguagesCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List installed OCR languages",
		Long: `List the language packs installed for the OCR engine. When the engine
cannot list them, a default set is shown and a warning is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.Services()
			if err != nil {
				return err
			}
			langs, fallback := s.Pipeline.Invoker().Languages(cmd.Context())
			if fallback {
				a.formatter.PrintWarning("could not list installed languages, showing defaults")
			}

			data := output.TableData{Headers: []string{"Code", "Name"}}
			for _, code := range langs {
				data.Rows = append(data.Rows, []string{code, ocr.LanguageName(code)})
			}
			a.formatter.PrintTable(data)
			return nil
		},
	}
}

func newDiagnosticsCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:     "diagnostics",
		Aliases: []string{"doctor"},
		Short:   "Check the OCR engine, PDF renderer and export formats",
		Long: `Report the system, the OCR engine and its languages, the PDF page renderer
and which export formats are available, with installation instructions for
anything missing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.Services()
			if err != nil {
				return err
			}
			report := diagnostics.Collect(cmd.Context(), diagnostics.Sources{
				Invoker:    s.Pipeline.Invoker(),
				Renderer:   s.Renderer,
				Dispatcher: s.Dispatcher,
			})
			return a.formatter.PrintText(report.Render(), report)
		},
	}
}

func newConfigCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Long: `Show the configuration after defaults, config file, .env and OCRDESK_*
environment variables are applied. The PDF password is never shown.

Examples:
  ocrdesk config show
  ocrdesk config show --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.formatter.Structured() {
				return a.formatter.Print(a.cfg)
			}
			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return err
			}
			return a.formatter.PrintText(string(data), a.cfg)
		},
	})
	return cmd
}
