// Package cli provides the Cobra commands for the ocrdesk command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ironsheep/ocrdesk/internal/config"
	"github.com/ironsheep/ocrdesk/internal/output"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// App holds the state shared by all commands of one invocation.
type App struct {
	// Global flags
	cfgFile   string
	outputFmt string
	noHeaders bool
	quiet     bool
	debug     bool
	noColor   bool

	build    BuildFunc
	services *Services
	cfg      *config.Config

	formatter *output.Formatter
	logger    zerolog.Logger
}

// AppOption configures an App.
type AppOption func(*App)

// WithBuilder replaces BuildServices, which constructs the engine, importer
// and writers.
func WithBuilder(build BuildFunc) AppOption {
	return func(a *App) {
		a.build = build
	}
}

// NewApp returns an App that builds its services with BuildServices.
func NewApp(opts ...AppOption) *App {
	a := &App{
		build:  BuildServices,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewRootCommand builds the command tree for a.
func NewRootCommand(a *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ocrdesk",
		Short: "ocrdesk - Extract text from images, PDFs and the clipboard",
		Long: `ocrdesk recognizes text in images, scanned PDFs and clipboard bitmaps
with Tesseract and saves it as txt, pdf, docx, rtf, html or xlsx.

Get started:
  ocrdesk diagnostics          Check that Tesseract and pdftoppm are installed
  ocrdesk extract scan.png     Print the OCR report for an image
  ocrdesk serve                Run as an MCP server on stdio`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "",
		"config file (default is ./ocrdesk.yaml or ~/.config/ocrdesk/ocrdesk.yaml)")
	flags.StringVarP(&a.outputFmt, "output", "o", "table",
		"output format: table, json, yaml")
	flags.BoolVar(&a.noHeaders, "no-headers", false,
		"hide table headers")
	flags.BoolVarP(&a.quiet, "quiet", "q", false,
		"minimal output")
	flags.BoolVar(&a.debug, "debug", false,
		"enable debug output")
	flags.BoolVar(&a.noColor, "no-color", false,
		"disable colored output")

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newExtractCommand(a))
	rootCmd.AddCommand(newClipboardCommand(a))
	rootCmd.AddCommand(newExportCommand(a))
	rootCmd.AddCommand(newQuickSaveCommand(a))
	rootCmd.AddCommand(newLanguagesCommand(a))
	rootCmd.AddCommand(newDiagnosticsCommand(a))
	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newConfigCommand(a))
	return rootCmd
}

// setup loads the configuration and prepares logging and output for the
// command about to run.
func (a *App) setup(cmd *cobra.Command, _ []string) error {
	// Silence errors only when --quiet is used
	cmd.SilenceErrors = a.quiet

	format, err := output.ParseFormat(a.outputFmt)
	if err != nil {
		return err
	}
	if a.noColor {
		color.NoColor = true
	}
	a.formatter = output.NewFormatter(format, a.noHeaders, a.quiet)
	a.formatter.Writer = cmd.OutOrStdout()
	a.formatter.ErrWriter = cmd.ErrOrStderr()

	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Level()
	if a.debug {
		level = zerolog.DebugLevel
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
		Level(level).With().Timestamp().Logger()
	log.Logger = a.logger
	return nil
}

// Services builds the command's services on first use. Commands that need
// no engine, such as version, never call it.
func (a *App) Services() (*Services, error) {
	if a.services != nil {
		return a.services, nil
	}
	s, err := a.build(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.services = s
	return s, nil
}

// status prints a progress or confirmation line unless the output is
// structured, where it would corrupt the document.
func (a *App) status(format string, args ...interface{}) {
	if a.formatter.Structured() {
		return
	}
	a.formatter.PrintSuccess(fmt.Sprintf(format, args...))
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, NewApp(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, a *App, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := NewRootCommand(a)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	return ExitCode(rootCmd.ExecuteContext(ctx))
}
