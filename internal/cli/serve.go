package cli

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/ocrdesk/internal/server"
)

func newServeCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run as an MCP server on stdin/stdout",
		Long: `Serve the ocr_file, ocr_clipboard, export_text, quick_save, list_languages
and diagnostics tools over the Model Context Protocol (JSON-RPC 2.0, one
message per line on stdin/stdout). Logs are written to stderr.

Configure it in your MCP client as:
  {"command": "ocrdesk", "args": ["serve"]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.Services()
			if err != nil {
				return err
			}
			srv := server.New(s.Pipeline, s.Dispatcher,
				server.WithDefaults(settingsFromConfig(a.cfg)),
				server.WithExportDir(a.cfg.Export.Dir),
				server.WithVersion(Version),
				server.WithLogger(a.logger),
			)
			a.logger.Info().Str("version", Version).Msg("MCP server ready")
			return srv.Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
