package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ironsheep/ocrdesk/internal/cli"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Logs go to stderr; stdout carries results and the MCP protocol.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cli.Version = Version
	cli.BuildDate = BuildTime
	cli.Commit = GitCommit

	os.Exit(cli.Execute())
}
