package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/phobologic/extractsuper/internal/logging"
	"github.com/phobologic/extractsuper/internal/mcp"
	"github.com/phobologic/extractsuper/internal/model"
)

// newMCPCmd implements `extractsuper mcp`, which serves the
// extract_superclass tool over MCP on stdio.
func newMCPCmd(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the extract_superclass tool over MCP (stdio)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			logger := logging.New(stderr, logging.Level(cfg.LogLevel, opts.verbose))

			runner := mcp.RunnerFunc(func(req model.Request) model.Result {
				reqLogger := logger
				if req.Verbose {
					reqLogger = logging.New(stderr, logging.Level(cfg.LogLevel, true))
				}
				return newRefactorer(cfg, reqLogger).Run(req)
			})

			server := mcp.NewServer(version, runner, logger)
			return server.Serve(cmd.Context(), cmd.InOrStdin(), stdout)
		},
	}
}
