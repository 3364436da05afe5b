package mcp

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// DepsFunc builds the tool dependencies for a command invocation
type DepsFunc func(cmd *cobra.Command) (Deps, error)

// Command returns the MCP server command
func Command(deps DepsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server",
		Long: `Start the Levels AI MCP server on stdin and stdout.

Register it with your editor using the stanza printed by "levels register".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := deps(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return NewServer(d).Run(ctx)
		},
	}
}
