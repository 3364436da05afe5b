package cli

import (
	"github.com/levelsai/levels/config"
	"github.com/spf13/cobra"
)

var (
	registerName      string
	registerLauncher  = launcherFlag{Value: config.LauncherBinary}
	registerDirectory string

	registerCmd = &cobra.Command{
		Use:   "register",
		Short: "Print the MCP server configuration for your editor",
		Long: `Print the mcpServers stanza to add to your editor's MCP configuration.

The stanza starts this binary with the .env file of the project directory.
Use --launcher go to run from a source checkout, or --launcher uv for a
Python server.py.`,
		Args: cobra.NoArgs,
		RunE: runRegister,
	}
)

func init() {
	registerCmd.Flags().StringVar(&registerName, "name", config.DefaultServerName, "Server name in mcpServers")
	registerCmd.Flags().Var(&registerLauncher, "launcher", "How the editor starts the server: binary, go or uv")
	registerCmd.Flags().StringVarP(&registerDirectory, "directory", "C", "", "Project directory (default: current directory)")
	rootCmd.AddCommand(registerCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	stanza, err := config.Registration(config.RegistrationOptions{
		Name:      registerName,
		Launcher:  registerLauncher.Value,
		Directory: registerDirectory,
		EnvFile:   envFileFlag,
	})
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), stanza)
}
