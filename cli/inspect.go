package cli

import (
	"errors"
	"os"
	"os/exec"

	"github.com/levelsai/levels/log"
	"github.com/morikuni/failure/v2"
	"github.com/spf13/cobra"
)

const inspectorPackage = "@modelcontextprotocol/inspector"

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Debug the MCP server with the MCP inspector",
	Long: `Launch the MCP inspector (npx ` + inspectorPackage + `) against this binary.

Requires Node.js. The --env-file and --config flags are passed to the server.`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	npx, err := exec.LookPath("npx")
	if err != nil {
		return failure.Wrap(err, failure.WithCode(InspectorFailed),
			failure.Message("npx was not found. Install Node.js to use the MCP inspector"))
	}
	exe, err := os.Executable()
	if err != nil {
		return failure.Wrap(err, failure.WithCode(InspectorFailed))
	}

	c := exec.CommandContext(cmd.Context(), npx, inspectorArgs(exe, envFileFlag, configFlag)...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr

	log.Info("Starting MCP inspector", "server", exe)
	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return failure.Wrap(err, failure.WithCode(InspectorFailed),
				failure.Messagef("MCP inspector exited with status %d", exitErr.ExitCode()))
		}
		return failure.Wrap(err, failure.WithCode(InspectorFailed))
	}
	return nil
}

// inspectorArgs are the npx arguments starting the inspector on the server binary exe
func inspectorArgs(exe, envFile, configFile string) []string {
	args := []string{inspectorPackage, exe}
	if envFile != "" {
		args = append(args, "--env-file", envFile)
	}
	if configFile != "" {
		args = append(args, "--config", configFile)
	}
	return append(args, "mcp")
}
