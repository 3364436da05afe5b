// Command levels serves Muna prediction functions to MCP clients.
package main

import (
	"fmt"
	"os"

	"github.com/levelsai/levels/cli"
	"github.com/levelsai/levels/log"
	"github.com/morikuni/failure/v2"
)

func main() {
	if err := cli.Run(); err != nil {
		var userMessage string
		if fmsg := failure.MessageOf(err); fmsg != "" {
			userMessage = fmsg.String()
		} else {
			userMessage = err.Error()
		}
		log.Debug("Command failed", "error", fmt.Sprintf("%+v", err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", userMessage)
		os.Exit(1)
	}
}
