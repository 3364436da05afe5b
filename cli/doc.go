// Package cli implements the command-line interface for levels.
//
// Besides starting the MCP server, the commands search and run predictors
// from a terminal, print the editor registration stanza and launch the MCP
// inspector against this binary.
package cli
