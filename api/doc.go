// Package api implements the operations exposed to MCP clients and the CLI:
// searching predictors and creating predictions on Muna.
package api

// ErrorCode defines error types for API operations
type ErrorCode string

const (
	// ErrInvalidArgument represents a malformed request
	ErrInvalidArgument ErrorCode = "InvalidArgument"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}
