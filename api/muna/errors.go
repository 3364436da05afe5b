package muna

// ErrorCode defines error types for Muna API operations
type ErrorCode string

const (
	// ErrMissingAccessKey is returned when the client has no access key
	ErrMissingAccessKey ErrorCode = "MissingAccessKey"
	// ErrRequest represents transport failures talking to the API
	ErrRequest ErrorCode = "RequestFailed"
	// ErrUnauthorized represents rejected credentials (401/403)
	ErrUnauthorized ErrorCode = "Unauthorized"
	// ErrNotFound represents a missing resource (404)
	ErrNotFound ErrorCode = "NotFound"
	// ErrRateLimited represents a 429 response
	ErrRateLimited ErrorCode = "RateLimited"
	// ErrAPI represents any other non-2xx response
	ErrAPI ErrorCode = "APIError"
	// ErrInvalidValue represents a value that cannot be sent or received
	ErrInvalidValue ErrorCode = "InvalidValue"
	// ErrDownload represents failures fetching a result value
	ErrDownload ErrorCode = "DownloadFailed"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}
