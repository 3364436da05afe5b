package cli

// ErrorCode defines error types for CLI operations
type ErrorCode string

const (
	InvalidArguments    ErrorCode = "InvalidArguments"
	InvalidFormat       ErrorCode = "InvalidFormat"
	InvalidAcceleration ErrorCode = "InvalidAcceleration"
	PredictorNotFound   ErrorCode = "PredictorNotFound"
	InspectorFailed     ErrorCode = "InspectorFailed"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}
