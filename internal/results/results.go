// Package results carries the success/failure envelope returned by service
// operations and the status message shape shown to operators.
package results

// OperationResult separates a domain outcome (Success or Failure) from
// infrastructure errors, which travel as the second return value.
type OperationResult[S any, F any] struct {
	Success *S
	Failure *F
}

func (r OperationResult[S, F]) IsSuccess() bool { return r.Success != nil }

func (r OperationResult[S, F]) IsFailure() bool { return r.Failure != nil }

// SuccessResult wraps a successful payload.
func SuccessResult[S any, F any](s S) OperationResult[S, F] {
	return OperationResult[S, F]{Success: &s}
}

// FailureResult wraps a domain failure payload.
func FailureResult[S any, F any](f F) OperationResult[S, F] {
	return OperationResult[S, F]{Failure: &f}
}

// StatusKind classifies a StatusMessage.
type StatusKind string

const (
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
	StatusInfo    StatusKind = "info"
)

// StatusMessage is the user-facing rendering of an operation outcome.
type StatusMessage struct {
	Status  StatusKind `json:"status"`
	Message string     `json:"message"`
	Details []string   `json:"details,omitempty"`
}

func Success(message string, details ...string) StatusMessage {
	return StatusMessage{Status: StatusSuccess, Message: message, Details: details}
}

func Info(message string, details ...string) StatusMessage {
	return StatusMessage{Status: StatusInfo, Message: message, Details: details}
}

func Error(message string, details ...string) StatusMessage {
	return StatusMessage{Status: StatusError, Message: message, Details: details}
}
