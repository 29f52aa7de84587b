package models

import "fmt"

// RemoteErrorKind classifies failures from a remote calendar collaborator.
type RemoteErrorKind int

const (
	RemoteUnknown RemoteErrorKind = iota
	RemoteTransient
	RemoteRateLimited
	RemoteUnauthorized
	RemoteNotFound
)

func (k RemoteErrorKind) String() string {
	switch k {
	case RemoteTransient:
		return "transient"
	case RemoteRateLimited:
		return "rate_limited"
	case RemoteUnauthorized:
		return "unauthorized"
	case RemoteNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// RemoteError wraps a collaborator failure with a classification the
// reconciler uses to decide whether to retry.
type RemoteError struct {
	Kind RemoteErrorKind
	Op   string // "list", "delete" or "insert"
	Err  error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is worth another attempt.
// Authorization and validation problems never are.
func (e *RemoteError) Retryable() bool {
	return e.Kind == RemoteTransient || e.Kind == RemoteRateLimited
}
