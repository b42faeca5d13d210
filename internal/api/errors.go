package api

import "fmt"

// ErrorType categorizes client-side API failures.
type ErrorType int

const (
	// ErrTypeNetwork indicates the daemon could not be reached.
	ErrTypeNetwork ErrorType = iota
	// ErrTypeHTTP indicates the daemon answered with a non-2xx status.
	ErrTypeHTTP
	// ErrTypeParse indicates the daemon's response could not be decoded.
	ErrTypeParse
)

// String returns a human-readable name for the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "network error"
	case ErrTypeHTTP:
		return "daemon error"
	case ErrTypeParse:
		return "parse error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// ClientError is returned by all Client methods on failure. For ErrTypeHTTP
// the Message carries the daemon's own error string when one was provided.
type ClientError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Err        error
}

func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// IsUnreachable reports whether the error means the daemon could not be
// contacted at all, as opposed to answering with an error.
func IsUnreachable(err error) bool {
	clientErr, ok := err.(*ClientError)
	return ok && clientErr.Type == ErrTypeNetwork
}
