package common

import "errors"

// Error classes. Every rejection returned by the native modules wraps exactly
// one of these so callers can branch on the class with errors.Is while still
// matching the specific sentinel.
var (
	ErrInvariantViolation  = errors.New("invariant violation")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrStateConflict       = errors.New("state conflict")
	ErrExternalCallFailure = errors.New("external call failure")
)

// Class returns the error class err belongs to, or nil when err is nil or does
// not wrap a known class.
func Class(err error) error {
	for _, class := range []error{ErrInvariantViolation, ErrPermissionDenied, ErrStateConflict, ErrExternalCallFailure} {
		if errors.Is(err, class) {
			return class
		}
	}
	return nil
}

// ClassLabel returns a short label for metrics and logs.
func ClassLabel(err error) string {
	switch Class(err) {
	case ErrInvariantViolation:
		return "invariant"
	case ErrPermissionDenied:
		return "permission"
	case ErrStateConflict:
		return "conflict"
	case ErrExternalCallFailure:
		return "external"
	}
	if err == nil {
		return "none"
	}
	return "internal"
}
