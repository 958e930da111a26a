package tracker

import "errors"

// Common errors returned by tracker backends.
//
// These can be checked with errors.Is():
//
//	if errors.Is(err, tracker.ErrUnauthorized) {
//	    // credential problem, not worth retrying
//	}
var (
	// ErrUnavailable is returned when the tracker cannot be reached:
	// network failure for GitHub, missing or failing binary for rad.
	ErrUnavailable = errors.New("tracker unavailable")

	// ErrUnauthorized is returned when the tracker rejects the
	// configured credential.
	ErrUnauthorized = errors.New("tracker rejected credentials")

	// ErrRateLimited is returned when the tracker throttles the client.
	ErrRateLimited = errors.New("tracker rate limit exceeded")

	// ErrNotFound is returned when the configured repository does not
	// exist on the tracker.
	ErrNotFound = errors.New("repository not found")

	// ErrNoBranch is returned by CreatePatch when the named local
	// branch does not exist.
	ErrNoBranch = errors.New("branch does not exist")

	// ErrParse is returned when a tracker's output cannot be decoded
	// into a typed record.
	ErrParse = errors.New("unparseable tracker output")
)

// IsRetryable returns true if the error is likely to succeed on a later
// run. Used by callers to decide whether a failed item is worth logging
// as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrUnavailable) {
		return true
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}

	return false
}

// IsFatal returns true if the error indicates the whole run cannot
// proceed: bad credentials or a repository that does not exist will fail
// every item identically.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrUnauthorized) {
		return true
	}
	if errors.Is(err, ErrNotFound) {
		return true
	}

	return false
}
