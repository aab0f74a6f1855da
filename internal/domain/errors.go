package domain

import "fmt"

// NotFoundError represents a missing resource, either in the local store or
// on the external identity source. It is a valid outcome, not a failure.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// AlreadyExistsError represents a uniqueness conflict, e.g. a character that
// is already linked on the server.
type AlreadyExistsError struct {
	Resource string
}

func (e AlreadyExistsError) Error() string {
	if e.Resource == "" {
		return "already exists"
	}
	return fmt.Sprintf("%s already exists", e.Resource)
}

func (e AlreadyExistsError) Is(target error) bool {
	_, ok := target.(AlreadyExistsError)
	if ok {
		return true
	}
	_, ok = target.(*AlreadyExistsError)
	return ok
}

var ErrAlreadyExists = AlreadyExistsError{}

// RetryExhaustedError is returned when a transient external failure survived
// every configured retry attempt. Distinct from NotFound: callers log it and
// skip the item for the current run.
type RetryExhaustedError struct {
	Operation  string
	Attempts   int
	LastStatus int
}

func (e RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s: retries exhausted after %d attempts (last status %d)",
		e.Operation, e.Attempts, e.LastStatus)
}

func (e RetryExhaustedError) Is(target error) bool {
	_, ok := target.(RetryExhaustedError)
	if ok {
		return true
	}
	_, ok = target.(*RetryExhaustedError)
	return ok
}

var ErrRetryExhausted = RetryExhaustedError{}

// PermissionDeniedError is returned when the membership directory forbids a
// grant or revoke. Never retried within a run.
type PermissionDeniedError struct {
	ServerID string
	UserID   string
	RoleID   string
}

func (e PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied: role %s for user %s on server %s",
		e.RoleID, e.UserID, e.ServerID)
}

func (e PermissionDeniedError) Is(target error) bool {
	_, ok := target.(PermissionDeniedError)
	if ok {
		return true
	}
	_, ok = target.(*PermissionDeniedError)
	return ok
}

var ErrPermissionDenied = PermissionDeniedError{}

// TokenExpiredError marks an expired token signature. Expected branch: the
// caller refreshes or asks the user to re-authorize.
type TokenExpiredError struct{}

func (TokenExpiredError) Error() string { return "token expired" }

var ErrTokenExpired = TokenExpiredError{}

// TokenInvalidError marks a hard validation failure (signature, issuer or
// audience mismatch). Identity extraction aborts.
type TokenInvalidError struct {
	Reason string
}

func (e TokenInvalidError) Error() string {
	if e.Reason == "" {
		return "token invalid"
	}
	return fmt.Sprintf("token invalid: %s", e.Reason)
}

func (e TokenInvalidError) Is(target error) bool {
	_, ok := target.(TokenInvalidError)
	if ok {
		return true
	}
	_, ok = target.(*TokenInvalidError)
	return ok
}

var ErrTokenInvalid = TokenInvalidError{}
