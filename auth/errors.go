package auth

import "errors"

var (
	// ErrUnauthorized means there is no live session for the request.
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidOTP         = errors.New("invalid or expired OTP")
	ErrOAuthState         = errors.New("invalid oauth state")
	ErrOAuthDisabled      = errors.New("google login is not configured")
)

// ValidationError is a user-facing input problem detected before any
// store or network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }
