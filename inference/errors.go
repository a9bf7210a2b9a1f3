package inference

import (
	"errors"
	"fmt"
)

var (
	// ErrServerOffline means the inference server answered with something
	// that is not JSON, typically a tunnel's offline page.
	ErrServerOffline = errors.New("inference server offline or returned an invalid response")
	// ErrUnknownStyle is returned for combo styles the catalog does not know.
	ErrUnknownStyle = errors.New("unknown combo style")
)

// ErrorCodeTokenRequired is the error_code the server uses when a
// HuggingFace token must be supplied.
const ErrorCodeTokenRequired = "hf_token_required"

// TokenRequiredError is returned when the server needs a HuggingFace token
// before it can run a try-on.
type TokenRequiredError struct {
	Message string
}

func (e *TokenRequiredError) Error() string {
	if e.Message == "" {
		return "huggingface token required"
	}
	return e.Message
}

// RemoteError carries an error reported by the inference server.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("inference server error (%d): %s", e.StatusCode, e.Message)
}
