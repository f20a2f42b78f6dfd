package overseerr

import (
	"errors"
	"fmt"
)

// CodeAuthRequired is the stable machine-checkable code callers special-case
// to show a "log in" affordance instead of a generic error.
const CodeAuthRequired = "AUTH_REQUIRED"

// AuthRequiredError reports a 401 outcome that exhausted the selected auth
// strategy. The message depends on which mode failed last.
type AuthRequiredError struct {
	Mode    AuthMode
	Message string
}

func (e *AuthRequiredError) Error() string { return e.Message }

// Code returns CodeAuthRequired.
func (e *AuthRequiredError) Code() string { return CodeAuthRequired }

// IsAuthRequired reports whether err is (or wraps) an AuthRequiredError.
func IsAuthRequired(err error) bool {
	var authErr *AuthRequiredError
	return errors.As(err, &authErr)
}

// TransportError reports that the network call itself could not be made
// (DNS, refused connection). Retrying is the user's responsibility.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("unable to reach Overseerr at %s; check your URL and try again", e.URL)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError reports a non-2xx, non-401 HTTP status. Snippet carries a
// truncated response body for diagnostics; it is never shown to end users
// verbatim.
type ServerError struct {
	Endpoint   string
	StatusCode int
	Snippet    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("overseerr error: %d", e.StatusCode)
}

// ValidationError reports bad or missing input, rejected before any network
// call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
