package jamf

import (
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"
)

var (
	ErrNoCredentials          = errors.New("a bearer token, a username and password, or an API client id and secret is required")
	ErrMissingToken           = errors.New("token response did not include 'token'")
	ErrInsufficientPrivileges = errors.New("the API role is missing privileges for this request")
	ErrDeviceNotFound         = errors.New("no device found for serial number")
)

// maxErrorBody bounds how much of a response body is kept on an error.
const maxErrorBody = 512

// AuthError is returned when no usable bearer token can be obtained. It is
// fatal for the whole run.
type AuthError struct {
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("authentication failed (HTTP %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// FetchError is an HTTP level failure for a single resource.
type FetchError struct {
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode > 0:
		return fmt.Sprintf("fetch %s: HTTP %d: %v", e.Path, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.Path, e.Err)
	case len(e.Body) > 0:
		return fmt.Sprintf("fetch %s: HTTP %d: %s", e.Path, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("fetch %s: HTTP %d", e.Path, e.StatusCode)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Temporary reports whether repeating the request could succeed.
func (e *FetchError) Temporary() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= http.StatusInternalServerError:
		return true
	}
	return false
}

func truncateBody(body string) string {
	if len(body) <= maxErrorBody {
		return body
	}
	cut := maxErrorBody
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + "..."
}
