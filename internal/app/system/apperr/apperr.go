// internal/app/system/apperr/apperr.go
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error. Each kind maps to a fixed HTTP
// status and default message.
type Kind string

const (
	KindInvalidCredentials    Kind = "InvalidCredentials"
	KindRefreshMissing        Kind = "RefreshMissing"
	KindRefreshInvalid        Kind = "RefreshInvalid"
	KindTokenInvalidOrExpired Kind = "TokenInvalidOrExpired"
	KindUserNotFound          Kind = "UserNotFound"
	KindDeletedOrBanned       Kind = "DeletedOrBanned"
	KindEmailAlreadyExists    Kind = "EmailAlreadyExists"
	KindNotEligible           Kind = "NotEligible"
	KindInvalidID             Kind = "InvalidId"
	KindForbidden             Kind = "Forbidden"
	KindUpstreamUploadFailed  Kind = "UpstreamUploadFailed"
	KindUnauthorized          Kind = "Unauthorized"
	KindNotFound              Kind = "NotFound"
	KindBadRequest            Kind = "BadRequest"
	KindTooManyRequests       Kind = "TooManyRequests"
	KindInternal              Kind = "Internal"
)

type kindInfo struct {
	status  int
	message string
}

var kinds = map[Kind]kindInfo{
	KindInvalidCredentials:    {http.StatusBadRequest, "Invalid email or password"},
	KindRefreshMissing:        {http.StatusBadRequest, "Refresh token was not sent"},
	KindRefreshInvalid:        {http.StatusUnauthorized, "Refresh token is invalid or expired"},
	KindTokenInvalidOrExpired: {http.StatusBadRequest, "Token is invalid or expired"},
	KindUserNotFound:          {http.StatusBadRequest, "User not found"},
	KindDeletedOrBanned:       {http.StatusForbidden, "Account is locked, contact an administrator for details"},
	KindEmailAlreadyExists:    {http.StatusBadRequest, "Email is already used by another account"},
	KindNotEligible:           {http.StatusBadRequest, "No records are eligible for this action"},
	KindInvalidID:             {http.StatusBadRequest, "Invalid id"},
	KindForbidden:             {http.StatusForbidden, "You do not have permission to perform this action"},
	KindUpstreamUploadFailed:  {http.StatusBadGateway, "Upload to file host failed"},
	KindUnauthorized:          {http.StatusUnauthorized, "You need to sign in to access this resource"},
	KindNotFound:              {http.StatusNotFound, "Not found"},
	KindBadRequest:            {http.StatusBadRequest, "Bad request"},
	KindTooManyRequests:       {http.StatusTooManyRequests, "Too many attempts, please wait and try again"},
	KindInternal:              {http.StatusInternalServerError, "Internal server error"},
}

// Error is an application error carrying a Kind, a client-facing message,
// and an optional wrapped cause that is never shown to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so the package-level sentinels
// work with errors.Is regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Status returns the HTTP status for the error's kind.
func (e *Error) Status() int {
	return StatusOf(e.Kind)
}

// New creates an error of the given kind. An empty msg uses the kind's default.
func New(kind Kind, msg string) *Error {
	if msg == "" {
		msg = kinds[kind].message
	}
	return &Error{Kind: kind, Message: msg}
}

// Wrap attaches cause to a new error of the given kind.
func Wrap(kind Kind, cause error) *Error {
	e := New(kind, "")
	e.Err = cause
	return e
}

// StatusOf returns the HTTP status for kind, or 500 when unknown.
func StatusOf(kind Kind) int {
	if k, ok := kinds[kind]; ok {
		return k.status
	}
	return http.StatusInternalServerError
}

// From extracts an *Error from err's chain. Errors that are not application
// errors become KindInternal with err as the cause.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Wrap(KindInternal, err)
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidCredentials    = New(KindInvalidCredentials, "")
	ErrRefreshMissing        = New(KindRefreshMissing, "")
	ErrRefreshInvalid        = New(KindRefreshInvalid, "")
	ErrTokenInvalidOrExpired = New(KindTokenInvalidOrExpired, "")
	ErrUserNotFound          = New(KindUserNotFound, "")
	ErrDeletedOrBanned       = New(KindDeletedOrBanned, "")
	ErrEmailAlreadyExists    = New(KindEmailAlreadyExists, "")
	ErrNotEligible           = New(KindNotEligible, "")
	ErrInvalidID             = New(KindInvalidID, "")
	ErrForbidden             = New(KindForbidden, "")
	ErrUpstreamUploadFailed  = New(KindUpstreamUploadFailed, "")
	ErrUnauthorized          = New(KindUnauthorized, "")
	ErrNotFound              = New(KindNotFound, "")
	ErrTooManyRequests       = New(KindTooManyRequests, "")
)

// BadRequest builds a validation error with a specific message.
func BadRequest(msg string) *Error {
	return New(KindBadRequest, msg)
}
