// Package apperror holds the fixed error catalog returned to API clients.
// Every failure response carries an errorCode and errorMessage from this
// catalog; persistence and third-party errors are logged and remapped here
// so that internals never reach the client.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a catalog entry, optionally carrying extra context fields that
// are merged into the response body and a cause kept for logging only.
type Error struct {
	Code       int            `json:"errorCode"`
	Message    string         `json:"errorMessage"`
	HTTPStatus int            `json:"-"`
	Context    map[string]any `json:"-"`
	Cause      error          `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%d %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any catalog error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// With returns a copy of e carrying an extra context field.
func (e *Error) With(key string, value any) *Error {
	cp := *e
	cp.Context = make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		cp.Context[k] = v
	}
	cp.Context[key] = value
	return &cp
}

// Wrap returns a copy of e that remembers cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Cause = cause
	return &cp
}

// Body renders the response envelope.
func (e *Error) Body() map[string]any {
	out := make(map[string]any, len(e.Context)+2)
	for k, v := range e.Context {
		out[k] = v
	}
	out["errorCode"] = e.Code
	out["errorMessage"] = e.Message
	return out
}

func def(code, status int, msg string) *Error {
	return &Error{Code: code, Message: msg, HTTPStatus: status}
}

// NoError is the success sentinel merged into every non-token response.
var NoError = def(200, http.StatusOK, "")

// Client errors.
var (
	ClientUnknown             = def(401, http.StatusBadRequest, "Unknown client error occurred")
	InvalidParams             = def(402, http.StatusBadRequest, "Missing necessary parameters")
	DuplicateEmail            = def(403, http.StatusConflict, "A User already exists for this email address")
	InvalidPassword           = def(404, http.StatusUnauthorized, "Invalid Phenom ID and/or password, please try again")
	UserNotAuthorized         = def(405, http.StatusUnauthorized, "User is not authorized")
	DuplicateUsername         = def(406, http.StatusConflict, "A User already exists with this username")
	EmailNotFound             = def(407, http.StatusNotFound, "No user was found for this email address")
	InvalidPasswordResetToken = def(408, http.StatusBadRequest, "This password reset request is no longer valid.")
	VersionNotSupported       = def(410, http.StatusUpgradeRequired, "This version of the application is no longer supported.  Please download the latest version in the App Store.")
	InvalidAccess             = def(411, http.StatusForbidden, "You do not have privileges to modify this object")
	ClientNotAuthorized       = def(412, http.StatusUnauthorized, "Client is not authorized")
	MissingFacebookLink       = def(413, http.StatusConflict, "A user was found that matches the provided Facebook credentials, however, they have yet to link their account with Facebook")
	NoUserFound               = def(414, http.StatusNotFound, "No user found with these credentials")
	DuplicateFacebookAccount  = def(415, http.StatusConflict, "A User already exists for this Facebook account")
	InvalidRefreshToken       = def(416, http.StatusBadRequest, "Invalid refresh token")
	InvalidFacebookToken      = def(417, http.StatusUnauthorized, "Invalid Facebook access token")
	DuplicateTwitterAccount   = def(418, http.StatusConflict, "A User already exists for this Twitter account")
	InvalidTwitterToken       = def(419, http.StatusUnauthorized, "Invalid Twitter access token")
	NotFound                  = def(421, http.StatusNotFound, "Item not found")
)

// Server errors.
var (
	ServerUnknown       = def(501, http.StatusInternalServerError, "Unknown server error occured")
	FailedToCreate      = def(502, http.StatusInternalServerError, "Failed to create new item")
	FailedToFind        = def(503, http.StatusInternalServerError, "Failed to find item")
	FailedToDelete      = def(504, http.StatusInternalServerError, "Failed to delete item")
	FailedToUpdate      = def(505, http.StatusInternalServerError, "Failed to update item")
	FailedToFollowUser  = def(509, http.StatusInternalServerError, "Failed to follow user")
	FailedToUnfollow    = def(510, http.StatusInternalServerError, "Failed to un-follow user")
	FailedToLikeMoment  = def(511, http.StatusInternalServerError, "Failed to like moment")
	FailedToUnlike      = def(512, http.StatusInternalServerError, "Failed to unlike moment")
	FailedToAcknowledge = def(516, http.StatusInternalServerError, "Failed to acknowledge notification")
)

// From maps any error onto the catalog.  Catalog errors pass through;
// everything else becomes ServerUnknown with the original kept as cause.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ServerUnknown.Wrap(err)
}
