package service

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

var (
	// ErrNoToken is returned by authorized operations when no bearer token is stored.
	ErrNoToken = errors.New("no access token")

	// ErrUnauthorized is returned when the backend rejects the stored token.
	ErrUnauthorized = errors.New("token expired or revoked (run: aide login)")
)

// APIMessage returns the backend's message for an error carrying a non-success
// HTTP response. ok is false for transport errors, which never reached the backend's logic.
func APIMessage(err error) (msg string, ok bool) {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return "", false
	}
	if apiErr.Message != "" {
		return apiErr.Message, true
	}
	return http.StatusText(apiErr.Code), true
}
