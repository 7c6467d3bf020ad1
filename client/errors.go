package client

import "errors"

var (
	// ErrSessionExpired is returned by SignIn when the username timeout
	// elapses before SubmitPassword completes.
	ErrSessionExpired = errors.New("client: sign-in session expired")

	// ErrAPIKeyNotConfigured is returned when a call needs the App API key
	// and none is configured.
	ErrAPIKeyNotConfigured = errors.New("client: app api key not configured")
)
