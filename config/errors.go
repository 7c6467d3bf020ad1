package config

import "errors"

var (
	// ErrInvalidAddr is returned when Addr is not a ws:// or wss:// URL.
	ErrInvalidAddr = errors.New("config: invalid identity service address")

	// ErrMissingAppPublicID is returned when AppPublicID is unset.
	ErrMissingAppPublicID = errors.New("config: app_public_id is required")

	// ErrInvalidTimeout is returned for negative timeouts.
	ErrInvalidTimeout = errors.New("config: invalid timeout")

	// ErrInvalidFrameSize is returned for a negative max_frame_bytes.
	ErrInvalidFrameSize = errors.New("config: invalid frame size")

	// ErrInvalidUsers is returned for an unknown user store backend or role.
	ErrInvalidUsers = errors.New("config: invalid users section")

	// ErrRead is returned when the config file cannot be read or parsed.
	ErrRead = errors.New("config: cannot read file")

	// ErrSecret is returned when a secret reference cannot be resolved.
	ErrSecret = errors.New("config: cannot resolve secret")
)
