package flightprovider

import "errors"

var (
	// ErrNotConfigured means the provider's credentials are absent from
	// configuration. Callers degrade gracefully instead of failing the request.
	ErrNotConfigured = errors.New("flight provider not configured")

	// ErrUpstream wraps any auth or search failure from the provider.
	ErrUpstream = errors.New("flight provider upstream failure")
)
