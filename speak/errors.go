package speak

import "errors"

// Common errors for the read-aloud session.
var (
	// ErrNoCredential means playback was requested without a configured
	// speech credential. The user must supply one before replay is
	// possible.
	ErrNoCredential = errors.New("no speech credential configured")

	// ErrRateLimited means the provider throttled region resolution or
	// synthesis. Auto-probing is suppressed until the user retries.
	ErrRateLimited = errors.New("speech provider rate limited")

	// ErrRegionNotFound means no candidate region accepted the credential.
	ErrRegionNotFound = errors.New("no usable region found for credential")

	// ErrRegionInvalid means the configured region rejected the credential.
	ErrRegionInvalid = errors.New("region rejected credential")

	// ErrInterrupted is reported by a playback handle that was stopped
	// before its audio finished.
	ErrInterrupted = errors.New("playback interrupted")

	// ErrNoParagraphs means the loaded document has no speakable content.
	ErrNoParagraphs = errors.New("no paragraphs to read")

	// ErrIndexOutOfRange means a navigation target is outside the
	// paragraph sequence.
	ErrIndexOutOfRange = errors.New("paragraph index out of range")

	// ErrSessionClosed means the session has been torn down.
	ErrSessionClosed = errors.New("session closed")
)

// rateLimitedError is implemented by provider errors that correspond to an
// HTTP 429. A mid-synthesis rate limit is treated the same as a rate-limited
// region resolution.
type rateLimitedError interface {
	RateLimited() bool
}

// unauthorizedError is implemented by provider errors that correspond to a
// credential rejection (HTTP 401/403).
type unauthorizedError interface {
	Unauthorized() bool
}

// isRateLimited reports whether err carries a provider rate limit.
func isRateLimited(err error) bool {
	var rl rateLimitedError
	return errors.As(err, &rl) && rl.RateLimited()
}

// isUnauthorized reports whether err carries a credential rejection.
func isUnauthorized(err error) bool {
	var ua unauthorizedError
	return errors.As(err, &ua) && ua.Unauthorized()
}
