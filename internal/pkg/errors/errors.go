package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")

	// provider-facing failures
	ErrNotConnected       = errors.New("provider not connected")
	ErrUpstreamAuth       = errors.New("provider auth rejected")
	ErrUpstream           = errors.New("provider request failed")
	ErrTranscriptNotReady = errors.New("transcript not ready")
	ErrSendFailed         = errors.New("draft send failed")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsUpstreamAuth(err error) bool {
	return errors.Is(err, ErrUpstreamAuth)
}
