package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")

	// ErrUnknownOperation marks a queue entry whose operation tag this build does not recognise.
	ErrUnknownOperation = errors.New("unknown queue operation")
	// ErrUnsupportedVersion marks a queue entry written by a newer payload schema.
	ErrUnsupportedVersion = errors.New("unsupported queue entry version")
)
