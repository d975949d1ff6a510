package domain

import "errors"

var (
	// ErrMalformedInput marks a body or file that is not valid JSON or lacks
	// the expected top-level shape.
	ErrMalformedInput = errors.New("malformed input")

	// ErrInvalidWindowConfig marks non-positive window sizes.
	ErrInvalidWindowConfig = errors.New("invalid window config")

	// ErrRegistryCorrupt marks a registry file that exists but does not parse.
	ErrRegistryCorrupt = errors.New("registry corrupt")
)
