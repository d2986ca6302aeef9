// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrGrantConflict indicates a share grant already exists for the
	// (resourceType, resourceID, invitedEmail) tuple.
	ErrGrantConflict = errors.New("grant conflict")

	// ErrUnknownItemType indicates an item type with no mapped document collection.
	ErrUnknownItemType = errors.New("unknown item type")
)
