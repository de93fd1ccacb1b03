package forge

import "errors"

var (
	// ErrInvalidInput marks caller mistakes: empty input, bad names, broken
	// project references.
	ErrInvalidInput = errors.New("forge: invalid input")
	// ErrNotFound is returned for an unknown framework id.
	ErrNotFound = errors.New("forge: not found")
	// ErrConflict is returned for a duplicate framework name or a stale
	// version on update.
	ErrConflict = errors.New("forge: conflict")
)
