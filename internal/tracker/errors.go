package tracker

import "errors"

var (
	// ErrNotFound indicates no combatant has the requested ID.
	ErrNotFound = errors.New("combatant not found")

	// ErrInvalidInput indicates a missing or malformed value, such as a
	// non-positive damage. The message is what the table sees.
	ErrInvalidInput = errors.New("input required")

	// ErrMissingArmor indicates the hit location has no armor configured.
	ErrMissingArmor = errors.New("no armor configured for location")

	// ErrNoRules indicates the operation does not apply to the archetype.
	ErrNoRules = errors.New("no rules apply to this combatant")

	// ErrReadOnlyField indicates an attempt to edit a derived field.
	ErrReadOnlyField = errors.New("field is derived and cannot be edited")

	// ErrUnknownField indicates the archetype has no such field.
	ErrUnknownField = errors.New("unknown field")
)
