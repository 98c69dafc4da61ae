package session

import "errors"

var (
	// ErrInvalidConfig is returned when a store is missing a required option.
	ErrInvalidConfig = errors.New("session: invalid store configuration")
	// ErrInvalidStoreType is returned for an unknown store type.
	ErrInvalidStoreType = errors.New("session: invalid store type")
)
