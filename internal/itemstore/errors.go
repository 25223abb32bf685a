package itemstore

import "errors"

var (
	// ErrNotFound is returned for unknown or removed ids.
	ErrNotFound = errors.New("item not found")

	// ErrCapacityExceeded is returned by Insert when MaxItems is reached.
	ErrCapacityExceeded = errors.New("item capacity exceeded")

	// ErrAlreadyBound is returned when an item is bound twice to one table.
	ErrAlreadyBound = errors.New("item already bound to table")

	// ErrNotBound is returned when an item has no slot in a table.
	ErrNotBound = errors.New("item not bound to table")
)
