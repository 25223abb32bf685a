package sumtree

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange is returned when a slot is outside [0, capacity).
	ErrIndexOutOfRange = errors.New("slot index out of range")

	// ErrInvalidWeight is returned for negative, NaN or infinite weights.
	ErrInvalidWeight = errors.New("invalid weight")

	// ErrEmptyTree is returned when sampling a tree whose total mass is zero.
	ErrEmptyTree = errors.New("sum tree is empty")

	// ErrInvalidValue is returned when a sample value is negative or NaN.
	ErrInvalidValue = errors.New("invalid sample value")

	// ErrInvalidCapacity is returned when constructing a tree with capacity <= 0.
	ErrInvalidCapacity = errors.New("capacity must be positive")

	// ErrLengthMismatch is returned by batch operations with unequal input lengths.
	ErrLengthMismatch = errors.New("length mismatch")
)

// IndexOutOfRangeError describes an out-of-range slot.
// It matches ErrIndexOutOfRange with errors.Is.
type IndexOutOfRangeError struct {
	Slot     int
	Capacity int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("slot index out of range: %d not in [0, %d)", e.Slot, e.Capacity)
}

// Is reports whether target is ErrIndexOutOfRange.
func (e *IndexOutOfRangeError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}
