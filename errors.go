package replaytables

import (
	"errors"
	"fmt"

	"github.com/hupe1980/replaytables/internal/itemstore"
	"github.com/hupe1980/replaytables/internal/refcount"
	"github.com/hupe1980/replaytables/internal/resource"
	"github.com/hupe1980/replaytables/internal/sampling"
	"github.com/hupe1980/replaytables/internal/slots"
	"github.com/hupe1980/replaytables/metadata"
	"github.com/hupe1980/replaytables/sumtree"
)

var (
	// ErrNotFound is returned when an item id is unknown or already removed.
	ErrNotFound = errors.New("not found")

	// ErrUnderflow is returned when releasing a reference that is not held.
	ErrUnderflow = refcount.ErrUnderflow

	// ErrCapacityExceeded is returned when a configured limit is reached.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrTableFull is returned by Assign when every slot of a table is bound
	// and FIFO eviction is disabled.
	ErrTableFull = fmt.Errorf("table full: %w", ErrCapacityExceeded)

	// ErrTableExists is returned by CreateTable for a duplicate name.
	ErrTableExists = errors.New("table already exists")

	// ErrTableNotFound is returned for unknown or dropped tables.
	ErrTableNotFound = errors.New("table not found")

	// ErrAlreadyAssigned is returned when an item already has a slot in the table.
	ErrAlreadyAssigned = errors.New("item already assigned")

	// ErrSlotOccupied is returned by AssignAt for a slot bound to another item.
	ErrSlotOccupied = errors.New("slot occupied")

	// ErrNotAssigned is returned when an item has no slot in the table.
	ErrNotAssigned = errors.New("item not assigned")

	// ErrInvalidConfig is returned for out-of-range table configuration.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrSchemaViolation is returned when metadata does not match the store schema.
	ErrSchemaViolation = metadata.ErrSchemaViolation
)

// Sum tree errors, re-exported for errors.Is checks against table operations.
var (
	ErrIndexOutOfRange = sumtree.ErrIndexOutOfRange
	ErrInvalidWeight   = sumtree.ErrInvalidWeight
	ErrEmptyTree       = sumtree.ErrEmptyTree
	ErrInvalidValue    = sumtree.ErrInvalidValue
	ErrInvalidCapacity = sumtree.ErrInvalidCapacity
	ErrLengthMismatch  = sumtree.ErrLengthMismatch
)

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Not found unification.
	if errors.Is(err, itemstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	// Capacity.
	if errors.Is(err, itemstore.ErrCapacityExceeded) || errors.Is(err, resource.ErrItemLimitExceeded) {
		return fmt.Errorf("%w: %w", ErrCapacityExceeded, err)
	}
	if errors.Is(err, slots.ErrNoFreeSlot) {
		return fmt.Errorf("%w: %w", ErrTableFull, err)
	}

	// Bindings.
	if errors.Is(err, itemstore.ErrAlreadyBound) {
		return fmt.Errorf("%w: %w", ErrAlreadyAssigned, err)
	}
	if errors.Is(err, itemstore.ErrNotBound) {
		return fmt.Errorf("%w: %w", ErrNotAssigned, err)
	}
	if errors.Is(err, slots.ErrSlotOccupied) {
		return fmt.Errorf("%w: %w", ErrSlotOccupied, err)
	}
	if errors.Is(err, slots.ErrSlotOutOfRange) {
		return fmt.Errorf("%w: %w", ErrIndexOutOfRange, err)
	}
	if errors.Is(err, slots.ErrSealed) {
		return fmt.Errorf("%w: %w", ErrTableNotFound, err)
	}

	if errors.Is(err, sampling.ErrInvalidConfig) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return err
}
