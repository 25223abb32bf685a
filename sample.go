package replaytables

import (
	"sync/atomic"

	"github.com/hupe1980/replaytables/metadata"
)

// Sample is one item drawn from a table. It holds a reference on the item
// until Release.
type Sample struct {
	// ID is the sampled item.
	ID ID
	// Slot is the table slot the item was drawn from.
	Slot int
	// Metadata is a private copy of the item's metadata.
	Metadata metadata.Document
	// Priority is the stored weight of the slot at draw time.
	Priority float64
	// Probability is the chance of drawing this slot at draw time.
	Probability float64
	// ISRWeight is the importance-sampling ratio against uniform sampling.
	ISRWeight float64

	store    *Store
	released atomic.Bool
}

// Release gives up the sample's reference. A second call returns
// ErrUnderflow without touching the item.
func (s *Sample) Release() error {
	if s.released.Swap(true) {
		s.store.metrics.RecordRelease(ErrUnderflow)
		return ErrUnderflow
	}
	_, err := s.store.ReleaseReference(s.ID)
	return err
}
