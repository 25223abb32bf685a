package metadata

import "errors"

var (
	// ErrUnsupportedType is returned by FromAny for values without a Kind.
	ErrUnsupportedType = errors.New("unsupported metadata value type")

	// ErrOutOfRange is returned by FromAny for integers that do not fit int64.
	ErrOutOfRange = errors.New("metadata value out of range")

	// ErrSchemaViolation is returned when a document does not match a Schema.
	ErrSchemaViolation = errors.New("schema violation")
)
