package metadata

import (
	"fmt"
	"math"
)

// Field constrains one payload field. The zero Field accepts any value.
type Field struct {
	// Kind is the expected kind. KindInvalid accepts every kind; float
	// fields also accept ints.
	Kind Kind

	// Required rejects documents where the field is missing or null.
	Required bool

	// Len fixes the length of an array field, such as an observation of
	// known shape. 0 accepts any length.
	Len int
}

// Schema describes the payload of a stored transition. Fields not named in
// the schema are stored unchecked.
type Schema map[string]Field

// Validate checks doc against the schema.
func (s Schema) Validate(doc Document) error {
	for name, f := range s {
		v, ok := doc[name]
		if !ok || v.Kind == KindNull {
			if f.Required {
				return violation(name, "is required")
			}
			continue
		}
		if err := f.check(name, v); err != nil {
			return err
		}
	}
	return nil
}

// Document converts a host map and validates the result. Integral floats,
// as produced by JSON decoding, are narrowed for int fields.
func (s Schema) Document(m map[string]any) (Document, error) {
	doc, err := DocumentFromAny(m)
	if err != nil {
		return nil, err
	}

	for name, f := range s {
		if v, ok := doc[name]; ok && f.Kind == KindInt && v.Kind == KindFloat && integral(v.F64) {
			doc[name] = Int(int64(v.F64))
		}
	}

	if err := s.Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (f Field) check(name string, v Value) error {
	switch {
	case f.Kind == KindInvalid, f.Kind == v.Kind:
	case f.Kind == KindFloat && v.Kind == KindInt:
	default:
		return violation(name, fmt.Sprintf("has kind %s, expected %s", v.Kind, f.Kind))
	}

	if f.Len > 0 && v.Kind == KindArray && len(v.A) != f.Len {
		return violation(name, fmt.Sprintf("has length %d, expected %d", len(v.A), f.Len))
	}
	return nil
}

func integral(x float64) bool {
	return x == math.Trunc(x) && x >= math.MinInt64 && x < math.MaxInt64
}

func violation(name, msg string) error {
	return fmt.Errorf("%w: field %q %s", ErrSchemaViolation, name, msg)
}
