// Package metadata defines the typed payload stored with every replay item.
//
// A Document is a map of field names to small typed Values. The store never
// interprets a Document; it only clones it on the way in and out so callers
// cannot mutate stored records through shared slices.
//
// # Construction
//
//	doc := metadata.Document{
//	    "episode": metadata.Int(17),
//	    "step":    metadata.Int(3),
//	    "reward":  metadata.Float(0.25),
//	    "obs":     metadata.Floats([]float64{0.1, 0.2}),
//	}
//
// # Binding Layers
//
// Host environments usually hand over untyped maps. DocumentFromAny converts
// them without reflection and rejects values that cannot be represented:
//
//	doc, err := metadata.DocumentFromAny(map[string]any{"step": 3, "done": false})
//
// # Schemas
//
// An optional Schema checks field kinds, presence and array shapes before a
// document is stored:
//
//	s := metadata.Schema{
//	    "step":   {Kind: metadata.KindInt, Required: true},
//	    "reward": {Kind: metadata.KindFloat},
//	    "obs":    {Kind: metadata.KindArray, Len: 4},
//	}
//	if err := s.Validate(doc); err != nil {
//	    // errors.Is(err, metadata.ErrSchemaViolation)
//	}
//
// String values are interned with the unique package, which keeps repeated
// labels (environment names, actor ids) cheap across millions of items.
package metadata
