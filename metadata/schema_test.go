package metadata

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transitionSchema() Schema {
	return Schema{
		"actor":  {Kind: KindString},
		"step":   {Kind: KindInt, Required: true},
		"reward": {Kind: KindFloat},
		"obs":    {Kind: KindArray, Len: 2},
		"extra":  {},
	}
}

func TestSchemaValidate(t *testing.T) {
	s := transitionSchema()

	tests := []struct {
		name    string
		doc     Document
		wantErr bool
	}{
		{"valid", Document{"actor": String("a"), "step": Int(1), "reward": Float(0.5), "obs": Floats([]float64{1, 2}), "extra": Bool(true)}, false},
		{"int widens to float", Document{"step": Int(1), "reward": Int(1)}, false},
		{"unknown field ignored", Document{"step": Int(1), "other": Int(1)}, false},
		{"optional null accepted", Document{"step": Int(1), "actor": Null()}, false},
		{"required missing", Document{"reward": Float(1)}, true},
		{"required null", Document{"step": Null()}, true},
		{"wrong kind", Document{"step": String("one")}, true},
		{"float is not int", Document{"step": Float(1.5)}, true},
		{"array expected", Document{"step": Int(1), "obs": Float(1)}, true},
		{"array length", Document{"step": Int(1), "obs": Floats([]float64{1, 2, 3})}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Validate(tt.doc)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrSchemaViolation)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.NoError(t, Schema(nil).Validate(Document{"x": Int(1)}))
}

func TestSchemaDocument(t *testing.T) {
	s := transitionSchema()

	doc, err := s.Document(map[string]any{"step": 3.0, "reward": 1, "obs": []float32{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, KindInt, doc["step"].Kind, "JSON integers narrow to int fields")
	assert.Equal(t, KindInt, doc["reward"].Kind)

	_, err = s.Document(map[string]any{"step": 3.5})
	assert.ErrorIs(t, err, ErrSchemaViolation)

	_, err = s.Document(map[string]any{"step": math.Inf(1)})
	assert.ErrorIs(t, err, ErrSchemaViolation)

	_, err = s.Document(map[string]any{"done": "no"})
	assert.ErrorIs(t, err, ErrSchemaViolation, "step is required")

	_, err = s.Document(map[string]any{"step": 1, "bad": struct{}{}})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	doc, err = Schema(nil).Document(map[string]any{"step": 3.0})
	require.NoError(t, err)
	assert.Equal(t, KindFloat, doc["step"].Kind)
}
