package database

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(dims int) *Store {
	return &Store{config: &Config{EmbeddingDims: dims}}
}

func TestVectorToString(t *testing.T) {
	s := testStore(4)

	str, err := s.vectorToString([]float32{1, 2.5, -3, 0})
	require.NoError(t, err)
	assert.Equal(t, "[1, 2.5, -3, 0]", str)

	_, err = s.vectorToString([]float32{1, 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestVectorToStringSanitizesNonFinite(t *testing.T) {
	s := testStore(3)

	str, err := s.vectorToString([]float32{float32(math.NaN()), float32(math.Inf(1)), 1})
	require.NoError(t, err)
	assert.Equal(t, "[0, 0, 1]", str)
}

func TestExtractVector(t *testing.T) {
	s := testStore(2)

	// Build the little-endian F32 blob the driver hands back.
	blob := make([]byte, 8)
	binary.LittleEndian.PutUint32(blob[0:4], math.Float32bits(1.5))
	binary.LittleEndian.PutUint32(blob[4:8], math.Float32bits(-2))

	vec, err := s.extractVector(blob)
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, -2}, vec)

	// NULL column means no embedding, not an error.
	vec, err = s.extractVector(nil)
	require.NoError(t, err)
	assert.Nil(t, vec)

	_, err = s.extractVector([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestSanitizeVector(t *testing.T) {
	in := []float32{1, float32(math.NaN()), float32(math.Inf(-1)), 4}
	out := sanitizeVector(in)
	assert.Equal(t, []float32{1, 0, 0, 4}, out)
	// Input is left untouched.
	assert.True(t, math.IsNaN(float64(in[1])))
}

func TestCoerceToFloat32Slice(t *testing.T) {
	cases := []struct {
		name  string
		input interface{}
		want  []float32
	}{
		{"float32 slice", []float32{1, 2}, []float32{1, 2}},
		{"float64 slice", []float64{1.5, 2.5}, []float32{1.5, 2.5}},
		{"int slice", []int{1, 2, 3}, []float32{1, 2, 3}},
		{"interface slice", []interface{}{1.0, float32(2), 3, json.Number("4.5")}, []float32{1, 2, 3, 4.5}},
		{"numeric strings", []interface{}{"1.5", "2"}, []float32{1.5, 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok, err := coerceToFloat32Slice(tc.input)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCoerceToFloat32SliceRejects(t *testing.T) {
	// Non-slice values are not vectors.
	_, ok, err := coerceToFloat32Slice(42)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = coerceToFloat32Slice(nil)
	require.NoError(t, err)
	assert.False(t, ok)

	// A slice with a non-numeric element is an error.
	_, _, err = coerceToFloat32Slice([]interface{}{1.0, "not-a-number"})
	require.Error(t, err)

	_, _, err = coerceToFloat32Slice([]interface{}{map[string]int{}})
	require.Error(t, err)
}
