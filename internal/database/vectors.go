package database

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// vectorZeroString builds a zero vector literal for the configured dims.
func (s *Store) vectorZeroString() string {
	parts := make([]string, s.config.EmbeddingDims)
	for i := range parts {
		parts[i] = "0.0"
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}

// sanitizeVector replaces NaN and infinite components with zero. Malformed
// components are a coercion case, not a validation failure; the warning is
// the caller's side channel.
func sanitizeVector(numbers []float32) []float32 {
	sanitized := make([]float32, len(numbers))
	coerced := 0
	for i, n := range numbers {
		if math.IsNaN(float64(n)) || math.IsInf(float64(n), 0) {
			sanitized[i] = 0.0
			coerced++
		} else {
			sanitized[i] = n
		}
	}
	if coerced > 0 {
		log.Warn("sanitized non-finite vector components to zero", "count", coerced, "dims", len(numbers))
	}
	return sanitized
}

// vectorToString converts a float32 vector to the libSQL vector32 literal
// format, validating dimensionality against the schema.
func (s *Store) vectorToString(numbers []float32) (string, error) {
	if len(numbers) != s.config.EmbeddingDims {
		return "", fmt.Errorf("%w: expected %d dimensions, got %d",
			ErrDimensionMismatch, s.config.EmbeddingDims, len(numbers))
	}

	sanitized := sanitizeVector(numbers)
	strNumbers := make([]string, len(sanitized))
	for i, n := range sanitized {
		strNumbers[i] = strconv.FormatFloat(float64(n), 'f', -1, 32)
	}
	return fmt.Sprintf("[%s]", strings.Join(strNumbers, ", ")), nil
}

// extractVector decodes the F32_BLOB storage representation. A NULL or empty
// blob means the entity has no embedding.
func (s *Store) extractVector(embedding []byte) ([]float32, error) {
	if len(embedding) == 0 {
		return nil, nil
	}

	dims := s.config.EmbeddingDims
	if len(embedding) != dims*4 {
		return nil, fmt.Errorf("invalid embedding blob: expected %d bytes for %d dimensions, got %d",
			dims*4, dims, len(embedding))
	}

	vector := make([]float32, dims)
	for i := 0; i < dims; i++ {
		bits := binary.LittleEndian.Uint32(embedding[i*4 : (i+1)*4])
		vector[i] = math.Float32frombits(bits)
	}
	return vector, nil
}

// coerceToFloat32Slice interprets the slice-like query shapes a JSON adapter
// can hand us ([]float64, []interface{}, numeric strings) as a []float32.
func coerceToFloat32Slice(value interface{}) ([]float32, bool, error) {
	switch v := value.(type) {
	case []float32:
		out := make([]float32, len(v))
		copy(out, v)
		return out, true, nil
	case []float64:
		out := make([]float32, len(v))
		for i, n := range v {
			out[i] = float32(n)
		}
		return out, true, nil
	case []int:
		out := make([]float32, len(v))
		for i, n := range v {
			out[i] = float32(n)
		}
		return out, true, nil
	case []interface{}:
		out := make([]float32, len(v))
		for i, elem := range v {
			f, err := coerceElement(elem)
			if err != nil {
				return nil, false, fmt.Errorf("vector element %d: %w", i, err)
			}
			out[i] = f
		}
		return out, true, nil
	}

	rv := reflect.ValueOf(value)
	if rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
		n := rv.Len()
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			f, err := coerceElement(rv.Index(i).Interface())
			if err != nil {
				return nil, false, fmt.Errorf("vector element %d: %w", i, err)
			}
			out[i] = f
		}
		return out, true, nil
	}

	return nil, false, nil
}

func coerceElement(elem interface{}) (float32, error) {
	switch n := elem.(type) {
	case float64:
		return float32(n), nil
	case float32:
		return n, nil
	case int:
		return float32(n), nil
	case int64:
		return float32(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid json.Number %q: %w", n.String(), err)
		}
		return float32(f), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid numeric string %q: %w", n, err)
		}
		return float32(f), nil
	default:
		return 0, fmt.Errorf("unsupported element type %T", elem)
	}
}
