// Package vector holds the float32 vector math shared by the cache, the index
// and the ranking engine.
package vector

import (
	"encoding/binary"
	"math"
)

// normTolerance is the slack allowed when deciding a vector is already unit length.
const normTolerance = 1e-6

// Norm returns the Euclidean length of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of v. A zero vector is returned as a
// zero vector of the same length.
func Normalize(v []float32) []float32 {
	result := make([]float32, len(v))
	norm := Norm(v)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return result
	}
	for i, x := range v {
		result[i] = float32(float64(x) / norm)
	}
	return result
}

// IsUnit reports whether v has length 1 within tolerance.
func IsUnit(v []float32) bool {
	return math.Abs(Norm(v)-1) <= 1e-4
}

// IsZero reports whether every component of v is zero.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Dot returns the dot product of a and b, or 0 when dimensions differ.
func Dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Cosine computes the cosine similarity between a and b. It does not assume
// either input is normalized. Mismatched dimensions or zero vectors yield 0.
// The result is clamped to [-1, 1] to absorb rounding error.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	// Unit inputs reduce to a dot product
	if math.Abs(normA-1) < normTolerance && math.Abs(normB-1) < normTolerance {
		return clamp(dotProduct)
	}

	return clamp(dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func clamp(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

// Centroid returns the L2-normalized arithmetic mean of vectors. Vectors whose
// dimension differs from the first non-empty vector are skipped. An empty input
// yields an empty vector.
func Centroid(vectors [][]float32) []float32 {
	var sum []float64
	count := 0

	for _, v := range vectors {
		if len(v) == 0 {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(v))
		}
		if len(v) != len(sum) {
			continue
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
		count++
	}

	if count == 0 {
		return []float32{}
	}

	mean := make([]float32, len(sum))
	for i, s := range sum {
		mean[i] = float32(s / float64(count))
	}
	return Normalize(mean)
}

// Clone returns a copy of v.
func Clone(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

// Serialize converts a float32 slice to a little-endian byte blob.
func Serialize(v []float32) []byte {
	blob := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(x))
	}
	return blob
}

// Deserialize converts a little-endian byte blob back to a float32 slice.
// Trailing bytes that do not form a full float are ignored.
func Deserialize(blob []byte) []float32 {
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v
}
