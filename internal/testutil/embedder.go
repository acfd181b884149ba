package testutil

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// EmbeddingDim matches the schema's vector dimension.
const EmbeddingDim = 768

// Vector returns a deterministic unit vector for the given text. Identical
// text always yields the identical vector (cosine similarity 1.0), while
// unrelated texts land nearly orthogonal in 768 dimensions, which is enough
// to exercise threshold behavior without a real embedding model.
func Vector(text string) []float32 {
	seed := sha256.Sum256([]byte(text))

	v := make([]float32, EmbeddingDim)
	var norm float64
	state := seed
	for i := 0; i < EmbeddingDim; i += 4 {
		state = sha256.Sum256(state[:])
		for j := 0; j < 4 && i+j < EmbeddingDim; j++ {
			bits := binary.BigEndian.Uint32(state[j*4 : j*4+4])
			// Map to [-1, 1).
			f := float64(bits)/float64(1<<31) - 1
			v[i+j] = float32(f)
			norm += f * f
		}
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}
