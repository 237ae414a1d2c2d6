package refine

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// embeddingDim is the fixed dimensionality of the hashed term-frequency
// vectors used for semantic comparison.
const embeddingDim = 512

// tokenize splits text into lowercase alphanumeric tokens.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// embed maps text onto a fixed-dimension term-frequency vector via feature
// hashing, L2-normalized. It is a pure function: identical text always
// yields the identical vector, which keeps clustering reproducible across
// runs with no external model in the loop.
func embed(text string) []float64 {
	vec := make([]float64, embeddingDim)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[h.Sum32()%embeddingDim]++
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// cosine returns the cosine similarity of two vectors of equal dimension.
// Inputs from embed are already unit-length, so this is a dot product with
// a guard for zero vectors.
func cosine(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
