package refine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmbedDeterministic(t *testing.T) {
	a := embed("attacker tampers with payment request data in transit")
	b := embed("attacker tampers with payment request data in transit")
	assert.Equal(t, a, b, "identical text must produce identical vectors")
}

func TestEmbedUnitLength(t *testing.T) {
	vec := embed("information disclosure on the audit log store")
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	assert.InDelta(t, 1.0, norm, 1e-9)
}

func TestCosine(t *testing.T) {
	a := embed("payment api tampering attacker modifies request body")
	reordered := embed("attacker modifies request body payment api tampering")
	unrelated := embed("certificate rotation schedule for the bastion host")

	// Word order does not change a bag-of-tokens vector
	assert.InDelta(t, 1.0, cosine(a, reordered), 1e-9)

	assert.Less(t, cosine(a, unrelated), 0.5)
	assert.GreaterOrEqual(t, cosine(a, unrelated), 0.0)

	// Symmetry
	assert.InDelta(t, cosine(a, unrelated), cosine(unrelated, a), 1e-12)
}

func TestCosineZeroVector(t *testing.T) {
	zero := embed("")
	other := embed("anything at all")
	assert.Zero(t, cosine(zero, other))
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("Payment-API: handles  card data (PCI)")
	assert.Equal(t, []string{"payment", "api", "handles", "card", "data", "pci"}, tokens)
}
