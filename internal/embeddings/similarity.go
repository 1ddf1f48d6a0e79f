package embeddings

import (
	"fmt"
	"math"
)

// ContractViolation is the panic value raised when a caller breaks a
// precondition. It signals an integration bug, not a runtime condition.
type ContractViolation struct {
	Msg string
}

func (c ContractViolation) Error() string { return "contract violation: " + c.Msg }

// CosineSimilarity returns dot(a,b) / (|a|*|b|), accumulated in float64.
// Both vectors must have the same length; a mismatch panics with
// ContractViolation. If either vector has zero magnitude the result is 0.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) {
		panic(ContractViolation{Msg: fmt.Sprintf("cosine similarity of vectors with lengths %d and %d", len(a), len(b))})
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
