package embeddings

import "context"

// Vector is an embedding of a piece of text. Two vectors are only comparable
// when they were produced by the same model.
type Vector = []float32

// Embedder is the external embedding service.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([]Vector, error)

	// Dimensions returns the length of the vectors this model produces.
	Dimensions() int

	// Name identifies the model, including its version where the provider exposes one.
	Name() string
}
