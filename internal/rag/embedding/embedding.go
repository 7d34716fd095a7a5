package embedding

import (
	"context"
	"errors"
)

var (
	ErrDecode         = errors.New("embedding: unrecognised response shape")
	ErrLengthMismatch = errors.New("embedding: vector count does not match input count")
)

// Embedder returns exactly one vector per input text, in input order. An empty vector
// marks an item that could not be embedded; callers skip it rather than store it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) [][]float32
}

// Provider is a remote embedding API. EmbedBatch may fail as a whole or return a
// vector count that does not match the input; Client handles both.
type Provider interface {
	Name() string
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedOne embeds a single text, returning nil when nothing was produced.
func EmbedOne(ctx context.Context, e Embedder, text string) []float32 {
	vectors := e.Embed(ctx, []string{text})
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil
	}
	return vectors[0]
}
