package vectorDB

import (
	"context"

	"github.com/akolanti/TutorAPI/internal/domain/commonModels"
)

// SearchQuery scopes a nearest neighbour lookup to one purpose pool. With an OwnerId the
// owner's chunks and shared chunks match; without one only shared chunks match.
type SearchQuery struct {
	Vector    []float32
	OwnerId   string
	Purpose   commonModels.Purpose
	TopK      int
	Threshold float32
}

// Store holds chunk embeddings. Search returns results ordered by descending score.
type Store interface {
	EnsureCollection(ctx context.Context, purpose commonModels.Purpose) error
	// ReplaceDocumentChunks drops every stored chunk of the document before writing chunks,
	// so indices never mix two indexing runs.
	ReplaceDocumentChunks(ctx context.Context, purpose commonModels.Purpose, documentId string, chunks []commonModels.DocChunk) error
	DeleteDocument(ctx context.Context, purpose commonModels.Purpose, documentId string) error
	Search(ctx context.Context, query SearchQuery) ([]commonModels.RetrievalResult, error)
}

// Visible reports whether a chunk belongs in the result set for ownerId.
func Visible(chunk commonModels.DocChunk, ownerId string) bool {
	if chunk.Visibility == commonModels.VisibilityShared {
		return true
	}
	return ownerId != "" && chunk.OwnerId == ownerId
}

// SourceLabel is what callers show as the origin of a result.
func SourceLabel(chunk commonModels.DocChunk) string {
	if chunk.SourcePath != "" {
		return chunk.SourcePath
	}
	return chunk.Title
}
