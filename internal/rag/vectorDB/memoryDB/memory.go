// Package memoryDB is a brute force cosine vector store used when Qdrant is offline and in tests.
package memoryDB

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/akolanti/TutorAPI/internal/domain/commonModels"
	"github.com/akolanti/TutorAPI/internal/rag/vectorDB"
)

type Store struct {
	mu     sync.RWMutex
	chunks map[commonModels.Purpose]map[string][]commonModels.DocChunk
}

func NewStore() *Store {
	return &Store{chunks: make(map[commonModels.Purpose]map[string][]commonModels.DocChunk)}
}

func (s *Store) EnsureCollection(ctx context.Context, purpose commonModels.Purpose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chunks[purpose]; !ok {
		s.chunks[purpose] = make(map[string][]commonModels.DocChunk)
	}
	return nil
}

func (s *Store) ReplaceDocumentChunks(ctx context.Context, purpose commonModels.Purpose, documentId string, chunks []commonModels.DocChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool, ok := s.chunks[purpose]
	if !ok {
		pool = make(map[string][]commonModels.DocChunk)
		s.chunks[purpose] = pool
	}
	if len(chunks) == 0 {
		delete(pool, documentId)
		return nil
	}
	pool[documentId] = append([]commonModels.DocChunk(nil), chunks...)
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, purpose commonModels.Purpose, documentId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks[purpose], documentId)
	return nil
}

// Chunks returns the stored chunks of one document in index order.
func (s *Store) Chunks(purpose commonModels.Purpose, documentId string) []commonModels.DocChunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]commonModels.DocChunk(nil), s.chunks[purpose][documentId]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out
}

func (s *Store) Search(ctx context.Context, q vectorDB.SearchQuery) ([]commonModels.RetrievalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []commonModels.RetrievalResult
	for _, docChunks := range s.chunks[q.Purpose] {
		for _, c := range docChunks {
			if len(c.Embedding) == 0 || !vectorDB.Visible(c, q.OwnerId) {
				continue
			}
			score := cosine(q.Vector, c.Embedding)
			if score < q.Threshold {
				continue
			}
			results = append(results, commonModels.RetrievalResult{
				DocumentId: c.DocumentId,
				Title:      c.Title,
				Source:     vectorDB.SourceLabel(c),
				Content:    c.Content,
				Score:      score,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocumentId < results[j].DocumentId
	})
	if q.TopK > 0 && len(results) > q.TopK {
		results = results[:q.TopK]
	}
	return results, nil
}

func cosine(a, b []float32) float32 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
