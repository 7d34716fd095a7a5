package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/TutorAPI/internal/domain/commonModels"
)

var ErrDocumentNotFound = errors.New("document not found")

type InMemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]commonModels.Document
}

func InitDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{docs: make(map[string]commonModels.Document)}
}

func (s *InMemoryDocumentStore) SaveDocument(ctx context.Context, doc commonModels.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.Id] = doc
	return nil
}

func (s *InMemoryDocumentStore) GetDocument(ctx context.Context, id string) (commonModels.Document, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	return doc, ok, nil
}

func (s *InMemoryDocumentStore) UpdateStatus(ctx context.Context, id string, status commonModels.DocumentStatus, chunkCount int, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, ErrDocumentNotFound)
	}
	doc.Status = status
	doc.ChunkCount = chunkCount
	doc.LastError = lastError
	doc.UpdatedAt = time.Now().UTC()
	s.docs[id] = doc
	return nil
}
