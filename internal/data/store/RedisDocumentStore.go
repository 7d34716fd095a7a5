package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/akolanti/TutorAPI/internal/config"
	"github.com/akolanti/TutorAPI/internal/data/redisStore"
	"github.com/akolanti/TutorAPI/internal/domain/commonModels"
	"github.com/akolanti/TutorAPI/pkg/logger_i"
)

const documentKeyPrefix = "doc:"

type RedisDocumentStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisDocumentStore(ctx context.Context, opts redisStore.Options) *RedisDocumentStore {
	s := redisStore.GetRedisStore(ctx, opts, config.RedisDocumentStore)
	if s == nil {
		return nil
	}
	return NewRedisDocumentStore(s)
}

func NewRedisDocumentStore(s *redisStore.Store) *RedisDocumentStore {
	return &RedisDocumentStore{store: s, logger: logger_i.NewLogger("DocumentStore")}
}

func (s *RedisDocumentStore) SaveDocument(ctx context.Context, doc commonModels.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, documentKeyPrefix+doc.Id, data, 0)
}

func (s *RedisDocumentStore) GetDocument(ctx context.Context, id string) (commonModels.Document, bool, error) {
	var doc commonModels.Document
	val, err := s.store.Get(ctx, documentKeyPrefix+id)
	if s.store.IsNil(err) {
		return doc, false, nil
	}
	if err != nil {
		return doc, false, err
	}
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return doc, false, fmt.Errorf("document %s: %w", id, err)
	}
	return doc, true, nil
}

// UpdateStatus is a read then write; a document is only indexed by one job at a time.
func (s *RedisDocumentStore) UpdateStatus(ctx context.Context, id string, status commonModels.DocumentStatus, chunkCount int, lastError string) error {
	doc, found, err := s.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("document %s: %w", id, ErrDocumentNotFound)
	}
	doc.Status = status
	doc.ChunkCount = chunkCount
	doc.LastError = lastError
	doc.UpdatedAt = time.Now().UTC()
	s.logger.FromContext(ctx, config.TRACE_ID_KEY).Debug("document status", "documentId", id, "status", status, "chunks", chunkCount)
	return s.SaveDocument(ctx, doc)
}
