package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/TutorAPI/internal/config"
	"github.com/akolanti/TutorAPI/internal/domain/commonModels"
	"github.com/akolanti/TutorAPI/internal/metrics"
	"github.com/akolanti/TutorAPI/internal/rag/vectorDB"
	"github.com/akolanti/TutorAPI/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
)

type Options struct {
	Host      string
	Port      int
	APIKey    string
	UseTLS    bool
	Dimension uint64
	Prefix    string
}

func OptionsFrom(s config.Settings) Options {
	return Options{
		Host:      s.QdrantHost,
		Port:      s.QdrantPort,
		APIKey:    s.QdrantAPIKey,
		UseTLS:    s.QdrantUseTLS,
		Dimension: uint64(s.EmbeddingDimension),
		Prefix:    config.QdrantCollectionPrefix,
	}
}

type Store struct {
	client    *qdrant.Client
	dimension uint64
	prefix    string
	logger    *logger_i.Logger
}

var payloadIndexes = []string{"document_id", "owner_id", "visibility"}

// NewStore connects to Qdrant and closes the client once ctx ends.
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	logger := logger_i.NewLogger("Qdrant")

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     opts.Host,
		Port:     opts.Port,
		APIKey:   opts.APIKey,
		UseTLS:   opts.UseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: could not instantiate: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(pingCtx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("qdrant: health check: %w", err)
	}

	s := &Store{client: client, dimension: opts.Dimension, prefix: opts.Prefix, logger: logger}
	go s.closeOnDone(ctx)
	return s, nil
}

func (s *Store) closeOnDone(ctx context.Context) {
	<-ctx.Done()
	s.logger.Info("Shutting down Qdrant")
	if err := s.client.Close(); err != nil {
		s.logger.Error("could not close Qdrant: ", "error:", err)
	}
	s.logger.Info("Closed Qdrant")
}

func (s *Store) collectionName(purpose commonModels.Purpose) string {
	return s.prefix + string(purpose)
}

func (s *Store) EnsureCollection(ctx context.Context, purpose commonModels.Purpose) error {
	name := s.collectionName(purpose)
	if name == "" || !purpose.Valid() {
		return errors.New("qdrant: invalid collection purpose")
	}

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: create collection %s: %w", name, err)
	}

	for _, field := range payloadIndexes {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: name,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			s.logger.Warn("payload index creation failed", "collection", name, "field", field, "error", err)
		}
	}
	return nil
}

func (s *Store) ReplaceDocumentChunks(ctx context.Context, purpose commonModels.Purpose, documentId string, chunks []commonModels.DocChunk) error {
	if err := s.DeleteDocument(ctx, purpose, documentId); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		if uint64(len(chunk.Embedding)) != s.dimension {
			return fmt.Errorf("qdrant: chunk %d has dimension %d, collection expects %d", chunk.ChunkIndex, len(chunk.Embedding), s.dimension)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(chunk.ChunkId),
			Vectors: qdrant.NewVectors(chunk.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"document_id":      chunk.DocumentId,
				"owner_id":         chunk.OwnerId,
				"purpose":          string(chunk.Purpose),
				"visibility":       string(chunk.Visibility),
				"title":            chunk.Title,
				"source_path":      chunk.SourcePath,
				"chunk_index":      chunk.ChunkIndex,
				"content":          chunk.Content,
				"content_length":   chunk.ContentLength,
				"embedding_status": string(chunk.EmbeddingStatus),
				"created_at":       chunk.CreatedAt.Unix(),
			}),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName(purpose),
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, purpose commonModels.Purpose, documentId string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collectionName(purpose),
		Wait:           qdrant.PtrOf(true),
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("document_id", documentId)},
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant delete document %s: %w", documentId, err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, q vectorDB.SearchQuery) ([]commonModels.RetrievalResult, error) {
	log := s.logger.FromContext(ctx, config.TRACE_ID_KEY)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	result, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName(q.Purpose),
		Query:          qdrant.NewQuery(q.Vector...),
		Filter:         ownerFilter(q.OwnerId),
		Limit:          qdrant.PtrOf(uint64(q.TopK)),
		ScoreThreshold: qdrant.PtrOf(q.Threshold),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		log.Error("Error querying Qdrant: ", "error:", err)
		return nil, err
	}

	matches := make([]commonModels.RetrievalResult, 0, len(result))
	for _, hit := range result {
		chunk := commonModels.DocChunk{
			DocumentId: hit.Payload["document_id"].GetStringValue(),
			Title:      hit.Payload["title"].GetStringValue(),
			SourcePath: hit.Payload["source_path"].GetStringValue(),
			Content:    hit.Payload["content"].GetStringValue(),
		}
		matches = append(matches, commonModels.RetrievalResult{
			DocumentId: chunk.DocumentId,
			Title:      chunk.Title,
			Source:     vectorDB.SourceLabel(chunk),
			Content:    chunk.Content,
			Score:      hit.Score,
		})
	}

	log.Debug("Found matches", "count", len(matches), "purpose", q.Purpose)
	return matches, nil
}

func ownerFilter(ownerId string) *qdrant.Filter {
	shared := qdrant.NewMatch("visibility", string(commonModels.VisibilityShared))
	if ownerId == "" {
		return &qdrant.Filter{Must: []*qdrant.Condition{shared}}
	}
	return &qdrant.Filter{Should: []*qdrant.Condition{shared, qdrant.NewMatch("owner_id", ownerId)}}
}
