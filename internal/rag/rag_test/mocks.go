package rag_test

import (
	"context"

	"github.com/akolanti/TutorAPI/internal/domain/commonModels"
	"github.com/akolanti/TutorAPI/internal/rag/generation"
	"github.com/akolanti/TutorAPI/internal/rag/llm"
)

// MockIndexer implements rag.Indexer
type MockIndexer struct {
	OnIndex func(ctx context.Context, ownerId, documentId string) (int, error)
}

func (m *MockIndexer) Index(ctx context.Context, ownerId, documentId, sourceLocation string, purpose commonModels.Purpose) (int, error) {
	if m.OnIndex != nil {
		return m.OnIndex(ctx, ownerId, documentId)
	}
	return 1, nil
}

// MockSearcher implements rag.Searcher
type MockSearcher struct {
	OnSearch func(ctx context.Context, query, ownerId string, purpose commonModels.Purpose, topK int) []commonModels.RetrievalResult
}

func (m *MockSearcher) Search(ctx context.Context, query, ownerId string, purpose commonModels.Purpose, topK int) []commonModels.RetrievalResult {
	if m.OnSearch != nil {
		return m.OnSearch(ctx, query, ownerId, purpose, topK)
	}
	return []commonModels.RetrievalResult{{Title: "default context", Source: "notes.pdf", Content: "default", Score: 0.9}}
}

// MockGenerator implements rag.Generator
type MockGenerator struct {
	OnGenerate func(ctx context.Context, task generation.Task, retrieved []commonModels.RetrievalResult, query string, history []llm.Turn) (generation.Result, error)
}

func (m *MockGenerator) Generate(ctx context.Context, task generation.Task, retrieved []commonModels.RetrievalResult, query string, history []llm.Turn) (generation.Result, error) {
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, task, retrieved, query, history)
	}
	return generation.Result{Data: map[string]any{"reply": "mocked llm response"}, Reply: "mocked llm response"}, nil
}
