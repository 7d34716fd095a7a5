package rag

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/akolanti/TutorAPI/internal/config"
	"github.com/akolanti/TutorAPI/internal/domain/commonModels"
	"github.com/akolanti/TutorAPI/internal/domain/jobModel"
	"github.com/akolanti/TutorAPI/internal/rag/generation"
	"github.com/akolanti/TutorAPI/internal/rag/llm"
	"github.com/akolanti/TutorAPI/pkg/logger_i"
)

/*
ARCHITECTURE NOTE: OPAQUE INTERFACE PATTERN
---------------------------------------------------------

1. Service (Interface):
  - This is the PUBLIC contract.
  - It defines what the worker, the handlers and the MCP tools can do.

2. service (Private Struct):
  - This is the PRIVATE implementation.
  - It holds the indexer, the retriever and the generation orchestrator.
  - It is lowercase so nothing outside reaches the pipeline pieces directly.

3. Dependency Injection (NewService):
  - Each pipeline piece comes in as a small interface so tests swap in mocks
    without touching the callers.
*/

// Service is the RAG pipeline as seen by its callers.
type Service interface {
	ProcessRequest(ctx context.Context, job jobModel.Job, history []jobModel.ChatTurn) jobModel.Job
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
	IndexDocument(ctx context.Context, ownerId, documentId string) IndexResult
	Search(ctx context.Context, query, ownerId string, purpose commonModels.Purpose, topK int) []commonModels.RetrievalResult
	Generate(ctx context.Context, task generation.Task, retrieved []commonModels.RetrievalResult, query string) (generation.Result, error)
	GenerateTest(ctx context.Context, ownerId, topic string) (generation.Result, error)
}

type IndexResult struct {
	Success    bool   `json:"success"`
	ChunkCount int    `json:"chunk_count"`
	Message    string `json:"message"`
}

type Indexer interface {
	Index(ctx context.Context, ownerId, documentId, sourceLocation string, purpose commonModels.Purpose) (int, error)
}

type Searcher interface {
	Search(ctx context.Context, query, ownerId string, purpose commonModels.Purpose, topK int) []commonModels.RetrievalResult
}

type Generator interface {
	Generate(ctx context.Context, task generation.Task, retrieved []commonModels.RetrievalResult, query string, history []llm.Turn) (generation.Result, error)
}

type service struct {
	indexer   Indexer
	searcher  Searcher
	generator Generator
	logger    *logger_i.Logger
}

func NewService(indexer Indexer, searcher Searcher, generator Generator) Service {
	return &service{
		indexer:   indexer,
		searcher:  searcher,
		generator: generator,
		logger:    logger_i.NewLogger("RAG Service"),
	}
}

func (s *service) ProcessRequest(ctx context.Context, job jobModel.Job, history []jobModel.ChatTurn) jobModel.Job {
	log := s.logger.FromContext(ctx, config.TRACE_ID_KEY).With("JobId", job.Id)

	purpose, ok := commonModels.ParsePurpose(job.JobPayload.Purpose)
	if !ok {
		return s.jobError(ctx, job, errors.New("unknown purpose "+job.JobPayload.Purpose), "invalid purpose", http.StatusBadRequest, false)
	}

	job = logOutput(job, jobModel.RAGCall, log)
	retrieved := s.searcher.Search(ctx, job.JobPayload.Question, job.JobPayload.OwnerId, purpose, config.RetrievalDefaultTopK)
	job.JobPayload.Sources = sourcesOf(retrieved)

	job = logOutput(job, jobModel.LLMCall, log)
	res, err := s.generator.Generate(ctx, generation.ChatTask(), retrieved, job.JobPayload.Question, toTurns(history))
	if err != nil {
		return s.jobError(ctx, job, err, "LLM_GENERATION_FAILURE", http.StatusBadGateway, true)
	}
	if res.UsedFallback {
		log.Warn("answered with fallback", "reason", res.FallbackReason)
	}

	job.JobPayload.Structured = res.JSON()
	job.JobPayload.UsedFallback = res.UsedFallback
	job.JobPayload.FallbackReason = res.FallbackReason
	return returnOutput(job, res.Reply)
}

func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	job.CurrentStep = jobModel.IngestProcessing
	result := s.IndexDocument(ctx, job.JobPayload.OwnerId, job.JobPayload.DocumentId)
	job.JobPayload.ChunkCount = result.ChunkCount
	job.JobPayload.Message = result.Message
	if !result.Success {
		return s.jobError(ctx, job, errors.New(result.Message), "INGESTION_FAILURE", http.StatusUnprocessableEntity, true)
	}
	job.CurrentStep = jobModel.Complete
	return job
}

func (s *service) IndexDocument(ctx context.Context, ownerId, documentId string) IndexResult {
	count, err := s.indexer.Index(ctx, ownerId, documentId, "", "")
	if err != nil {
		s.logger.FromContext(ctx, config.TRACE_ID_KEY).Warn("index document failed", "documentId", documentId, "error", err)
		return IndexResult{Success: false, Message: indexFailureMessage(err)}
	}
	return IndexResult{Success: true, ChunkCount: count, Message: fmt.Sprintf("indexed %d chunks", count)}
}

func (s *service) Search(ctx context.Context, query, ownerId string, purpose commonModels.Purpose, topK int) []commonModels.RetrievalResult {
	return s.searcher.Search(ctx, query, ownerId, purpose, topK)
}

func (s *service) Generate(ctx context.Context, task generation.Task, retrieved []commonModels.RetrievalResult, query string) (generation.Result, error) {
	return s.generator.Generate(ctx, task, retrieved, query, nil)
}

func (s *service) GenerateTest(ctx context.Context, ownerId, topic string) (generation.Result, error) {
	retrieved := s.searcher.Search(ctx, topic, ownerId, commonModels.PurposeTest, config.RetrievalDefaultTopK)
	return s.generator.Generate(ctx, generation.PracticeTestTask(), retrieved, topic, nil)
}
