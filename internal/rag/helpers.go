package rag

import (
	"context"
	"errors"

	"github.com/akolanti/TutorAPI/internal/config"
	"github.com/akolanti/TutorAPI/internal/domain/commonModels"
	"github.com/akolanti/TutorAPI/internal/domain/jobModel"
	"github.com/akolanti/TutorAPI/internal/rag/ingest"
	"github.com/akolanti/TutorAPI/internal/rag/llm"
	"github.com/akolanti/TutorAPI/pkg/logger_i"
)

func returnOutput(job jobModel.Job, ans string) jobModel.Job {
	job.JobPayload.Answer = ans
	job.CurrentStep = jobModel.Complete
	return job
}

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("ProcessRequest", "Current Status", job.CurrentStep)
	return job
}

func (s *service) jobError(ctx context.Context, job jobModel.Job, err error, message string, code int, canRetry bool) jobModel.Job {
	s.logger.FromContext(ctx, config.TRACE_ID_KEY).Error(message, "error", err, "jobId", job.Id)

	job.Error = jobModel.JobError{
		Code:    code,
		Message: message,
		Retry:   canRetry,
	}
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	return job
}

// sourcesOf lists each result's source once, best match first.
func sourcesOf(results []commonModels.RetrievalResult) []string {
	seen := make(map[string]struct{}, len(results))
	sources := make([]string, 0, len(results))
	for _, r := range results {
		label := r.Source
		if label == "" {
			label = r.Title
		}
		if _, ok := seen[label]; ok || label == "" {
			continue
		}
		seen[label] = struct{}{}
		sources = append(sources, label)
	}
	return sources
}

func toTurns(history []jobModel.ChatTurn) []llm.Turn {
	turns := make([]llm.Turn, 0, len(history))
	for _, h := range history {
		turns = append(turns, llm.Turn{Question: h.Question, Answer: h.Answer})
	}
	return turns
}

func indexFailureMessage(err error) string {
	switch {
	case errors.Is(err, ingest.ErrDocumentNotFound):
		return "document not found"
	case errors.Is(err, ingest.ErrNoContent):
		return "document has no usable text"
	case errors.Is(err, ingest.ErrNoEmbeddings):
		return "no part of the document could be embedded"
	}
	return "indexing failed: " + err.Error()
}
