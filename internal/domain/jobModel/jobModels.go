package jobModel

import (
	"context"
	"encoding/json"
	"time"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	UserQueryInit InternalStatus = "Init"
	RAGCall       InternalStatus = "RAG"
	LLMCall       InternalStatus = "LLM"
	RedisCall     InternalStatus = "Redis"

	IngestInit       InternalStatus = "IngestInit"
	IngestProcessing InternalStatus = "IngestProcessing"
	Error            InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeQuery  JobType = "Query"
	JobTypeIngest JobType = "Ingest"
)

type Job struct {
	Id          string         `json:"id"`
	ChatId      string         `json:"chat_id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type JobPayload struct {
	OwnerId  string `json:"owner_id,omitempty"`
	Purpose  string `json:"purpose,omitempty"`
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`
	// Structured is the validated model output the answer was taken from.
	Structured     json.RawMessage `json:"structured,omitempty"`
	Sources        []string        `json:"sources,omitempty"`
	UsedFallback   bool            `json:"used_fallback,omitempty"`
	FallbackReason string          `json:"fallback_reason,omitempty"`

	DocumentId string `json:"document_id,omitempty"`
	ChunkCount int    `json:"chunk_count,omitempty"`
	Message    string `json:"message,omitempty"`
}

// ChatTurn is one stored question and answer of a chat.
type ChatTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}

type MessageStore interface {
	ValidateChatId(ctx context.Context, id string) bool
	TrySaveChat(ctx context.Context, id string, turn ChatTurn) error
	InitNewChat(ctx context.Context, id string) error
	// GetMessageHistory returns the most recent turns, oldest first.
	GetMessageHistory(ctx context.Context, chatId string) ([]ChatTurn, error)
}
