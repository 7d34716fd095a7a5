package api

import (
	"encoding/json"
	"time"
)

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	ChatId    string            `json:"chat_id" example:"chat_550"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type RAGResponse struct {
	Question       string          `json:"question"`
	Answer         string          `json:"answer"`
	Sources        []string        `json:"sources"`
	Structured     json.RawMessage `json:"structured,omitempty" swaggertype:"object"`
	UsedFallback   bool            `json:"used_fallback"`
	FallbackReason string          `json:"fallback_reason,omitempty" example:"rate_limited"`
}

type IngestResponse struct {
	DocumentId string `json:"document_id" example:"doc_81f2"`
	ChunkCount int    `json:"chunk_count" example:"12"`
	Message    string `json:"message" example:"indexed 12 chunks"`
}

type Result struct {
	Status              string          `json:"status"`
	RAGExternalResponse *RAGResponse    `json:"rag_response,omitempty"`
	Ingest              *IngestResponse `json:"ingest,omitempty"`
}

type InitJobResponse struct {
	Id         string `json:"id"`
	StatusURL  string `json:"status_url"`
	DocumentId string `json:"document_id,omitempty"`
}

type DocumentResponse struct {
	Id         string    `json:"id" example:"doc_81f2"`
	Title      string    `json:"title" example:"Calculus notes"`
	FileName   string    `json:"file_name" example:"calculus.pdf"`
	Purpose    string    `json:"purpose" example:"chat"`
	Visibility string    `json:"visibility" example:"private"`
	Status     string    `json:"status" example:"ready"`
	ChunkCount int       `json:"chunk_count" example:"12"`
	LastError  string    `json:"last_error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type SearchResult struct {
	DocumentId string  `json:"document_id"`
	Title      string  `json:"title"`
	Source     string  `json:"source"`
	Content    string  `json:"content"`
	Score      float32 `json:"score" example:"0.82"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

type GenerateTestResponse struct {
	Test json.RawMessage `json:"test" swaggertype:"object"`
}

// requests---------------------

type ChatRequest struct {
	Message string `json:"message" validate:"required" `
	ChatID  string `json:"chatID,omitempty" `
	Purpose string `json:"purpose,omitempty" example:"chat"`
}

type SearchRequest struct {
	Query   string `json:"query" validate:"required"`
	Purpose string `json:"purpose,omitempty" example:"chat"`
	TopK    int    `json:"top_k,omitempty" example:"5"`
}

type GenerateTestRequest struct {
	Topic string `json:"topic" validate:"required" example:"derivatives"`
}
