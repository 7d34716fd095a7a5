package commonModels

import (
	"context"
	"time"
)

// Purpose partitions documents and chunks into separate retrieval pools.
type Purpose string

const (
	PurposeChat      Purpose = "chat"
	PurposeTest      Purpose = "test"
	PurposeKnowledge Purpose = "knowledge"
)

func (p Purpose) Valid() bool {
	switch p {
	case PurposeChat, PurposeTest, PurposeKnowledge:
		return true
	}
	return false
}

// ParsePurpose defaults an empty value to chat.
func ParsePurpose(s string) (Purpose, bool) {
	if s == "" {
		return PurposeChat, true
	}
	p := Purpose(s)
	return p, p.Valid()
}

type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityShared  Visibility = "shared"
)

type DocumentStatus string

const (
	DocumentProcessing DocumentStatus = "processing"
	DocumentReady      DocumentStatus = "ready"
	DocumentFailed     DocumentStatus = "failed"
)

type EmbeddingStatus string

const EmbeddingCompleted EmbeddingStatus = "completed"

// Document is a unit of uploaded source material. An empty OwnerID marks shared material.
type Document struct {
	Id              string         `json:"id"`
	OwnerId         string         `json:"owner_id,omitempty"`
	Title           string         `json:"title"`
	FileName        string         `json:"file_name"`
	StorageLocation string         `json:"storage_location"`
	Purpose         Purpose        `json:"purpose"`
	Visibility      Visibility     `json:"visibility"`
	Status          DocumentStatus `json:"status"`
	ChunkCount      int            `json:"chunk_count"`
	LastError       string         `json:"last_error,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// DocChunk is one embedded slice of a document. ChunkIndex is contiguous from 0 per document.
type DocChunk struct {
	ChunkId         string          `json:"chunk_id"`
	DocumentId      string          `json:"document_id"`
	OwnerId         string          `json:"owner_id,omitempty"`
	Purpose         Purpose         `json:"purpose"`
	Visibility      Visibility      `json:"visibility"`
	Title           string          `json:"title"`
	SourcePath      string          `json:"source_path"`
	ChunkIndex      int             `json:"chunk_index"`
	Content         string          `json:"content"`
	ContentLength   int             `json:"content_length"`
	Embedding       []float32       `json:"-"`
	EmbeddingStatus EmbeddingStatus `json:"embedding_status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// RetrievalResult is built per query and never stored, apart from the short lived search cache.
type RetrievalResult struct {
	DocumentId string  `json:"document_id"`
	Title      string  `json:"title"`
	Source     string  `json:"source"`
	Content    string  `json:"content"`
	Score      float32 `json:"score"`
}

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var TXT DocType = "TXT"
var ERR DocType = "ERROR"

// DocumentStore keeps document records and their indexing status.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc Document) error
	GetDocument(ctx context.Context, id string) (Document, bool, error)
	UpdateStatus(ctx context.Context, id string, status DocumentStatus, chunkCount int, lastError string) error
}
