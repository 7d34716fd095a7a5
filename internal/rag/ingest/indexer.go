package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akolanti/TutorAPI/internal/config"
	"github.com/akolanti/TutorAPI/internal/data/blob"
	"github.com/akolanti/TutorAPI/internal/domain/commonModels"
	"github.com/akolanti/TutorAPI/internal/metrics"
	"github.com/akolanti/TutorAPI/internal/rag/chunker"
	"github.com/akolanti/TutorAPI/internal/rag/embedding"
	"github.com/akolanti/TutorAPI/internal/rag/vectorDB"
	"github.com/akolanti/TutorAPI/pkg/logger_i"
	"github.com/akolanti/TutorAPI/pkg/retry"
	"github.com/google/uuid"
)

var (
	ErrNoContent        = errors.New("document has no usable text")
	ErrDocumentNotFound = errors.New("document not found")
	ErrNoEmbeddings     = errors.New("no chunk could be embedded")
	errMissingVectors   = errors.New("chunks still without embedding")
)

// CacheInvalidator drops retrieval results that a newly indexed document may change.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, bucket string) error
	InvalidateAll(ctx context.Context) error
}

type Options struct {
	MaxChars      int
	MinTextLength int
	EmbedRetry    retry.Policy
	// TempDir holds the downloaded artifact while it is extracted. "" uses the OS default.
	TempDir string
}

func DefaultOptions(s config.Settings) Options {
	return Options{
		MaxChars:      s.ChunkMaxChars,
		MinTextLength: config.MinExtractedTextLength,
		EmbedRetry: retry.Policy{
			Attempts:  config.EmbeddingRetryAttempts,
			BaseDelay: config.EmbeddingRetryBaseDelay,
			MaxDelay:  config.EmbeddingRetryMaxDelay,
		},
	}
}

type Indexer struct {
	blobs     blob.Storage
	docs      commonModels.DocumentStore
	extractor Extractor
	embedder  embedding.Embedder
	store     vectorDB.Store
	cache     CacheInvalidator
	opts      Options
	logger    *logger_i.Logger
}

func NewIndexer(blobs blob.Storage, docs commonModels.DocumentStore, extractor Extractor, embedder embedding.Embedder,
	store vectorDB.Store, cache CacheInvalidator, opts Options) *Indexer {
	if opts.MaxChars < 1 {
		opts.MaxChars = config.ChunkMaxChars
	}
	return &Indexer{
		blobs:     blobs,
		docs:      docs,
		extractor: extractor,
		embedder:  embedder,
		store:     store,
		cache:     cache,
		opts:      opts,
		logger:    logger_i.NewLogger("Document Indexer"),
	}
}

// Index rebuilds the chunks of one document and returns how many were stored.
// The document ends in ready with that count, or in failed with zero.
func (ix *Indexer) Index(ctx context.Context, ownerId, documentId, sourceLocation string, purpose commonModels.Purpose) (int, error) {
	log := ix.logger.FromContext(ctx, config.TRACE_ID_KEY).With("documentId", documentId)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	doc, found, err := ix.docs.GetDocument(ctx, documentId)
	if err != nil {
		return 0, fmt.Errorf("loading document %s: %w", documentId, err)
	}
	if !found || doc.OwnerId != ownerId {
		return 0, fmt.Errorf("%s: %w", documentId, ErrDocumentNotFound)
	}
	if !purpose.Valid() {
		purpose = doc.Purpose
	}
	if sourceLocation == "" {
		sourceLocation = doc.StorageLocation
	}

	if err := ix.docs.UpdateStatus(ctx, documentId, commonModels.DocumentProcessing, 0, ""); err != nil {
		return 0, fmt.Errorf("marking %s processing: %w", documentId, err)
	}

	count, err := ix.run(ctx, doc, sourceLocation, purpose)
	if err != nil {
		log.Error("indexing failed", "error", err)
		// the caller's context may be the reason we failed
		if statusErr := ix.docs.UpdateStatus(context.WithoutCancel(ctx), documentId, commonModels.DocumentFailed, 0, err.Error()); statusErr != nil {
			log.Error("could not mark document failed", "error", statusErr)
		}
		return 0, err
	}

	if err := ix.docs.UpdateStatus(ctx, documentId, commonModels.DocumentReady, count, ""); err != nil {
		err = fmt.Errorf("marking %s ready: %w", documentId, err)
		log.Error("indexing failed", "error", err)
		if statusErr := ix.docs.UpdateStatus(context.WithoutCancel(ctx), documentId, commonModels.DocumentFailed, 0, err.Error()); statusErr != nil {
			log.Error("could not mark document failed", "error", statusErr)
		}
		return 0, err
	}
	ix.invalidate(ctx, doc)
	log.Info("document indexed", "chunks", count)
	return count, nil
}

func (ix *Indexer) run(ctx context.Context, doc commonModels.Document, sourceLocation string, purpose commonModels.Purpose) (int, error) {
	log := ix.logger.FromContext(ctx, config.TRACE_ID_KEY).With("documentId", doc.Id)

	text, err := ix.extractText(ctx, sourceLocation)
	if err != nil {
		return 0, err
	}
	if usableLength(text) < ix.opts.MinTextLength {
		return 0, ErrNoContent
	}

	pieces := chunker.Split(text, ix.opts.MaxChars)
	log.Debug("document split", "chunks", len(pieces))

	vectors, err := ix.embedWithRetry(ctx, pieces)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	chunks := make([]commonModels.DocChunk, 0, len(pieces))
	for i, piece := range pieces {
		if len(vectors[i]) == 0 {
			continue
		}
		index := len(chunks)
		chunks = append(chunks, commonModels.DocChunk{
			ChunkId:         chunkId(doc.Id, index),
			DocumentId:      doc.Id,
			OwnerId:         doc.OwnerId,
			Purpose:         purpose,
			Visibility:      doc.Visibility,
			Title:           doc.Title,
			SourcePath:      doc.FileName,
			ChunkIndex:      index,
			Content:         piece,
			ContentLength:   len([]rune(piece)),
			Embedding:       vectors[i],
			EmbeddingStatus: commonModels.EmbeddingCompleted,
			CreatedAt:       now,
		})
	}
	if dropped := len(pieces) - len(chunks); dropped > 0 {
		log.Warn("dropping chunks without embedding", "dropped", dropped, "kept", len(chunks))
	}
	if len(chunks) == 0 {
		return 0, ErrNoEmbeddings
	}

	if err := ix.store.EnsureCollection(ctx, purpose); err != nil {
		return 0, fmt.Errorf("preparing %s collection: %w", purpose, err)
	}
	if err := ix.store.ReplaceDocumentChunks(ctx, purpose, doc.Id, chunks); err != nil {
		return 0, fmt.Errorf("storing chunks: %w", err)
	}
	return len(chunks), nil
}

// extractText downloads the blob into a temp file that is removed on every path.
func (ix *Indexer) extractText(ctx context.Context, sourceLocation string) (string, error) {
	data, err := ix.blobs.Download(ctx, sourceLocation)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", sourceLocation, err)
	}

	ext := filepath.Ext(sourceLocation)
	tmp, err := os.CreateTemp(ix.opts.TempDir, "ingest-*"+ext)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if rmErr := os.Remove(tmp.Name()); rmErr != nil {
			ix.logger.Warn("could not remove temp file", "path", tmp.Name(), "error", rmErr)
		}
	}()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		return "", fmt.Errorf("writing temp file: %w", err)
	}

	text, err := ix.extractor.Extract(ctx, tmp.Name(), ext)
	if err != nil {
		return "", fmt.Errorf("extracting text: %w", err)
	}
	return text, nil
}

// embedWithRetry re-embeds only the pieces still missing a vector on each attempt.
// Pieces that never get one come back empty.
func (ix *Indexer) embedWithRetry(ctx context.Context, pieces []string) ([][]float32, error) {
	vectors := make([][]float32, len(pieces))
	err := retry.Do(ctx, ix.opts.EmbedRetry, func(ctx context.Context, attempt int) error {
		var missing []int
		for i := range pieces {
			if len(vectors[i]) == 0 {
				missing = append(missing, i)
			}
		}
		texts := make([]string, len(missing))
		for j, i := range missing {
			texts[j] = pieces[i]
		}

		got := ix.embedder.Embed(ctx, texts)
		stillMissing := 0
		for j, i := range missing {
			if j < len(got) && len(got[j]) > 0 {
				vectors[i] = got[j]
			} else {
				stillMissing++
			}
		}
		if stillMissing > 0 {
			ix.logger.FromContext(ctx, config.TRACE_ID_KEY).Warn("embedding incomplete", "attempt", attempt+1, "missing", stillMissing)
			return fmt.Errorf("%d of %d: %w", stillMissing, len(pieces), errMissingVectors)
		}
		return nil
	})
	if err != nil && !errors.Is(err, retry.ErrExhausted) {
		return nil, err
	}
	return vectors, nil
}

func (ix *Indexer) invalidate(ctx context.Context, doc commonModels.Document) {
	if ix.cache == nil {
		return
	}
	log := ix.logger.FromContext(ctx, config.TRACE_ID_KEY)
	var err error
	// shared chunks show up in every owner's results
	if doc.OwnerId == "" || doc.Visibility == commonModels.VisibilityShared {
		err = ix.cache.InvalidateAll(ctx)
	} else {
		err = ix.cache.Invalidate(ctx, doc.OwnerId)
	}
	if err != nil {
		log.Warn("could not invalidate retrieval cache", "error", err)
	}
}

func chunkId(documentId string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(documentId+"#"+strconv.Itoa(index))).String()
}

// usableLength counts runes once whitespace runs are collapsed, so blank pages do not count as content.
func usableLength(text string) int {
	return utf8.RuneCountInString(strings.Join(strings.Fields(text), " "))
}
