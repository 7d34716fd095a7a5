package ingest

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/TutorAPI/internal/data/blob"
	"github.com/akolanti/TutorAPI/internal/data/store"
	"github.com/akolanti/TutorAPI/internal/domain/commonModels"
	"github.com/akolanti/TutorAPI/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/TutorAPI/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEmbedder struct {
	mu      sync.Mutex
	calls   int
	OnEmbed func(call int, texts []string) [][]float32
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) [][]float32 {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.mu.Unlock()
	return m.OnEmbed(call, texts)
}

func fixedVectors(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.1, 0.1, 0.1}
	}
	return out
}

type extractorFunc func(ctx context.Context, path, ext string) (string, error)

func (f extractorFunc) Extract(ctx context.Context, path, ext string) (string, error) {
	return f(ctx, path, ext)
}

// recordingExtractor reads plain text and records the temp path it was given.
type recordingExtractor struct {
	paths []string
}

func (r *recordingExtractor) Extract(ctx context.Context, path, ext string) (string, error) {
	r.paths = append(r.paths, path)
	data, err := os.ReadFile(path)
	return string(data), err
}

type spyCache struct {
	buckets []string
	all     int
}

func (s *spyCache) Invalidate(ctx context.Context, bucket string) error {
	s.buckets = append(s.buckets, bucket)
	return nil
}

func (s *spyCache) InvalidateAll(ctx context.Context) error {
	s.all++
	return nil
}

type fixture struct {
	indexer   *Indexer
	blobs     blob.Storage
	docs      *store.InMemoryDocumentStore
	vectors   *memoryDB.Store
	embedder  *mockEmbedder
	extractor *recordingExtractor
	cache     *spyCache
}

func newFixture(t *testing.T, onEmbed func(call int, texts []string) [][]float32) *fixture {
	t.Helper()
	blobs, err := blob.NewFileStorage(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		blobs:     blobs,
		docs:      store.InitDocumentStore(),
		vectors:   memoryDB.NewStore(),
		embedder:  &mockEmbedder{OnEmbed: onEmbed},
		extractor: &recordingExtractor{},
		cache:     &spyCache{},
	}
	opts := Options{
		MaxChars:      800,
		MinTextLength: 50,
		TempDir:       t.TempDir(),
		EmbedRetry: retry.Policy{
			Attempts: 3,
			Sleep:    func(ctx context.Context, d time.Duration) error { return nil },
		},
	}
	f.indexer = NewIndexer(f.blobs, f.docs, f.extractor, f.embedder, f.vectors, f.cache, opts)
	return f
}

func (f *fixture) upload(t *testing.T, doc commonModels.Document, content string) {
	t.Helper()
	require.NoError(t, f.blobs.Upload(context.Background(), doc.StorageLocation, []byte(content)))
	require.NoError(t, f.docs.SaveDocument(context.Background(), doc))
}

func plainTextOf(length int) string {
	word := "calculus "
	return strings.Repeat(word, length/len(word)+1)[:length]
}

func TestIndex_PlainTextEndToEnd(t *testing.T) {
	f := newFixture(t, func(call int, texts []string) [][]float32 { return fixedVectors(texts) })
	doc := commonModels.Document{
		Id:              "doc-1",
		OwnerId:         "user-1",
		Title:           "Limits",
		FileName:        "limits.txt",
		StorageLocation: "user-1/limits.txt",
		Purpose:         commonModels.PurposeChat,
		Visibility:      commonModels.VisibilityPrivate,
		Status:          commonModels.DocumentProcessing,
	}
	f.upload(t, doc, plainTextOf(2000))

	count, err := f.indexer.Index(context.Background(), "user-1", "doc-1", "", commonModels.PurposeChat)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	stored := f.vectors.Chunks(commonModels.PurposeChat, "doc-1")
	require.Len(t, stored, 3)
	for i, c := range stored {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, []float32{0.1, 0.1, 0.1, 0.1}, c.Embedding)
		assert.LessOrEqual(t, c.ContentLength, 800)
		assert.Equal(t, "user-1", c.OwnerId)
	}

	got, _, _ := f.docs.GetDocument(context.Background(), "doc-1")
	assert.Equal(t, commonModels.DocumentReady, got.Status)
	assert.Equal(t, 3, got.ChunkCount)
	assert.Equal(t, []string{"user-1"}, f.cache.buckets)

	require.Len(t, f.extractor.paths, 1)
	_, statErr := os.Stat(f.extractor.paths[0])
	assert.True(t, os.IsNotExist(statErr), "temp artifact must be removed")
}

func TestIndex_ShortTextFails(t *testing.T) {
	f := newFixture(t, func(call int, texts []string) [][]float32 { return fixedVectors(texts) })
	doc := commonModels.Document{Id: "doc-2", OwnerId: "u", StorageLocation: "u/short.txt", Purpose: commonModels.PurposeChat}
	f.upload(t, doc, "too short")

	count, err := f.indexer.Index(context.Background(), "u", "doc-2", "", commonModels.PurposeChat)
	assert.True(t, errors.Is(err, ErrNoContent))
	assert.Zero(t, count)

	got, _, _ := f.docs.GetDocument(context.Background(), "doc-2")
	assert.Equal(t, commonModels.DocumentFailed, got.Status)
	assert.Zero(t, got.ChunkCount)
	assert.NotEmpty(t, got.LastError)
	assert.Zero(t, f.embedder.calls)
	assert.Empty(t, f.cache.buckets)

	require.Len(t, f.extractor.paths, 1)
	_, statErr := os.Stat(f.extractor.paths[0])
	assert.True(t, os.IsNotExist(statErr), "temp artifact must be removed on failure too")
}

func TestIndex_RetriesOnlyMissingChunks(t *testing.T) {
	var seen [][]string
	f := newFixture(t, func(call int, texts []string) [][]float32 {
		seen = append(seen, texts)
		out := fixedVectors(texts)
		if call == 1 {
			out[1] = []float32{}
		}
		return out
	})
	doc := commonModels.Document{Id: "doc-3", OwnerId: "u", StorageLocation: "u/a.txt", Purpose: commonModels.PurposeTest}
	f.upload(t, doc, plainTextOf(2000))

	count, err := f.indexer.Index(context.Background(), "u", "doc-3", "", commonModels.PurposeTest)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.Len(t, seen, 2)
	assert.Len(t, seen[1], 1, "second attempt embeds only the missing chunk")
}

func TestIndex_DropsChunksThatNeverEmbed(t *testing.T) {
	f := newFixture(t, func(call int, texts []string) [][]float32 {
		out := fixedVectors(texts)
		for i, text := range texts {
			if strings.HasPrefix(text, "skip") {
				out[i] = nil
			}
		}
		return out
	})
	text := plainTextOf(790) + " " + "skip" + plainTextOf(796) + " " + plainTextOf(400)
	doc := commonModels.Document{Id: "doc-4", OwnerId: "u", StorageLocation: "u/b.txt", Purpose: commonModels.PurposeChat}
	f.upload(t, doc, text)

	count, err := f.indexer.Index(context.Background(), "u", "doc-4", "", commonModels.PurposeChat)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 3, f.embedder.calls)

	stored := f.vectors.Chunks(commonModels.PurposeChat, "doc-4")
	require.Len(t, stored, 2)
	assert.Equal(t, 0, stored[0].ChunkIndex)
	assert.Equal(t, 1, stored[1].ChunkIndex)
}

func TestIndex_TotalEmbeddingFailure(t *testing.T) {
	f := newFixture(t, func(call int, texts []string) [][]float32 { return make([][]float32, len(texts)) })
	doc := commonModels.Document{Id: "doc-5", OwnerId: "u", StorageLocation: "u/c.txt", Purpose: commonModels.PurposeChat}
	f.upload(t, doc, plainTextOf(300))

	_, err := f.indexer.Index(context.Background(), "u", "doc-5", "", commonModels.PurposeChat)
	assert.True(t, errors.Is(err, ErrNoEmbeddings))

	got, _, _ := f.docs.GetDocument(context.Background(), "doc-5")
	assert.Equal(t, commonModels.DocumentFailed, got.Status)
}

func TestIndex_ReindexKeepsIndicesContiguous(t *testing.T) {
	f := newFixture(t, func(call int, texts []string) [][]float32 { return fixedVectors(texts) })
	doc := commonModels.Document{Id: "doc-6", OwnerId: "u", StorageLocation: "u/d.txt", Purpose: commonModels.PurposeChat}
	f.upload(t, doc, plainTextOf(2000))

	_, err := f.indexer.Index(context.Background(), "u", "doc-6", "", commonModels.PurposeChat)
	require.NoError(t, err)

	require.NoError(t, f.blobs.Upload(context.Background(), "u/d.txt", []byte(plainTextOf(900))))
	count, err := f.indexer.Index(context.Background(), "u", "doc-6", "", commonModels.PurposeChat)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	stored := f.vectors.Chunks(commonModels.PurposeChat, "doc-6")
	require.Len(t, stored, 2)
	for i, c := range stored {
		assert.Equal(t, i, c.ChunkIndex)
	}
}

func TestIndex_SharedDocumentInvalidatesEverything(t *testing.T) {
	f := newFixture(t, func(call int, texts []string) [][]float32 { return fixedVectors(texts) })
	doc := commonModels.Document{Id: "doc-7", StorageLocation: "public/e.txt", Purpose: commonModels.PurposeKnowledge, Visibility: commonModels.VisibilityShared}
	f.upload(t, doc, plainTextOf(200))

	_, err := f.indexer.Index(context.Background(), "", "doc-7", "", commonModels.PurposeKnowledge)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.all)
	assert.Empty(t, f.cache.buckets)
}

func TestIndex_UnknownOrForeignDocument(t *testing.T) {
	f := newFixture(t, func(call int, texts []string) [][]float32 { return fixedVectors(texts) })
	doc := commonModels.Document{Id: "doc-8", OwnerId: "owner", StorageLocation: "owner/f.txt", Purpose: commonModels.PurposeChat}
	f.upload(t, doc, plainTextOf(200))

	_, err := f.indexer.Index(context.Background(), "someone-else", "doc-8", "", commonModels.PurposeChat)
	assert.True(t, errors.Is(err, ErrDocumentNotFound))

	_, err = f.indexer.Index(context.Background(), "owner", "missing", "", commonModels.PurposeChat)
	assert.True(t, errors.Is(err, ErrDocumentNotFound))
}

func TestIndex_UnsupportedFormatIsNoContent(t *testing.T) {
	blobs, err := blob.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	docs := store.InitDocumentStore()
	unsupported := extractorFunc(func(ctx context.Context, path, ext string) (string, error) {
		return NewFileExtractor().Extract(ctx, path, ext)
	})
	ix := NewIndexer(blobs, docs, unsupported, &mockEmbedder{OnEmbed: func(int, []string) [][]float32 { return nil }},
		memoryDB.NewStore(), nil, Options{MaxChars: 800, MinTextLength: 50, TempDir: t.TempDir()})

	doc := commonModels.Document{Id: "img", OwnerId: "u", StorageLocation: "u/picture.png", Purpose: commonModels.PurposeChat}
	require.NoError(t, blobs.Upload(context.Background(), doc.StorageLocation, []byte("\x89PNG")))
	require.NoError(t, docs.SaveDocument(context.Background(), doc))

	_, err = ix.Index(context.Background(), "u", "img", "", commonModels.PurposeChat)
	assert.True(t, errors.Is(err, ErrNoContent))
}

func TestIndex_WhitespaceOnlyTextIsNoContent(t *testing.T) {
	cases := map[string]string{
		"blank scan":     strings.Repeat("\n \f", 40),
		"padded by gaps": strings.Repeat(" ", 70) + "Hi",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, func(call int, texts []string) [][]float32 { return fixedVectors(texts) })
			doc := commonModels.Document{Id: "blank", OwnerId: "u", StorageLocation: "u/blank.txt", Purpose: commonModels.PurposeChat}
			f.upload(t, doc, content)

			count, err := f.indexer.Index(context.Background(), "u", "blank", "", commonModels.PurposeChat)
			assert.True(t, errors.Is(err, ErrNoContent), "got %v", err)
			assert.Zero(t, count)
			assert.Zero(t, f.embedder.calls)

			got, _, _ := f.docs.GetDocument(context.Background(), "blank")
			assert.Equal(t, commonModels.DocumentFailed, got.Status)
			assert.Empty(t, f.vectors.Chunks(commonModels.PurposeChat, "blank"))
		})
	}
}

// readyRejectingStore fails the ready transition and lets every other write through.
type readyRejectingStore struct {
	*store.InMemoryDocumentStore
}

func (s readyRejectingStore) UpdateStatus(ctx context.Context, id string, status commonModels.DocumentStatus, chunkCount int, lastError string) error {
	if status == commonModels.DocumentReady {
		return errors.New("status write refused")
	}
	return s.InMemoryDocumentStore.UpdateStatus(ctx, id, status, chunkCount, lastError)
}

func TestIndex_ReadyWriteFailureEndsFailed(t *testing.T) {
	f := newFixture(t, func(call int, texts []string) [][]float32 { return fixedVectors(texts) })
	doc := commonModels.Document{Id: "doc-9", OwnerId: "u", StorageLocation: "u/g.txt", Purpose: commonModels.PurposeChat}
	f.upload(t, doc, plainTextOf(300))

	ix := NewIndexer(f.blobs, readyRejectingStore{f.docs}, f.extractor, f.embedder, f.vectors, f.cache, f.indexer.opts)
	count, err := ix.Index(context.Background(), "u", "doc-9", "", commonModels.PurposeChat)
	require.Error(t, err)
	assert.Zero(t, count)

	got, _, _ := f.docs.GetDocument(context.Background(), "doc-9")
	assert.Equal(t, commonModels.DocumentFailed, got.Status)
	assert.Zero(t, got.ChunkCount)
	assert.Contains(t, got.LastError, "status write refused")
}
