package retrieval

import (
	"context"
	"sort"

	"github.com/akolanti/TutorAPI/internal/config"
	"github.com/akolanti/TutorAPI/internal/domain/commonModels"
	"github.com/akolanti/TutorAPI/internal/metrics"
	"github.com/akolanti/TutorAPI/internal/rag/embedding"
	"github.com/akolanti/TutorAPI/internal/rag/vectorDB"
	"github.com/akolanti/TutorAPI/pkg/logger_i"
)

type Options struct {
	Threshold   float32
	DefaultTopK int
	MaxTopK     int
}

func DefaultOptions(s config.Settings) Options {
	return Options{
		Threshold:   s.MatchThreshold,
		DefaultTopK: config.RetrievalDefaultTopK,
		MaxTopK:     config.RetrievalMaxTopK,
	}
}

// Retriever answers searches from the cache first and from the vector store otherwise.
// Failures degrade to an empty result list.
type Retriever struct {
	embedder embedding.Embedder
	store    vectorDB.Store
	cache    Cache
	opts     Options
	logger   *logger_i.Logger
}

func NewRetriever(embedder embedding.Embedder, store vectorDB.Store, cache Cache, opts Options) *Retriever {
	if opts.DefaultTopK < 1 {
		opts.DefaultTopK = config.RetrievalDefaultTopK
	}
	if opts.MaxTopK < opts.DefaultTopK {
		opts.MaxTopK = opts.DefaultTopK
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		cache:    cache,
		opts:     opts,
		logger:   logger_i.NewLogger("Retriever"),
	}
}

func (r *Retriever) clampTopK(topK int) int {
	if topK < 1 {
		return r.opts.DefaultTopK
	}
	if topK > r.opts.MaxTopK {
		return r.opts.MaxTopK
	}
	return topK
}

// Search returns at most topK results for query, best first. An empty ownerId searches
// shared material only.
func (r *Retriever) Search(ctx context.Context, query, ownerId string, purpose commonModels.Purpose, topK int) []commonModels.RetrievalResult {
	log := r.logger.FromContext(ctx, config.TRACE_ID_KEY).With("purpose", purpose)
	topK = r.clampTopK(topK)
	key := NewCacheKey(ownerId, purpose, query)

	if cached, ok, err := r.cache.Get(ctx, key); err != nil {
		log.Warn("retrieval cache read failed", "error", err)
	} else if ok {
		metrics.CaptureCacheLookup(true)
		log.Debug("retrieval cache hit", "bucket", key.Bucket)
		return truncate(cached, topK)
	}
	metrics.CaptureCacheLookup(false)

	vector := embedding.EmbedOne(ctx, r.embedder, query)
	if vector == nil {
		log.Warn("query could not be embedded, continuing without context")
		return []commonModels.RetrievalResult{}
	}

	results, err := r.store.Search(ctx, vectorDB.SearchQuery{
		Vector:    vector,
		OwnerId:   ownerId,
		Purpose:   purpose,
		TopK:      r.opts.MaxTopK,
		Threshold: r.opts.Threshold,
	})
	if err != nil {
		log.Error("vector search failed", "error", err)
		return []commonModels.RetrievalResult{}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	results = truncate(results, r.opts.MaxTopK)

	// the key has no topK, so the entry holds every candidate a later caller may ask for
	if err := r.cache.Set(ctx, key, results); err != nil {
		log.Warn("retrieval cache write failed", "error", err)
	}
	return truncate(results, topK)
}

func truncate(results []commonModels.RetrievalResult, topK int) []commonModels.RetrievalResult {
	if results == nil {
		return []commonModels.RetrievalResult{}
	}
	if len(results) > topK {
		return results[:topK]
	}
	return results
}

// Invalidate and InvalidateAll let the indexer clear results a new document changes.
func (r *Retriever) Invalidate(ctx context.Context, bucket string) error {
	if bucket == "" {
		bucket = config.PublicOwnerBucket
	}
	return r.cache.Invalidate(ctx, bucket)
}

func (r *Retriever) InvalidateAll(ctx context.Context) error {
	return r.cache.InvalidateAll(ctx)
}
