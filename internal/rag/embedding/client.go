package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/TutorAPI/internal/config"
	"github.com/akolanti/TutorAPI/internal/metrics"
	"github.com/akolanti/TutorAPI/internal/rag/apierr"
	"github.com/akolanti/TutorAPI/pkg/logger_i"
	"github.com/akolanti/TutorAPI/pkg/retry"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	// Concurrency bounds the per item fallback calls in flight.
	Concurrency int
	CallTimeout time.Duration
	// BatchRetry applies to the batched call only. Per item calls are tried once.
	BatchRetry retry.Policy
}

func DefaultOptions() Options {
	return Options{
		Concurrency: config.EmbeddingConcurrency,
		CallTimeout: config.EmbeddingCallTimeout,
		BatchRetry: retry.Policy{
			Attempts:  config.EmbeddingBatchAttempts,
			BaseDelay: config.EmbeddingRetryBaseDelay,
			MaxDelay:  config.EmbeddingRetryMaxDelay,
			Retryable: apierr.IsRateLimited,
		},
	}
}

// Client batches texts into one provider call and falls back to concurrent per item
// calls when the batch fails or comes back malformed. It never returns an error.
type Client struct {
	provider Provider
	opts     Options
	logger   *logger_i.Logger
}

func NewClient(p Provider, opts Options) *Client {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = config.EmbeddingCallTimeout
	}
	return &Client{
		provider: p,
		opts:     opts,
		logger:   logger_i.NewLogger("embedding_client").With("provider", p.Name()),
	}
}

func (c *Client) Embed(ctx context.Context, texts []string) [][]float32 {
	if len(texts) == 0 {
		return [][]float32{}
	}
	log := c.logger.FromContext(ctx, config.TRACE_ID_KEY)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	vectors, err := c.batch(ctx, texts)
	if err == nil {
		return vectors
	}
	log.Warn("batch embedding failed, falling back to per item calls", "texts", len(texts), "error", err)
	return c.perItem(ctx, texts, log)
}

func (c *Client) batch(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := retry.Do(ctx, c.opts.BatchRetry, func(ctx context.Context, attempt int) error {
		callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
		defer cancel()

		res, err := c.provider.EmbedBatch(callCtx, texts)
		if err != nil {
			return err
		}
		if len(res) != len(texts) {
			return fmt.Errorf("%w: got %d for %d", ErrLengthMismatch, len(res), len(texts))
		}
		vectors = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := range vectors {
		if vectors[i] == nil {
			vectors[i] = []float32{}
		}
	}
	return vectors, nil
}

func (c *Client) perItem(ctx context.Context, texts []string, log *logger_i.Logger) [][]float32 {
	out := make([][]float32, len(texts))

	var g errgroup.Group
	g.SetLimit(c.opts.Concurrency)
	for i, text := range texts {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
			defer cancel()

			res, err := c.provider.EmbedBatch(callCtx, []string{text})
			switch {
			case err != nil:
				log.Warn("embedding item failed", "index", i, "reason", apierr.Classify(err), "error", err)
			case len(res) != 1:
				log.Warn("embedding item returned wrong vector count", "index", i, "count", len(res))
			default:
				out[i] = res[0]
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i := range out {
		if out[i] == nil {
			out[i] = []float32{}
		}
		if len(out[i]) == 0 {
			failed++
		}
	}
	if failed > 0 {
		log.Error("per item embedding left gaps", "failed", failed, "total", len(texts))
	}
	return out
}
