package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/TutorAPI/internal/rag/apierr"
	"github.com/akolanti/TutorAPI/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	OnEmbedBatch func(ctx context.Context, texts []string) ([][]float32, error)
	calls        atomic.Int32
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	return m.OnEmbedBatch(ctx, texts)
}

func vectorFor(text string) []float32 {
	return []float32{float32(len(text)), 1}
}

func testOptions() Options {
	return Options{
		Concurrency: 4,
		CallTimeout: time.Second,
		BatchRetry: retry.Policy{
			Attempts:  2,
			Retryable: apierr.IsRateLimited,
			Sleep:     func(ctx context.Context, d time.Duration) error { return nil },
		},
	}
}

func TestEmbed_EmptyInput(t *testing.T) {
	p := &mockProvider{OnEmbedBatch: func(ctx context.Context, texts []string) ([][]float32, error) {
		t.Fatal("provider must not be called for empty input")
		return nil, nil
	}}
	got := NewClient(p, testOptions()).Embed(context.Background(), nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEmbed_BatchSuccess(t *testing.T) {
	p := &mockProvider{OnEmbedBatch: func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, tx := range texts {
			out[i] = vectorFor(tx)
		}
		return out, nil
	}}
	got := NewClient(p, testOptions()).Embed(context.Background(), []string{"a", "bb", "ccc"})

	require.Len(t, got, 3)
	assert.Equal(t, []float32{1, 1}, got[0])
	assert.Equal(t, []float32{3, 1}, got[2])
	assert.EqualValues(t, 1, p.calls.Load())
}

func TestEmbed_PartialFailureKeepsOrder(t *testing.T) {
	p := &mockProvider{OnEmbedBatch: func(ctx context.Context, texts []string) ([][]float32, error) {
		if len(texts) > 1 {
			return nil, errors.New("batch rejected")
		}
		if texts[0] == "b" {
			return nil, errors.New("item rejected")
		}
		return [][]float32{vectorFor(texts[0] + "xx")}, nil
	}}
	got := NewClient(p, testOptions()).Embed(context.Background(), []string{"a", "b", "c"})

	require.Len(t, got, 3)
	assert.Equal(t, []float32{3, 1}, got[0])
	assert.NotNil(t, got[1])
	assert.Empty(t, got[1])
	assert.Equal(t, []float32{3, 1}, got[2])
	// one batch call, plain errors are not retried, then three single calls
	assert.EqualValues(t, 4, p.calls.Load())
}

func TestEmbed_LengthMismatchFallsBack(t *testing.T) {
	p := &mockProvider{OnEmbedBatch: func(ctx context.Context, texts []string) ([][]float32, error) {
		if len(texts) > 1 {
			return [][]float32{{1}}, nil
		}
		return [][]float32{{9}}, nil
	}}
	got := NewClient(p, testOptions()).Embed(context.Background(), []string{"x", "y"})
	assert.Equal(t, [][]float32{{9}, {9}}, got)
}

func TestEmbed_RateLimitedBatchIsRetried(t *testing.T) {
	var mu sync.Mutex
	batchCalls := 0
	p := &mockProvider{OnEmbedBatch: func(ctx context.Context, texts []string) ([][]float32, error) {
		mu.Lock()
		defer mu.Unlock()
		batchCalls++
		if batchCalls == 1 {
			return nil, &apierr.StatusError{Provider: "mock", Code: 429, Err: errors.New("quota")}
		}
		return [][]float32{{1}, {2}}, nil
	}}
	got := NewClient(p, testOptions()).Embed(context.Background(), []string{"x", "y"})
	assert.Equal(t, [][]float32{{1}, {2}}, got)
	assert.Equal(t, 2, batchCalls)
}

func TestEmbed_TimeoutIsTreatedAsFailure(t *testing.T) {
	p := &mockProvider{OnEmbedBatch: func(ctx context.Context, texts []string) ([][]float32, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	opts := testOptions()
	opts.CallTimeout = 10 * time.Millisecond
	got := NewClient(p, opts).Embed(context.Background(), []string{"slow"})
	require.Len(t, got, 1)
	assert.Empty(t, got[0])
}

func TestEmbedOne(t *testing.T) {
	p := &mockProvider{OnEmbedBatch: func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("down")
	}}
	assert.Nil(t, EmbedOne(context.Background(), NewClient(p, testOptions()), "q"))
}
