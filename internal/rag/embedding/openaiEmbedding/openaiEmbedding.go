package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/akolanti/TutorAPI/internal/rag/apierr"
	"github.com/akolanti/TutorAPI/internal/rag/embedding"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type client struct {
	api       openai.Client
	model     string
	dimension int64
}

// NewProvider talks to the OpenAI embeddings endpoint or any compatible server at baseURL.
func NewProvider(apiKey, baseURL, model string, dimension int32) (embedding.Provider, error) {
	if apiKey == "" && baseURL == "" {
		return nil, errors.New("openai embedding: missing api key")
	}
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &client{
		api:       openai.NewClient(opts...),
		model:     model,
		dimension: int64(dimension),
	}, nil
}

func (c *client) Name() string { return "openai" }

func (c *client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(c.model),
	}
	if c.dimension > 0 {
		params.Dimensions = openai.Int(c.dimension)
	}

	res, err := c.api.Embeddings.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &apierr.StatusError{Provider: c.Name(), Code: apiErr.StatusCode, Err: err}
		}
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}

	rows := res.Data
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Index < rows[j].Index })

	vectors := make([][]float32, len(rows))
	for i, row := range rows {
		v := make([]float32, len(row.Embedding))
		for j, f := range row.Embedding {
			v[j] = float32(f)
		}
		vectors[i] = v
	}
	return vectors, nil
}
