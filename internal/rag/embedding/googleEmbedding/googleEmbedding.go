package googleEmbedding

import (
	"context"
	"errors"

	"github.com/akolanti/TutorAPI/internal/rag/embedding"
	"github.com/akolanti/TutorAPI/pkg/logger_i"
	"google.golang.org/genai"
)

const taskType = "RETRIEVAL_DOCUMENT"

type client struct {
	genAi     *genai.Client
	model     string
	dimension int32
	logger    *logger_i.Logger
}

// NewProvider builds a Gemini API embedding provider. The caller owns its lifetime.
func NewProvider(ctx context.Context, apiKey string, modelName string, dimension int32) (embedding.Provider, error) {
	if apiKey == "" {
		return nil, errors.New("google embedding: missing api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	logger := logger_i.NewLogger("google_embedding")
	logger.Info("Google Embedding client created", "model", modelName)
	return &client{genAi: c, model: modelName, dimension: dimension, logger: logger}, nil
}

func (c *client) Name() string { return "google" }

func (c *client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	dim := c.dimension
	res, err := c.genAi.Models.EmbedContent(ctx, c.model, getContent(texts), &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
		TaskType:             taskType,
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, embedding.ErrDecode
	}

	vectors := make([][]float32, len(res.Embeddings))
	for i, e := range res.Embeddings {
		if e == nil {
			c.logger.Warn("empty embedding in batch response", "index", i)
			continue
		}
		vectors[i] = e.Values
	}
	return vectors, nil
}

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))

	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}
