// Package httpEmbedding posts to self hosted embedding servers whose responses do not
// follow a single layout. Payloads are normalised with embedding.Decode.
package httpEmbedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/akolanti/TutorAPI/internal/config"
	"github.com/akolanti/TutorAPI/internal/customHttpClient"
	"github.com/akolanti/TutorAPI/internal/rag/apierr"
	"github.com/akolanti/TutorAPI/internal/rag/embedding"
	"github.com/akolanti/TutorAPI/pkg/logger_i"
)

const maxResponseBytes = 64 << 20

type client struct {
	url    string
	apiKey string
	model  string
	http   *http.Client
	logger *logger_i.Logger
}

func NewProvider(url, apiKey, model string, timeout time.Duration) (embedding.Provider, error) {
	if url == "" {
		return nil, errors.New("http embedding: missing url")
	}
	return &client{
		url:    url,
		apiKey: apiKey,
		model:  model,
		http:   customHttpClient.NewClient(timeout),
		logger: logger_i.NewLogger("http_embedding"),
	}, nil
}

func (c *client) Name() string { return "http" }

type request struct {
	Model string   `json:"model,omitempty"`
	Input []string `json:"input"`
}

func (c *client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(request{Model: c.model, Input: texts})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http embeddings: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("http embeddings: reading body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &apierr.StatusError{Provider: c.Name(), Code: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	vectors, shape, err := embedding.Decode(payload, len(texts))
	if err != nil {
		return nil, err
	}
	c.logger.FromContext(ctx, config.TRACE_ID_KEY).Debug("decoded embedding response", "shape", shape, "vectors", len(vectors))
	return vectors, nil
}
