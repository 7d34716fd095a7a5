package gemini

import (
	"context"
	"errors"
	"iter"

	"github.com/akolanti/TutorAPI/internal/config"
	"github.com/akolanti/TutorAPI/internal/rag/llm"
	"github.com/akolanti/TutorAPI/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client    *genai.Client
	modelName string
	logger    *logger_i.Logger
}

// NewGenerator builds a Gemini backed llm.Generator. The caller owns its lifetime.
func NewGenerator(ctx context.Context, apiKey string, modelName string) (llm.Generator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: missing api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	logger := logger_i.NewLogger("llm_gemini")
	logger.Info("Gemini client created", "model", modelName)
	return &llmClient{client: c, modelName: modelName, logger: logger}, nil
}

func buildContents(req llm.Request) []*genai.Content {
	contents := make([]*genai.Content, 0, 2*len(req.History)+1)
	for _, turn := range req.History {
		if turn.Question != "" {
			contents = append(contents, genai.NewContentFromText(turn.Question, genai.RoleUser))
		}
		if turn.Answer != "" {
			contents = append(contents, genai.NewContentFromText(turn.Answer, genai.RoleModel))
		}
	}
	return append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))
}

func buildConfig(req llm.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(req.Temperature),
		MaxOutputTokens:  req.MaxOutputTokens,
		ResponseMIMEType: req.ResponseMIMEType,
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	return cfg
}

func (c *llmClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	log := c.logger.FromContext(ctx, config.TRACE_ID_KEY)
	result, err := c.client.Models.GenerateContent(ctx, c.modelName, buildContents(req), buildConfig(req))
	if err != nil {
		log.Error("gemini generate failed", "error", err)
		return "", err
	}
	text := result.Text()
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

func (c *llmClient) GenerateStream(ctx context.Context, req llm.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for result, err := range c.client.Models.GenerateContentStream(ctx, c.modelName, buildContents(req), buildConfig(req)) {
			if err != nil {
				yield("", err)
				return
			}
			if !yield(result.Text(), nil) {
				return
			}
		}
	}
}
