package llm

import (
	"context"
	"errors"
	"iter"
	"strings"
)

var ErrEmptyResponse = errors.New("llm: empty response")

// Turn is one earlier question and answer of the same conversation.
type Turn struct {
	Question string
	Answer   string
}

type Request struct {
	System           string
	Prompt           string
	History          []Turn
	Temperature      float32
	MaxOutputTokens  int32
	ResponseMIMEType string
}

// Generator is the text generation capability. GenerateStream yields text fragments in order;
// a non nil error ends the sequence.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	GenerateStream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// Collect joins a fragment stream into the full text.
func Collect(stream iter.Seq2[string, error]) (string, error) {
	var sb strings.Builder
	for fragment, err := range stream {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(fragment)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
