package embedding

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Shape names one of the response layouts seen from embedding endpoints.
type Shape string

const (
	// {"embeddings": [[...], [...]]}
	ShapeEmbeddingsList Shape = "embeddings_list"
	// {"embeddings": [{"values": [...]}, ...]}
	ShapeEmbeddingsValues Shape = "embeddings_values"
	// {"data": [{"index": 0, "embedding": [...]}, ...]}
	ShapeData Shape = "data"
	// {"embedding": [...]}
	ShapeSingle Shape = "single"
	// {"embedding": {"values": [...]}}
	ShapeSingleValues Shape = "single_values"
)

type shapeDecoder struct {
	shape  Shape
	decode func(raw []byte) ([][]float32, bool)
}

// decoders are tried in order. Each only accepts its own layout.
var decoders = []shapeDecoder{
	{ShapeEmbeddingsList, decodeEmbeddingsList},
	{ShapeEmbeddingsValues, decodeEmbeddingsValues},
	{ShapeData, decodeData},
	{ShapeSingle, decodeSingle},
	{ShapeSingleValues, decodeSingleValues},
}

// Decode normalises a raw provider payload into one vector per input. Single vector
// layouts are only accepted when exactly one text was sent.
func Decode(raw []byte, want int) ([][]float32, Shape, error) {
	for _, d := range decoders {
		vectors, ok := d.decode(raw)
		if !ok {
			continue
		}
		if len(vectors) != want {
			return nil, d.shape, fmt.Errorf("%w: %s layout has %d vectors, want %d", ErrLengthMismatch, d.shape, len(vectors), want)
		}
		return vectors, d.shape, nil
	}
	return nil, "", ErrDecode
}

func decodeEmbeddingsList(raw []byte) ([][]float32, bool) {
	var body struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Embeddings) == 0 {
		return nil, false
	}
	return body.Embeddings, true
}

func decodeEmbeddingsValues(raw []byte) ([][]float32, bool) {
	var body struct {
		Embeddings []struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Embeddings) == 0 {
		return nil, false
	}
	out := make([][]float32, len(body.Embeddings))
	for i, e := range body.Embeddings {
		out[i] = e.Values
	}
	return out, true
}

func decodeData(raw []byte) ([][]float32, bool) {
	var body struct {
		Data []struct {
			Index     *int      `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Data) == 0 {
		return nil, false
	}
	rows := body.Data
	indexed := true
	for _, r := range rows {
		if r.Index == nil {
			indexed = false
			break
		}
	}
	if indexed {
		sort.SliceStable(rows, func(i, j int) bool { return *rows[i].Index < *rows[j].Index })
	}
	out := make([][]float32, len(rows))
	for i, r := range rows {
		out[i] = r.Embedding
	}
	return out, true
}

func decodeSingle(raw []byte) ([][]float32, bool) {
	var body struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Embedding) == 0 {
		return nil, false
	}
	return [][]float32{body.Embedding}, true
}

func decodeSingleValues(raw []byte) ([][]float32, bool) {
	var body struct {
		Embedding struct {
			Values []float32 `json:"values"`
		} `json:"embedding"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Embedding.Values) == 0 {
		return nil, false
	}
	return [][]float32{body.Embedding.Values}, true
}
