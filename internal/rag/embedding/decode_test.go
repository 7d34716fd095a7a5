package embedding

import (
	"errors"
	"testing"
)

func TestDecode_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  int
		shape Shape
		first []float32
	}{
		{"embeddings list", `{"embeddings": [[0.1, 0.2], [0.3, 0.4]]}`, 2, ShapeEmbeddingsList, []float32{0.1, 0.2}},
		{"embeddings values", `{"embeddings": [{"values": [1, 2]}, {"values": [3, 4]}]}`, 2, ShapeEmbeddingsValues, []float32{1, 2}},
		{"data rows reordered by index", `{"data": [{"index": 1, "embedding": [2]}, {"index": 0, "embedding": [1]}]}`, 2, ShapeData, []float32{1}},
		{"data rows without index", `{"data": [{"embedding": [5]}, {"embedding": [6]}]}`, 2, ShapeData, []float32{5}},
		{"single vector", `{"embedding": [0.5, 0.5]}`, 1, ShapeSingle, []float32{0.5, 0.5}},
		{"single values", `{"embedding": {"values": [7, 8]}}`, 1, ShapeSingleValues, []float32{7, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, shape, err := Decode([]byte(tt.raw), tt.want)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if shape != tt.shape {
				t.Errorf("shape = %s; want %s", shape, tt.shape)
			}
			if len(got) != tt.want {
				t.Fatalf("got %d vectors; want %d", len(got), tt.want)
			}
			for i, v := range tt.first {
				if got[0][i] != v {
					t.Errorf("first vector = %v; want %v", got[0], tt.first)
					break
				}
			}
		})
	}
}

func TestDecode_Failures(t *testing.T) {
	if _, _, err := Decode([]byte(`{"embedding": [1, 2]}`), 3); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("single vector for three texts: got %v; want ErrLengthMismatch", err)
	}
	if _, _, err := Decode([]byte(`{"result": "nope"}`), 1); !errors.Is(err, ErrDecode) {
		t.Errorf("unknown layout: got %v; want ErrDecode", err)
	}
	if _, _, err := Decode([]byte(`not json`), 1); !errors.Is(err, ErrDecode) {
		t.Errorf("garbage: got %v; want ErrDecode", err)
	}
}
