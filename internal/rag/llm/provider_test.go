package llm

import (
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fragments(parts []string, failAt int) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for i, p := range parts {
			if i == failAt {
				yield("", errors.New("stream broke"))
				return
			}
			if !yield(p, nil) {
				return
			}
		}
	}
}

func TestCollect(t *testing.T) {
	text, err := Collect(fragments([]string{`{"reply": `, `"hi"}`}, -1))
	assert.NoError(t, err)
	assert.Equal(t, `{"reply": "hi"}`, text)

	_, err = Collect(fragments([]string{"a", "b"}, 1))
	assert.EqualError(t, err, "stream broke")

	_, err = Collect(fragments([]string{" ", "\n"}, -1))
	assert.True(t, errors.Is(err, ErrEmptyResponse))
}
