package llmjson

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replyOf(t *testing.T, cleaned string) string {
	t.Helper()
	var out struct {
		Reply string `json:"reply"`
	}
	require.NoError(t, json.Unmarshal([]byte(cleaned), &out), "cleaned text: %s", cleaned)
	return out.Reply
}

func TestClean_LatexBackslash(t *testing.T) {
	cleaned := Clean(`{"reply": "$\frac{1}{2}$"}`)
	assert.Equal(t, `$\frac{1}{2}$`, replyOf(t, cleaned))
}

func TestClean_KeepsValidEscapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"escaped backslash stays", `{"reply": "use \\n for newline and \lim_{x \to 0}"}`, `use \n for newline and \lim_{x \to 0}`},
		{"newline escape stays", `{"reply": "line one\nline two \sqrt{2}"}`, "line one\nline two \\sqrt{2}"},
		{"unicode escape stays", `{"reply": "caf\u00e9 \infty"}`, `café \infty`},
		{"short unicode is repaired", `{"reply": "\u12 left"}`, `\u12 left`},
		{"quote escape stays", `{"reply": "say \"hi\" \cdot 2"}`, `say "hi" \cdot 2`},
		{"theta times beta", `{"reply": "\theta \times \beta"}`, `\theta \times \beta`},
		{"tab before ordinary word", `{"reply": "a\tother"}`, "a\tother"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, replyOf(t, Clean(tt.raw)))
		})
	}
}

func TestClean_FenceStripping(t *testing.T) {
	plain := `{"reply": "ok", "n": 2}`
	for _, raw := range []string{
		"```json\n" + plain + "\n```",
		"```\n" + plain + "\n```",
		"```json" + plain + "```",
		"  ```JSON\n" + plain + "```  ",
	} {
		assert.Equal(t, Clean(plain), Clean(raw), "raw: %q", raw)
	}
}

func TestClean_SpanExtraction(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"prose around object", `Sure! {"reply": "use {braces}", "n": 1} hope this helps {x}`, `{"reply": "use {braces}", "n": 1}`},
		{"array fallback", `Here: [1, 2, 3] done`, `[1, 2, 3]`},
		{"unbalanced uses last brace", `{"a": {"b": 1}`, `{"a": {"b": 1}`},
		{"no json", `I could not produce an answer.`, ""},
		{"open brace only", `{ nope`, ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.raw))
		})
	}
}

func TestClean_SmartQuotesAndControlChars(t *testing.T) {
	assert.Equal(t, `{"reply": "hi"}`, Clean(`{“reply”: “hi”}`))

	cleaned := Clean("{\"reply\": \"two\nlines\x01\"}")
	assert.Equal(t, "two lines ", replyOf(t, cleaned))
}

func TestClean_Idempotent(t *testing.T) {
	inputs := []string{
		`{"reply": "$\frac{1}{2}$"}`,
		`{"reply": "use \\n and \lim_{x \to 0} \u12"}`,
		"```json\n{\"reply\": \"ok\"}\n```",
		`noise {"k": "a”}b"} trailing`,
		`{"a": "x\"}`,
		`{"a": {"b": 1}`,
		`[ {"q": "\alpha"}, {"q": "\nabla f"} ]`,
		`plain text only`,
		"{\"reply\": \"tab\there\", \"x\": \"\\\\\\frac\"}",
		`{"trailing": "\`,
	}
	for _, in := range inputs {
		once := Clean(in)
		assert.Equal(t, once, Clean(once), "input: %q", in)
	}
}

func TestDecode(t *testing.T) {
	var out struct {
		Title string         `json:"title"`
		Parts map[string]any `json:"parts"`
	}
	require.NoError(t, Decode("```json\n{\"title\": \"Quiz \\theta\", \"parts\": {}}\n```", &out))
	assert.Equal(t, `Quiz \theta`, out.Title)

	assert.ErrorIs(t, Decode("nothing here", &out), ErrNoJSON)
}

func TestExtractReply(t *testing.T) {
	reply, ok := ExtractReply(`{"reply": "Partial answer \frac{a}{b}", "mindmap_insights": [`)
	require.True(t, ok)
	assert.Equal(t, `Partial answer \frac{a}{b}`, reply)

	reply, ok = ExtractReply(`"reply" : "line\nbreak"`)
	require.True(t, ok)
	assert.Equal(t, "line\nbreak", reply)

	_, ok = ExtractReply(`{"answer": "no reply key"}`)
	assert.False(t, ok)

	_, ok = ExtractReply(`{"reply": "   "}`)
	assert.False(t, ok)
}
