package generation

import "github.com/akolanti/TutorAPI/internal/config"

// Task describes one kind of structured generation.
type Task struct {
	Name     string
	Template string
	Shape    Shape
	// Strict tasks have no meaningful fallback and surface *Error instead.
	Strict bool
	// ReplyField receives rescued or fallback text for non strict tasks.
	ReplyField    string
	FallbackReply string
}

const (
	chatTemplate = `Answer the student's question using the context below.
Respond with a JSON object: {"reply": string, "mindmap_insights": [string], "geogebra": {"should_draw": bool, "commands": [string]}}.
Write math in LaTeX.`

	testTemplate = `Write a practice test on the topic below, using the context where it helps.
Respond with a JSON object: {"title": string, "parts": {"<part name>": [{"question": string, "answer": string}]}}.
Write math in LaTeX.`
)

func ChatTask() Task {
	return Task{
		Name:     "chat",
		Template: chatTemplate,
		Shape: Shape{Fields: []Field{
			{Name: "reply", Kind: KindString, Required: true},
			{Name: "mindmap_insights", Kind: KindList, Default: []any{}},
			{Name: "geogebra", Kind: KindObject, Default: map[string]any{"should_draw": false}},
		}},
		ReplyField:    "reply",
		FallbackReply: config.FallbackChatReply,
	}
}

func PracticeTestTask() Task {
	return Task{
		Name:     "test",
		Template: testTemplate,
		Shape: Shape{Fields: []Field{
			{Name: "title", Kind: KindString, Required: true},
			{Name: "parts", Kind: KindObject, Required: true},
		}},
		Strict: true,
	}
}
