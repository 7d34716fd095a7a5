package generation

import (
	"fmt"
	"strings"

	"github.com/akolanti/TutorAPI/internal/domain/commonModels"
)

const noContextLine = "No course material matched this question."

// BuildPrompt joins the task template, the numbered retrieved passages and the query.
func BuildPrompt(template string, retrieved []commonModels.RetrievalResult, query string) string {
	var sb strings.Builder
	if template != "" {
		sb.WriteString(strings.TrimSpace(template))
		sb.WriteString("\n\n")
	}

	sb.WriteString("Context:\n")
	if len(retrieved) == 0 {
		sb.WriteString(noContextLine)
		sb.WriteString("\n")
	}
	for i, r := range retrieved {
		label := r.Title
		if r.Source != "" && r.Source != r.Title {
			label = fmt.Sprintf("%s (%s)", r.Title, r.Source)
		}
		fmt.Fprintf(&sb, "[%d] %s\n%s\n\n", i+1, label, strings.TrimSpace(r.Content))
	}

	sb.WriteString("\nQuestion: ")
	sb.WriteString(strings.TrimSpace(query))
	return sb.String()
}
