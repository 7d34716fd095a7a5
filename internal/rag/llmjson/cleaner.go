// Package llmjson turns the free form text a generative model returns into JSON text
// that has a fair chance of parsing.
//
// Clean runs a fixed sequence of repairs:
//
//  1. strip markdown code fences
//  2. keep the outermost {...} span, else the outermost [...] span, else give up
//  3. straighten smart quotes
//  4. replace ASCII control characters with spaces
//  5. protect LaTeX commands whose first letter would read as a JSON escape (\frac, \theta, \beta ...)
//  6. if the text parses, stop
//  7. double every backslash that does not start a valid JSON escape
//
// Clean never panics, returns "" when no JSON is present, and Clean(Clean(x)) == Clean(x).
package llmjson

import (
	"encoding/json"
	"strings"
)

// Clean returns repaired JSON text, or "" when raw holds no brace or bracket delimited span.
func Clean(raw string) string {
	text := stripFences(raw)

	text = outermostSpan(text)
	if text == "" {
		return ""
	}

	text = smartQuotes.Replace(text)
	text = replaceControlChars(text)
	text = protectLatex(text)

	if json.Valid([]byte(text)) {
		return text
	}
	return repairBackslashes(text)
}

// Decode cleans raw and unmarshals it into v.
func Decode(raw string, v any) error {
	cleaned := Clean(raw)
	if cleaned == "" {
		return ErrNoJSON
	}
	return json.Unmarshal([]byte(cleaned), v)
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		} else {
			text = strings.TrimLeft(strings.TrimPrefix(text, "```"), "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
		}
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

var smartQuotes = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`, "‟", `"`, "″", `"`,
	"‘", "'", "’", "'", "‚", "'", "‛", "'", "′", "'",
)

func isDoubleQuote(r rune) bool {
	switch r {
	case '"', '“', '”', '„', '‟', '″':
		return true
	}
	return false
}

func replaceControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
}
