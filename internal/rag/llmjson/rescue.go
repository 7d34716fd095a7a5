package llmjson

import (
	"encoding/json"
	"regexp"
	"strings"
)

var replyPattern = regexp.MustCompile(`(?s)"reply"\s*:\s*"((?:[^"\\]|\\.)*)"`)

// ExtractReply pulls the human readable "reply" string out of text that failed to parse
// as a whole. The value is JSON unescaped when possible.
func ExtractReply(raw string) (string, bool) {
	m := replyPattern.FindStringSubmatch(smartQuotes.Replace(raw))
	if m == nil {
		return "", false
	}
	body := m[1]

	var out string
	quoted := `"` + repairBackslashes(protectLatex(replaceControlChars(body))) + `"`
	if err := json.Unmarshal([]byte(quoted), &out); err == nil {
		out = strings.TrimSpace(out)
		return out, out != ""
	}
	body = strings.TrimSpace(body)
	return body, body != ""
}
