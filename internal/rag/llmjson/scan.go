package llmjson

import (
	"errors"
	"strings"
)

var ErrNoJSON = errors.New("llmjson: no JSON object or array found")

// outermostSpan returns the object span, falling back to the array span.
func outermostSpan(s string) string {
	if span := delimitedSpan(s, '{', '}'); span != "" {
		return span
	}
	return delimitedSpan(s, '[', ']')
}

// delimitedSpan runs from the first open to its balanced close. Quotes (straight or
// smart) and escapes are honoured so braces inside strings do not count. When the
// span never balances, the last close after the opener ends it.
func delimitedSpan(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i, r := range s[start:] {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case isDoubleQuote(r):
				inString = false
			}
			continue
		}
		switch {
		case isDoubleQuote(r):
			inString = true
		case r == rune(open):
			depth++
		case r == rune(close):
			depth--
			if depth == 0 {
				return s[start : start+i+1]
			}
		}
	}

	end := strings.LastIndexByte(s, close)
	if end <= start {
		return ""
	}
	return s[start : end+1]
}

// repairBackslashes keeps \" \\ \/ \b \f \n \r \t and \uXXXX, and doubles any other backslash.
func repairBackslashes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(s) {
			switch next := s[i+1]; next {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
				b.WriteByte('\\')
				b.WriteByte(next)
				i++
				continue
			case 'u':
				if i+5 < len(s) && isHex4(s[i+2:i+6]) {
					b.WriteString(s[i : i+6])
					i += 5
					continue
				}
			}
		}
		b.WriteString(`\\`)
	}
	return b.String()
}

func isHex4(s string) bool {
	for i := 0; i < 4; i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

// latexCommands start with b, f, n, r or t, so a lone backslash before them parses as
// a control character instead of failing. Only whole command names are matched.
var latexCommands = map[string]struct{}{
	"bar": {}, "beta": {}, "begin": {}, "bf": {}, "big": {}, "bigl": {}, "bigr": {}, "bigg": {},
	"binom": {}, "bmod": {}, "boldsymbol": {}, "bot": {}, "boxed": {}, "breve": {}, "bullet": {},
	"frac": {}, "flat": {}, "forall": {}, "frown": {},
	"nabla": {}, "neg": {}, "neq": {}, "newline": {}, "ngeq": {}, "nleq": {}, "nmid": {},
	"not": {}, "notin": {}, "nparallel": {}, "nsubseteq": {},
	"rangle": {}, "rbrace": {}, "rceil": {}, "rfloor": {}, "rho": {}, "right": {},
	"rightarrow": {}, "rightleftharpoons": {}, "rm": {}, "rvert": {},
	"tan": {}, "tanh": {}, "tau": {}, "text": {}, "textbf": {}, "textit": {}, "textrm": {},
	"tfrac": {}, "therefore": {}, "theta": {}, "tilde": {}, "times": {}, "to": {}, "top": {},
	"triangle": {}, "triangleq": {},
}

func protectLatex(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(s) && s[i+1] == '\\' {
			b.WriteString(`\\`)
			i++
			continue
		}
		end := i + 1
		for end < len(s) && isASCIILetter(s[end]) {
			end++
		}
		if _, ok := latexCommands[s[i+1:end]]; ok {
			b.WriteString(`\\`)
			b.WriteString(s[i+1 : end])
			i = end - 1
			continue
		}
		b.WriteByte('\\')
	}
	return b.String()
}

func isASCIILetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
