package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/akolanti/TutorAPI/internal/config"
)

// Split packs whitespace separated tokens into chunks of at most maxChars characters,
// joined by single spaces. A token longer than maxChars is cut into maxChars sized
// pieces, each emitted as its own chunk. Lengths are counted in runes.
// maxChars below 1 falls back to config.ChunkMaxChars.
func Split(text string, maxChars int) []string {
	if maxChars < 1 {
		maxChars = config.ChunkMaxChars
	}

	var chunks []string
	var buf strings.Builder
	bufLen := 0

	flush := func() {
		if bufLen > 0 {
			chunks = append(chunks, buf.String())
			buf.Reset()
			bufLen = 0
		}
	}

	for _, token := range strings.Fields(text) {
		tokenLen := utf8.RuneCountInString(token)

		sep := 0
		if bufLen > 0 {
			sep = 1
		}
		if bufLen+sep+tokenLen <= maxChars {
			if sep == 1 {
				buf.WriteByte(' ')
			}
			buf.WriteString(token)
			bufLen += sep + tokenLen
			continue
		}

		flush()
		if tokenLen <= maxChars {
			buf.WriteString(token)
			bufLen = tokenLen
			continue
		}
		chunks = append(chunks, hardSplit(token, maxChars)...)
	}
	flush()

	return chunks
}

func hardSplit(token string, size int) []string {
	runes := []rune(token)
	pieces := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}
