package loader

import (
	"strings"
	"unicode"
)

const (
	chunkSize    = 2000
	chunkOverlap = 200
)

// SplitText splits text into chunks of at most chunkSize runes with
// chunkOverlap runes of overlap between consecutive chunks. Boundaries
// prefer whitespace near the cut so words are not split mid-rune-sequence.
// Whitespace-only input yields no chunks.
func SplitText(text string) []string {
	runes := []rune(text)
	if len(strings.TrimSpace(text)) == 0 {
		return nil
	}
	if len(runes) <= chunkSize {
		return []string{text}
	}

	var out []string
	start := 0
	for start < len(runes) {
		end := start + chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakNearWhitespace(runes, start, end)
		}

		piece := string(runes[start:end])
		if strings.TrimSpace(piece) != "" {
			out = append(out, piece)
		}
		if end == len(runes) {
			break
		}

		next := end - chunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// breakNearWhitespace backs the cut point up to the nearest whitespace rune,
// scanning at most chunkOverlap runes. If none is found the hard cut stands.
func breakNearWhitespace(runes []rune, start, end int) int {
	limit := end - chunkOverlap
	if limit < start+1 {
		limit = start + 1
	}
	for i := end; i > limit; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}
