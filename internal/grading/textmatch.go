package grading

import (
	"strings"
	"unicode"
)

// normalize lowercases s, drops punctuation and collapses whitespace runs to
// a single space.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if unicode.IsPunct(r) {
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// editDistance is the rune-level Levenshtein distance between a and b.
func editDistance(a, b string) int {
	src, dst := []rune(a), []rune(b)
	if len(src) < len(dst) {
		src, dst = dst, src
	}
	if len(dst) == 0 {
		return len(src)
	}
	row := make([]int, len(dst)+1)
	for j := range row {
		row[j] = j
	}
	for i, sr := range src {
		diag := row[0]
		row[0] = i + 1
		for j, dr := range dst {
			above := row[j+1]
			best := diag
			if sr != dr {
				best = min(diag, above, row[j]) + 1
			}
			row[j+1] = best
			diag = above
		}
	}
	return row[len(dst)]
}
