package convo

import (
	"strings"
	"unicode/utf8"

	"kino-bot/internal/recommend"
)

const (
	maxMessageLen = 4096
	maxCaptionLen = 1024
)

// InjectCode places the code block on its own line after the first genre
// line, or at the end when the description has no genre line.
func InjectCode(description, code string) string {
	block := "🔢 CODE: " + code
	description = strings.TrimRight(description, "\n ")
	lines := strings.Split(description, "\n")
	idx, _, _ := recommend.GenreLineIndex(lines)
	if idx < 0 {
		return description + "\n\n" + block
	}

	out := make([]string, 0, len(lines)+4)
	out = append(out, lines[:idx+1]...)
	out = append(out, "", block)
	rest := lines[idx+1:]
	for len(rest) > 0 && strings.TrimSpace(rest[0]) == "" {
		rest = rest[1:]
	}
	if len(rest) > 0 {
		out = append(out, "")
		out = append(out, rest...)
	}
	return strings.Join(out, "\n")
}

// caption trims s to the platform caption limit.
func caption(s string) string {
	return truncateRunes(s, maxCaptionLen)
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-1]) + "…"
}

// splitMessage breaks text into chunks under limit runes, preferring blank
// line boundaries so list entries stay whole.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)
	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}
	for _, block := range strings.Split(text, "\n\n") {
		n := utf8.RuneCountInString(block)
		if n > limit {
			flush()
			r := []rune(block)
			for len(r) > limit {
				chunks = append(chunks, string(r[:limit]))
				r = r[limit:]
			}
			block, n = string(r), len(r)
		}
		sep := 0
		if curLen > 0 {
			sep = 2
		}
		if curLen+sep+n > limit {
			flush()
			sep = 0
		}
		if sep > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(block)
		curLen += sep + n
	}
	flush()
	return chunks
}
