package sender

import "strings"

// chunkText splits text into pieces of at most limit runes, preferring to cut at the last newline or
// space inside the window.
func chunkText(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(runes) > limit {
		cut := limit
		if i := lastBreak(runes[:limit]); i > limit/2 {
			cut = i + 1
		}

		chunks = append(chunks, strings.TrimRight(string(runes[:cut]), " \n"))
		runes = runes[cut:]
	}

	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}

	return chunks
}

func lastBreak(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == '\n' || runes[i] == ' ' {
			return i
		}
	}

	return -1
}
