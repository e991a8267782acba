package domain

import (
	"regexp"
	"strings"
)

const (
	AnswerMarker      = "Answer:"
	FinalAnswerMarker = "Final Answer:"
)

var optionPrefix = regexp.MustCompile(`^\(?[A-H][.)]\)?[*_]*\s+`)

// FormatAnswer returns the text after the last "Answer:" marker with structural prefixes removed.
// Without a marker the whole answer is used.
func FormatAnswer(raw string) string {
	return extractAfter(raw, AnswerMarker)
}

// FormatFinalAnswer is FormatAnswer for arbitration output, keyed on "Final Answer:".
func FormatFinalAnswer(raw string) string {
	return extractAfter(raw, FinalAnswerMarker)
}

func extractAfter(raw, marker string) string {
	text := raw
	if i := strings.LastIndex(raw, marker); i >= 0 {
		text = raw[i+len(marker):]
	}

	return stripPrefixes(text)
}

// stripPrefixes removes emphasis around the answer and at most one leading option letter.
func stripPrefixes(text string) string {
	text = trimEmphasis(text)
	text = optionPrefix.ReplaceAllString(text, "")

	return trimEmphasis(text)
}

func trimEmphasis(text string) string {
	return strings.Trim(text, " \t\r\n*_")
}
