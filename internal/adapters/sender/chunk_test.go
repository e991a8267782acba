package sender

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{name: "short text", text: "hello", limit: 10, want: []string{"hello"}},
		{name: "exact limit", text: "0123456789", limit: 10, want: []string{"0123456789"}},
		{name: "hard cut without spaces", text: "aaaaabbbbbcc", limit: 5, want: []string{"aaaaa", "bbbbb", "cc"}},
		{name: "cuts at word boundary", text: "step one\nstep two", limit: 12, want: []string{"step one", "step two"}},
		{name: "counts runes", text: "ääääää", limit: 3, want: []string{"äää", "äää"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, chunkText(tc.text, tc.limit))
		})
	}
}

func TestChunkTextKeepsContent(t *testing.T) {
	text := strings.Repeat("word ", 2000)

	chunks := chunkText(text, TwilioMessageLimit)

	assert.Len(t, chunks, 7)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), TwilioMessageLimit)
	}
	assert.Equal(t, strings.Count(text, "word"), strings.Count(strings.Join(chunks, " "), "word"))
}
