package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// defaultDenylist matches phone and quiz-app chrome that OCR picks up around the question.
var defaultDenylist = []string{
	// clock, date
	`^\d{1,2}[:.]\d{2}(\s?[AaPp][Mm])?$`,
	`^\d{1,2}[./-]\d{1,2}[./-]\d{2,4}$`,
	// status bar
	`^\d{1,3}\s?%$`,
	`^(?i)(lte|4g|5g|3g|wi-?fi|vpn|nfc)$`,
	// counters and navigation
	`^(?i)(question|page|slide)?\s*\d+\s*(/|of)\s*\d+$`,
	`^(?i)(back|next|previous|prev|menu|home|submit|skip|settings|search|cancel|ok|done|close|share|more|edit|help|log ?out|sign ?in)$`,
	`^(?i)(time (left|remaining)|score|points?)\s*[:\-]?\s*[\d:]*$`,
}

// LineFilter drops OCR lines that look like interface chrome.
type LineFilter struct {
	denylist []*regexp.Regexp
}

// NewLineFilter compiles the default denylist plus any extra patterns.
func NewLineFilter(extra []string) (*LineFilter, error) {
	patterns := append(append([]string{}, defaultDenylist...), extra...)

	f := &LineFilter{denylist: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid ocr denylist pattern %q: %w", p, err)
		}
		f.denylist = append(f.denylist, re)
	}

	return f, nil
}

// Filter returns the lines that probably belong to the question or its options, trimmed and in order.
func (f *LineFilter) Filter(lines []string) []string {
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || !hasLetter(line) {
			continue
		}

		if f.denied(line) {
			continue
		}

		kept = append(kept, line)
	}

	return kept
}

func (f *LineFilter) denied(line string) bool {
	for _, re := range f.denylist {
		if re.MatchString(line) {
			return true
		}
	}

	return false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}

	return false
}
