// Package normalize converts raw listing tokens into numeric values.
//
// The source renders token volumes ("1.2B tokens", "950M"), context lengths
// ("32K") and prices ("$0.0001/M") with loose formatting; these helpers are
// pure functions with no dependencies on the rest of the pipeline.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
)

const kibi = 1024

// TokenCount normalizes a token-volume string to a float in millions.
// A trailing B multiplies by 1000; a trailing M leaves the value as-is.
// Separators and a "tokens" marker are stripped case-insensitively.
func TokenCount(text string) (float64, error) {
	s := strings.ToUpper(strings.TrimSpace(text))
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(strings.ReplaceAll(s, "TOKENS", ""))

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "B"):
		multiplier = 1000.0
		s = strings.TrimSpace(strings.TrimSuffix(s, "B"))
	case strings.HasSuffix(s, "M"):
		s = strings.TrimSpace(strings.TrimSuffix(s, "M"))
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: token count %q", ErrFormat, text)
	}
	return v * multiplier, nil
}

// ContextLength normalizes a context-length string to a token count.
// A trailing K multiplies by 1024.
func ContextLength(text string) (int, error) {
	s := strings.TrimSpace(text)

	multiplier := 1
	if strings.HasSuffix(s, "K") || strings.HasSuffix(s, "k") {
		multiplier = kibi
		s = strings.TrimSpace(s[:len(s)-1])
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: context length %q", ErrFormat, text)
	}
	return v * multiplier, nil
}

// Price extracts the numeric part of a price string such as "$0.0001/M".
// Price extraction is best-effort: empty or unparseable input yields 0.0
// and never an error, so a malformed price can not abort ingestion.
func Price(text string) float64 {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0.0
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "/M", "")
	s = strings.TrimSpace(s)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0.0
	}
	return v
}
