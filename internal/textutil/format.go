package textutil

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FormatClock renders d as HH:MM:SS, rounding to the nearest second. Hours
// are not wrapped at 24.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

// Upper renders an identifier such as a codec name for display.
func Upper(value string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(value))
}

// Title renders a word or phrase in title case for display.
func Title(value string) string {
	return cases.Title(language.Und).String(strings.TrimSpace(value))
}

// Plural returns singular when n is 1 and plural otherwise.
func Plural(n int, singular, plural string) string {
	return Ternary(n == 1, singular, plural)
}

// SplitKeyValue parses "key=value". The key is trimmed and must be
// non-empty; the value is kept verbatim and may be empty.
func SplitKeyValue(entry string) (string, string, error) {
	key, value, ok := strings.Cut(entry, "=")
	if !ok {
		return "", "", fmt.Errorf("expected key=value, got %q", entry)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", fmt.Errorf("empty key in %q", entry)
	}
	return key, value, nil
}
