// Package slug normalizes arbitrary text into lowercase ASCII tokens
// suitable for use as URL fragments and anchor identifiers.
package slug

import "strings"

// Fallback is returned when the input normalizes to nothing.
const Fallback = "section"

// maxSource caps how much of the input participates in the slug.
// Long passages only contribute their first 80 characters.
const maxSource = 80

// Normalize lowercases the text and collapses every run of
// non-alphanumeric characters into a single hyphen. Leading and
// trailing hyphens are trimmed. Returns "" if nothing survives.
func Normalize(text string) string {
	runes := []rune(text)
	if len(runes) > maxSource {
		runes = runes[:maxSource]
	}

	var b strings.Builder
	b.Grow(len(runes))
	pendingHyphen := false
	for _, r := range runes {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// Make is Normalize with a guaranteed non-empty result.
func Make(text string) string {
	if s := Normalize(text); s != "" {
		return s
	}
	return Fallback
}
