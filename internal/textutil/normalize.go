package textutil

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"unicode"
)

// NormalizeTitle lowercases, strips punctuation and collapses whitespace
// so titles differing only in capitalization or punctuation collide.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	lastSpace := true
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Fingerprint hashes normalized title + first-author last name + year
// into the weakest identity tier.
func Fingerprint(normalizedTitle, authorLastName string, year int) string {
	h := sha1.New()
	h.Write([]byte(normalizedTitle))
	h.Write([]byte(strings.ToLower(strings.TrimSpace(authorLastName))))
	h.Write([]byte{byte(year >> 8), byte(year)})
	return hex.EncodeToString(h.Sum(nil))
}

// CollapseWhitespace squeezes runs of whitespace into single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most n runes without splitting one.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
