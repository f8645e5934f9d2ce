package textutil

import (
	"unicode"
)

// IsEnglish implements the shared text policy: reject text containing
// non-Latin script characters, or whose ASCII-letter ratio over
// non-whitespace characters is too low. Short texts get a stricter
// ratio; when in doubt, accept.
func IsEnglish(text string) bool {
	if text == "" {
		return false
	}

	var ascii, nonSpace int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		nonSpace++
		if r < 128 && unicode.IsLetter(r) {
			ascii++
			continue
		}
		if nonLatinScript(r) {
			return false
		}
	}
	if nonSpace == 0 {
		return false
	}

	ratio := float64(ascii) / float64(nonSpace)
	if len([]rune(text)) < 20 {
		return ratio > 0.80
	}
	return ratio >= 0.70
}

func nonLatinScript(r rune) bool {
	switch {
	case unicode.Is(unicode.Han, r),
		unicode.Is(unicode.Hiragana, r),
		unicode.Is(unicode.Katakana, r),
		unicode.Is(unicode.Hangul, r),
		unicode.Is(unicode.Cyrillic, r),
		unicode.Is(unicode.Arabic, r),
		unicode.Is(unicode.Hebrew, r),
		unicode.Is(unicode.Thai, r),
		unicode.Is(unicode.Devanagari, r),
		unicode.Is(unicode.Bengali, r),
		unicode.Is(unicode.Tamil, r),
		unicode.Is(unicode.Georgian, r),
		unicode.Is(unicode.Armenian, r),
		unicode.Is(unicode.Greek, r):
		return true
	}
	return false
}
