package evaluators

import (
	"strings"
	"unicode"
)

// wordCount counts whitespace-separated words.
func wordCount(text string) int {
	return len(strings.Fields(text))
}

// splitSentences breaks text on sentence-ending punctuation. Crude, but
// deterministic and good enough for readability heuristics.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			s := strings.TrimSpace(b.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// tokenize lowercases and splits on non-letter/digit runes, dropping
// stopwords and words shorter than 3 runes.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 3 || stopword(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// mentioned reports whether any significant word of the phrase appears in
// the (lowercased) text, with a crude plural trim so "constraints" still
// matches "constraint".
func mentioned(textLower, phrase string) bool {
	for _, word := range strings.Fields(strings.ToLower(phrase)) {
		word = strings.Trim(word, ".,;:()[]\"'")
		if len(word) < 4 || stopword(word) {
			continue
		}
		if strings.Contains(textLower, word) {
			return true
		}
		if strings.HasSuffix(word, "es") {
			if base := strings.TrimSuffix(word, "es"); len(base) >= 4 && strings.Contains(textLower, base) {
				return true
			}
		} else if strings.HasSuffix(word, "s") {
			if base := strings.TrimSuffix(word, "s"); len(base) >= 4 && strings.Contains(textLower, base) {
				return true
			}
		}
	}
	return false
}

// containsPhrase reports whether the whole phrase appears in the text,
// case-insensitive.
func containsPhrase(textLower, phrase string) bool {
	return strings.Contains(textLower, strings.ToLower(strings.TrimSpace(phrase)))
}

func stopword(word string) bool {
	switch word {
	case "the", "with", "that", "this", "from", "into", "over", "your", "you",
		"and", "for", "are", "not", "all", "out", "per", "must", "should",
		"have", "has", "been", "will", "can", "any", "each", "their", "its",
		"when", "where", "which", "than", "then", "also", "such", "may":
		return true
	default:
		return false
	}
}
