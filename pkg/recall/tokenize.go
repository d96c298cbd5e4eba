package recall

import (
	"strings"
	"unicode"
)

// Tokenize lowercases text, strips punctuation and splits on whitespace,
// discarding tokens of length three or below. Short words ("the", "is",
// "and") carry no signal for substring relevance.
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return r
		default:
			return -1
		}
	}, text)

	var tokens []string
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) > 3 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
