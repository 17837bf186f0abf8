// Package spell applies a language-scoped spelling correction pass over
// recognized text. Correction is non-destructive: tokens are replaced in
// a copy, and the whitespace and punctuation structure of the input is
// never altered, so line and paragraph layout survives for display.
package spell

import (
	"strings"
	"unicode"

	"github.com/client9/misspell"

	oerr "github.com/textlift/ocr-worker/internal/errors"
)

// Checker corrects misspelled tokens against a fixed per-language
// dictionary of known misspellings. Only tokens with a dictionary
// correction are touched; everything else passes through unchanged.
type Checker struct {
	replacer *misspell.Replacer
	language string
}

// New builds a checker for the given language. Only English variants are
// supported ("eng", "en", "en-us", "en-gb"); anything else fails with
// UnsupportedLanguage and the caller decides whether to fall back.
func New(language string) (*Checker, error) {
	r := misspell.New()

	switch normalizeLanguage(language) {
	case "en", "eng", "en-us":
		r.AddRuleList(misspell.DictAmerican)
	case "en-gb":
		r.AddRuleList(misspell.DictBritish)
	default:
		return nil, oerr.NewUnsupportedLanguage(language)
	}

	r.Compile()
	return &Checker{replacer: r, language: language}, nil
}

// Language returns the language the checker was built for.
func (c *Checker) Language() string {
	return c.language
}

// Correct returns a corrected copy of text. It walks the input
// token-by-token, where a token is a run of letters, digits, and
// apostrophes; all bytes between tokens are emitted verbatim.
func (c *Checker) Correct(text string) string {
	var out strings.Builder
	out.Grow(len(text))

	runes := []rune(text)
	i := 0
	for i < len(runes) {
		if !isTokenRune(runes[i]) {
			out.WriteRune(runes[i])
			i++
			continue
		}
		start := i
		for i < len(runes) && isTokenRune(runes[i]) {
			i++
		}
		token := string(runes[start:i])
		corrected, _ := c.replacer.Replace(token)
		out.WriteString(corrected)
	}

	return out.String()
}

// Correct is a convenience wrapper building a one-shot checker.
func Correct(text, language string) (string, error) {
	c, err := New(language)
	if err != nil {
		return "", err
	}
	return c.Correct(text), nil
}

func normalizeLanguage(language string) string {
	return strings.ToLower(strings.TrimSpace(language))
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\''
}
