package spell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerr "github.com/textlift/ocr-worker/internal/errors"
)

func TestCorrectFixesKnownMisspellings(t *testing.T) {
	c, err := New("en")
	require.NoError(t, err)

	assert.Equal(t, "definitely", c.Correct("definately"))
	assert.Equal(t, "the weather is definitely nice", c.Correct("the weather is definately nice"))
}

func TestCorrectPreservesLayout(t *testing.T) {
	c, err := New("en")
	require.NoError(t, err)

	in := "first line\n\n  definately indented\tand tabbed\n"
	out := c.Correct(in)

	assert.Equal(t, "first line\n\n  definitely indented\tand tabbed\n", out)
}

func TestCorrectLeavesCleanTextAlone(t *testing.T) {
	c, err := New("eng")
	require.NoError(t, err)

	in := "Nothing here is wrong. Numbers 123 and punctuation?! stay."
	assert.Equal(t, in, c.Correct(in))
}

func TestCorrectHandlesPunctuationAdjacentTokens(t *testing.T) {
	c, err := New("en")
	require.NoError(t, err)

	// The token boundary must exclude trailing punctuation, otherwise
	// the dictionary lookup misses.
	assert.Equal(t, "definitely!", c.Correct("definately!"))
	assert.Equal(t, "(definitely)", c.Correct("(definately)"))
}

func TestNewRejectsUnsupportedLanguage(t *testing.T) {
	for _, lang := range []string{"deu", "fra", "es", ""} {
		_, err := New(lang)
		require.Error(t, err, "language %q", lang)
		assert.True(t, oerr.IsKind(err, oerr.KindUnsupportedLanguage))
	}
}

func TestNewAcceptsEnglishVariants(t *testing.T) {
	for _, lang := range []string{"en", "eng", "en-US", "en-gb", " EN "} {
		_, err := New(lang)
		assert.NoError(t, err, "language %q", lang)
	}
}

func TestCorrectConvenienceWrapper(t *testing.T) {
	out, err := Correct("definately", "en")
	require.NoError(t, err)
	assert.Equal(t, "definitely", out)

	_, err = Correct("anything", "xx")
	assert.True(t, oerr.IsKind(err, oerr.KindUnsupportedLanguage))
}
