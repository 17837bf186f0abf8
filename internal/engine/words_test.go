package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cannedTSV mimics tesseract's TSV: a header, structural rows with
// conf -1, and word rows across two lines and a second paragraph. The
// word "nolse" is a weak detection below the confidence floor.
const cannedTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t640\t480\t-1\t\n" +
	"2\t1\t1\t0\t0\t0\t10\t10\t600\t200\t-1\t\n" +
	"3\t1\t1\t1\t0\t0\t10\t10\t600\t90\t-1\t\n" +
	"4\t1\t1\t1\t1\t0\t10\t10\t600\t40\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t80\t40\t96.06\tclean\n" +
	"5\t1\t1\t1\t1\t2\t100\t10\t80\t40\t91.50\tscan\n" +
	"5\t1\t1\t1\t2\t1\t10\t60\t80\t40\t12.40\tnolse\n" +
	"5\t1\t1\t1\t2\t2\t100\t60\t80\t40\t88.00\tsecond\n" +
	"5\t1\t1\t1\t2\t3\t190\t60\t80\t40\t87.20\tline\n" +
	"5\t1\t1\t2\t1\t1\t10\t120\t80\t40\t90.00\tnext\n" +
	"5\t1\t1\t2\t1\t2\t100\t120\t80\t40\t35.00\tparagraph\n"

func TestParseTSVKeepsOnlyWordRows(t *testing.T) {
	words := parseTSV(cannedTSV)
	require.Len(t, words, 7)

	assert.Equal(t, "clean", words[0].text)
	assert.InDelta(t, 96.06, words[0].conf, 0.001)
	assert.Equal(t, 1, words[0].block)
	assert.Equal(t, 1, words[0].par)
	assert.Equal(t, 1, words[0].line)
	assert.Equal(t, 2, words[6].par)
}

func TestAssembleTextDropsLowConfidenceWords(t *testing.T) {
	text := assembleText(parseTSV(cannedTSV), minWordConfidence)

	assert.Equal(t, "clean scan\nsecond line\n\nnext paragraph", text)
	assert.NotContains(t, text, "nolse")
}

func TestAssembleTextKeepsFloorValueWords(t *testing.T) {
	// Confidence exactly at the floor is kept, matching the >= cutoff.
	text := assembleText([]word{{block: 1, par: 1, line: 1, text: "edge", conf: minWordConfidence}}, minWordConfidence)
	assert.Equal(t, "edge", text)
}

func TestAssembleTextAllFilteredIsEmpty(t *testing.T) {
	words := []word{
		{block: 1, par: 1, line: 1, text: "a", conf: 10},
		{block: 1, par: 1, line: 1, text: "b", conf: 34.9},
	}
	assert.Equal(t, "", assembleText(words, minWordConfidence))
}

func TestParseTSVToleratesMalformedRows(t *testing.T) {
	tsv := strings.Join([]string{
		"5\t1\t1\t1\t1\t1\t0\t0\t1\t1\tnot-a-number\tbroken",
		"5\ttoo\tfew\tfields",
		"5\t1\t1\t1\t1\t1\t0\t0\t1\t1\t90.0\t ",
		"5\t1\t1\t1\t1\t2\t0\t0\t1\t1\t90.0\tok",
	}, "\n")

	words := parseTSV(tsv)
	require.Len(t, words, 1)
	assert.Equal(t, "ok", words[0].text)
}

func TestParseTSVHandlesCRLF(t *testing.T) {
	words := parseTSV("5\t1\t1\t1\t1\t1\t0\t0\t1\t1\t90.0\tword\r\n")
	require.Len(t, words, 1)
	assert.Equal(t, "word", words[0].text)
}
