package engine

import (
	"strconv"
	"strings"
)

// minWordConfidence is the recognition quality floor: words the engine
// scores below it are dropped before the text is assembled.
const minWordConfidence = 35.0

// word is one recognized token with its layout position and the
// engine's confidence score (0-100).
type word struct {
	block, par, line int
	text             string
	conf             float64
}

// assembleText joins words into display text, dropping those below
// minConf. Words on a line are space-joined, lines join with a newline,
// and a paragraph or block change inserts a blank line, matching the
// engine's plain-text layout.
func assembleText(words []word, minConf float64) string {
	var out strings.Builder
	started := false
	var cur word

	for _, w := range words {
		if w.conf < minConf {
			continue
		}
		switch {
		case !started:
		case w.block != cur.block || w.par != cur.par:
			out.WriteString("\n\n")
		case w.line != cur.line:
			out.WriteByte('\n')
		default:
			out.WriteByte(' ')
		}
		out.WriteString(w.text)
		cur = w
		started = true
	}

	return out.String()
}

// parseTSV extracts word rows from tesseract's TSV output. Columns are
// level, page, block, par, line, word, left, top, width, height, conf,
// text; level 5 rows are words, everything else (including the header)
// is structural.
func parseTSV(tsv string) []word {
	var words []word
	for _, row := range strings.Split(tsv, "\n") {
		fields := strings.Split(strings.TrimRight(row, "\r"), "\t")
		if len(fields) != 12 || fields[0] != "5" {
			continue
		}
		conf, err := strconv.ParseFloat(fields[10], 64)
		if err != nil {
			continue
		}
		text := fields[11]
		if strings.TrimSpace(text) == "" {
			continue
		}
		block, _ := strconv.Atoi(fields[2])
		par, _ := strconv.Atoi(fields[3])
		line, _ := strconv.Atoi(fields[4])
		words = append(words, word{block: block, par: par, line: line, text: text, conf: conf})
	}
	return words
}
