// Package textclean normalizes text pulled from a PDF text layer or from OCR
// before it is written out as Markdown.
package textclean

import (
	"regexp"
	"strings"
)

var (
	decorations = regexp.MustCompile(`[■»>●◆※▪•★◇▶▲▼]`)
	controls    = regexp.MustCompile(`[\x00-\x1F\x7F]`)
	trailing    = regexp.MustCompile(`[ \t\x{3000}]+$`)

	// "(图4-1)", "图12", "【图3】", "图１". Padding is only absorbed inside brackets so
	// the words around a bare reference stay apart.
	figureRefs = regexp.MustCompile(`(?:[（(【\[][\s\x{3000}]*)?图[\s\x{3000}]*[\d０-９]+(?:[-－–—][\d０-９]+)*(?:[\s\x{3000}]*[）)】\]])?`)
	// "(图 above shows ...)"
	figureNotes = regexp.MustCompile(`[（(]图.*?[）)]`)

	blanks = regexp.MustCompile(`[ \t]+`)
)

// lineBreaks are the separators still present once control characters are gone.
var lineBreaks = strings.NewReplacer("\u0085", "\n", "\u2028", "\n", "\u2029", "\n")

// Clean flattens raw page text into a single paragraph and removes bullet
// glyphs, control characters and inline figure references. It never fails.
func Clean(raw string) string {
	text := strings.ReplaceAll(raw, "〜", "至")
	text = decorations.ReplaceAllString(text, "")
	text = controls.ReplaceAllString(text, "")

	lines := strings.Split(lineBreaks.Replace(text), "\n")
	for i, line := range lines {
		lines[i] = trailing.ReplaceAllString(line, "")
	}
	paragraph := strings.Join(lines, " ")

	paragraph = figureRefs.ReplaceAllString(paragraph, "")
	paragraph = figureNotes.ReplaceAllString(paragraph, "")

	paragraph = blanks.ReplaceAllString(paragraph, " ")
	return strings.TrimSpace(paragraph)
}
