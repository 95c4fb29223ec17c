package entry

import (
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// wrapText breaks s into lines no wider than width display cells, splitting
// at spaces where possible and inside long words otherwise.
func wrapText(s string, width int) []string {
	if width <= 0 {
		return []string{s}
	}
	var lines []string
	line := ""
	lineWidth := 0
	for _, word := range strings.Fields(s) {
		wordWidth := runewidth.StringWidth(word)
		if lineWidth > 0 && lineWidth+1+wordWidth <= width {
			line += " " + word
			lineWidth += 1 + wordWidth
			continue
		}
		if lineWidth > 0 {
			lines = append(lines, line)
		}
		for wordWidth > width {
			head, rest := splitAtWidth(word, width)
			lines = append(lines, head)
			word = rest
			wordWidth = runewidth.StringWidth(word)
		}
		line, lineWidth = word, wordWidth
	}
	if lineWidth > 0 || len(lines) == 0 {
		lines = append(lines, line)
	}
	return lines
}

// splitAtWidth returns the longest prefix of s fitting in width cells and the
// remainder. At least one rune is always taken.
func splitAtWidth(s string, width int) (string, string) {
	used := 0
	for i, r := range s {
		w := runewidth.RuneWidth(r)
		if used+w > width {
			if i == 0 {
				_, size := utf8.DecodeRuneInString(s)
				return s[:size], s[size:]
			}
			return s[:i], s[i:]
		}
		used += w
	}
	return s, ""
}
