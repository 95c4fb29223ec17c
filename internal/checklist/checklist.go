// Package checklist loads custom check-sheet items and renders check sheets.
package checklist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

var defaultItems = []string{
	"Dimension measurement",
	"Surface roughness inspection",
	"Visual inspection",
	"Functional test",
	"Packaging check",
}

// DefaultItems returns the stock inspection check items.
func DefaultItems() []string {
	return append([]string(nil), defaultItems...)
}

// LoadItems reads one check item per line from the provided file path.
func LoadItems(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only item list.
			_ = cerr
		}
	}()
	return ParseItems(file)
}

// ParseItems reads one check item per line, skipping blanks, comments and duplicates.
func ParseItems(r io.Reader) ([]string, error) {
	var items []string
	keep := KeepUnique()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !keep(line) {
			continue
		}
		items = append(items, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("check item list is empty")
	}
	return items, nil
}

// Item is one numbered line of a check sheet.
type Item struct {
	Number  int
	Label   string
	Checked bool
}

// Sheet is an ordered check sheet.
type Sheet struct {
	Items []Item
}

// NewSheet numbers the items from 1.
func NewSheet(labels []string) Sheet {
	sheet := Sheet{Items: make([]Item, len(labels))}
	for i, label := range labels {
		sheet.Items[i] = Item{Number: i + 1, Label: label}
	}
	return sheet
}

// Toggle flips the checked state of the item at index i.
func (s *Sheet) Toggle(i int) {
	if i < 0 || i >= len(s.Items) {
		return
	}
	s.Items[i].Checked = !s.Items[i].Checked
}

// Done counts checked items.
func (s Sheet) Done() int {
	n := 0
	for _, item := range s.Items {
		if item.Checked {
			n++
		}
	}
	return n
}

// Lines renders the sheet one item per line.
func (s Sheet) Lines() []string {
	lines := make([]string, len(s.Items))
	for i, item := range s.Items {
		box := "[ ]"
		if item.Checked {
			box = "[x]"
		}
		lines[i] = fmt.Sprintf("%s %d. %s", box, item.Number, item.Label)
	}
	return lines
}

// Render writes the sheet with a title line.
func Render(w io.Writer, title string, s Sheet) error {
	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	for _, line := range s.Lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
