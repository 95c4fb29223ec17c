package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Item", "Defects", "Share"}
	rows := [][]string{
		{"Scratch", "50", "50.0%"},
		{"Chip", "5", "5.0%"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := FormatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Item    Defects Share" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "Scratch      50 50.0%" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "Chip          5  5.0%" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := FormatTable([]string{"Item", "N"}, [][]string{{"寸法", "1"}, {"ab", "2"}}, nil)
	if lines[1] != "寸法 1" {
		t.Fatalf("unexpected wide row: %q", lines[1])
	}
	if lines[2] != "ab   2" {
		t.Fatalf("unexpected narrow row: %q", lines[2])
	}
}
