package qcerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := New(MissingColumn, "pareto", "defect_item", "")
	wrapped := fmt.Errorf("failed to analyze: %w", err)
	if !errors.Is(wrapped, ErrMissingColumn) {
		t.Fatalf("expected wrapped error to match ErrMissingColumn")
	}
	if errors.Is(wrapped, ErrEmptyDataset) {
		t.Fatalf("did not expect match with ErrEmptyDataset")
	}
	if KindOf(wrapped) != MissingColumn {
		t.Fatalf("unexpected kind: %v", KindOf(wrapped))
	}
}

func TestErrorMessage(t *testing.T) {
	err := New(MalformedRecord, "ingest", "defect_count", "defect_count 12 exceeds inspection_count 10")
	want := "ingest: malformed record (defect_count): defect_count 12 exceeds inspection_count 10"
	if err.Error() != want {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if KindOf(errors.New("plain")) != 0 {
		t.Fatalf("expected zero kind for unclassified error")
	}
}
