package entry

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWrapText(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		width int
		want  []string
	}{
		{name: "fits", in: "saved record", width: 20, want: []string{"saved record"}},
		{name: "breaks at spaces", in: "defect_count 30 exceeds inspection_count 20", width: 16,
			want: []string{"defect_count 30", "exceeds", "inspection_count", "20"}},
		{name: "splits long words", in: "abcdefghij", width: 4, want: []string{"abcd", "efgh", "ij"}},
		{name: "wide runes", in: "加工不良 原因", width: 6, want: []string{"加工不", "良", "原因"}},
		{name: "empty", in: "", width: 10, want: []string{""}},
		{name: "no width", in: "a b", width: 0, want: []string{"a b"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, wrapText(tc.in, tc.width)); diff != "" {
				t.Fatalf("wrap mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplitAtWidthTakesOneRune(t *testing.T) {
	head, rest := splitAtWidth("加工", 1)
	if head != "加" || rest != "工" {
		t.Fatalf("unexpected split %q %q", head, rest)
	}
}
