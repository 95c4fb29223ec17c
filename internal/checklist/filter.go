package checklist

import "strings"

// FilterFunc returns true when a line should be kept.
type FilterFunc func(string) bool

// KeepUnique returns a stateful filter dropping blank lines, "#" comments
// and repeated items.
func KeepUnique() FilterFunc {
	seen := map[string]struct{}{}
	return func(line string) bool {
		if line == "" || strings.HasPrefix(line, "#") {
			return false
		}
		if _, ok := seen[line]; ok {
			return false
		}
		seen[line] = struct{}{}
		return true
	}
}
