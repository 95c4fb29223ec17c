package stats

// TopGroups returns the first n groups of an aggregation in rank order.
func TopGroups(agg Aggregation, n int) []Group {
	if n <= 0 || len(agg.Groups) == 0 {
		return nil
	}
	if n > len(agg.Groups) {
		n = len(agg.Groups)
	}
	out := make([]Group, n)
	copy(out, agg.Groups[:n])
	return out
}

// TopKeys returns the keys of the first n groups.
func TopKeys(agg Aggregation, n int) []string {
	top := TopGroups(agg, n)
	keys := make([]string, len(top))
	for i, g := range top {
		keys[i] = g.Key
	}
	return keys
}
