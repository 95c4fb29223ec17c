package stats

import "sort"

// WorstByRate selects the groups with the highest defect rate.
// Groups without inspections are ranked last; ties keep key order.
func WorstByRate(groups []Group, top int) []Group {
	if len(groups) == 0 {
		return nil
	}
	candidates := make([]Group, len(groups))
	copy(candidates, groups)
	sort.SliceStable(candidates, func(i, j int) bool {
		ri := rateOrNeg(candidates[i])
		rj := rateOrNeg(candidates[j])
		if ri == rj {
			return candidates[i].Key < candidates[j].Key
		}
		return ri > rj
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	return candidates[:top]
}

func rateOrNeg(g Group) float64 {
	if g.InspectionCount == 0 {
		return -1
	}
	return float64(g.DefectCount) / float64(g.InspectionCount)
}
