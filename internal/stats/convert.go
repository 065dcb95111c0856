package stats

import "github.com/vmsite/collector/internal/store"

func pageCounts(groups []store.Group) []PageCount {
	out := make([]PageCount, len(groups))
	for i, g := range groups {
		out[i] = PageCount{Page: g.Key, C: g.Count}
	}
	return out
}

func queryCounts(groups []store.Group) []QueryCount {
	out := make([]QueryCount, len(groups))
	for i, g := range groups {
		out[i] = QueryCount{Q: g.Key, C: g.Count}
	}
	return out
}

func keyCounts(groups []store.Group) []KeyCount {
	out := make([]KeyCount, len(groups))
	for i, g := range groups {
		out[i] = KeyCount{K: g.Key, C: g.Count}
	}
	return out
}
