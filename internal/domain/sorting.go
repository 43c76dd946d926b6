package domain

import "sort"

// SortNewestFirst returns a copy of views ordered by descending timestamp.
// Ties keep their enumeration order.
func SortNewestFirst(views []ActiveNotification) []ActiveNotification {
	sorted := make([]ActiveNotification, len(views))
	copy(sorted, views)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp > sorted[j].Timestamp
	})
	return sorted
}

// Reverse returns a reversed copy of views.
func Reverse(views []ActiveNotification) []ActiveNotification {
	out := make([]ActiveNotification, len(views))
	for i, v := range views {
		out[len(views)-1-i] = v
	}
	return out
}

// SortRecordsNewestFirst orders records by descending timestamp in place.
func SortRecordsNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp > records[j].Timestamp
	})
}
