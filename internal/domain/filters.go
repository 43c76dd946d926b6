package domain

// FilterByPackage keeps the views posted by packageName, preserving order.
func FilterByPackage(views []ActiveNotification, packageName string) []ActiveNotification {
	out := make([]ActiveNotification, 0, len(views))
	for _, v := range views {
		if v.PackageName == packageName {
			out = append(out, v)
		}
	}
	return out
}

// RecordsSince returns the records with a timestamp at or after cutoffMillis.
func RecordsSince(records []Record, cutoffMillis int64) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Timestamp >= cutoffMillis {
			out = append(out, r)
		}
	}
	return out
}

// IndexByID maps notification IDs to records. Later duplicates win.
func IndexByID(records []Record) map[int]Record {
	out := make(map[int]Record, len(records))
	for _, r := range records {
		out[r.NotificationID] = r
	}
	return out
}
