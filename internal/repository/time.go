package repository

import "time"

// timeLayout is RFC 3339 with the fractional second padded to nine digits.
// Timestamp columns are TEXT, so range filters and ORDER BY compare bytes;
// the fixed width keeps byte order equal to time order. RFC3339Nano trims
// trailing zeros and loses that property for sub-second values.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// parseTime also accepts unpadded RFC 3339 variants so rows written by
// earlier schema revisions still scan.
func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err == nil {
		return t.UTC(), nil
	}
	t, err = time.Parse(time.RFC3339, raw)
	if err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, err
}
