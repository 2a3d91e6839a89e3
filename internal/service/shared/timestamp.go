// Package shared provides the value conversions used by several steps:
// submission timestamps and locale-formatted decimal amounts.
package shared

import (
	"fmt"
	"strings"
	"time"
)

// RemoteOffset replaces the trailing Z on offset-rewritten timestamps.
const RemoteOffset = "-0300"

const isoMillis = "2006-01-02T15:04:05.000Z"

// RawUTC joins a submission date and time into "<date>T<time>:00.000Z".
// No validation or conversion is applied.
func RawUTC(date, clock string) string {
	return date + "T" + clock + ":00.000Z"
}

// OffsetRewritten parses the RawUTC instant, renders it back as a UTC ISO
// timestamp and rewrites the trailing Z to RemoteOffset. The wall clock is
// kept, so the stored instant is three hours later than RawUTC's.
func OffsetRewritten(date, clock string) (string, error) {
	t, err := time.ParseInLocation("2006-01-02T15:04", date+"T"+clock, time.UTC)
	if err != nil {
		return "", fmt.Errorf("parse %q %q: %w", date, clock, err)
	}
	return strings.TrimSuffix(t.Format(isoMillis), "Z") + RemoteOffset, nil
}

// SplitDateTime splits a stored timestamp back into its date and HH:MM parts.
// Values too short to carry both are returned as date only.
func SplitDateTime(ts string) (date, clock string) {
	if len(ts) < len("2006-01-02T15:04") {
		if len(ts) >= len("2006-01-02") {
			return ts[:10], ""
		}
		return ts, ""
	}
	return ts[:10], ts[11:16]
}
