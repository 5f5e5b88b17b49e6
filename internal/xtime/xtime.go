// Package xtime implements the ISO-8601 date/time/duration handling the
// Qualifier package needs: Date/DateTime parsing via dylanmei/iso8601,
// and a standard-library regex parser for the restricted duration grammar
// edera.qualifiers.TimeDelta accepts (no duration parser exists anywhere
// in the retrieval pack).
package xtime

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/dylanmei/iso8601"
)

// ParseDateTime parses an RFC3339/ISO-8601 timestamp, requiring an
// explicit timezone offset, and normalizes it to UTC.
func ParseDateTime(value string) (time.Time, error) {
	t, err := iso8601.ParseDateTime(value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid datetime %q: %w", value, err)
	}
	return t.UTC(), nil
}

// FormatDateTime renders t the way edera.qualifiers.DateTime does: UTC,
// seconds precision, trailing "Z".
func FormatDateTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// ParseDate parses a bare ISO-8601 date (no time component).
func ParseDate(value string) (time.Time, error) {
	t, err := iso8601.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t, nil
}

var durationPattern = regexp.MustCompile(
	`^P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseDuration parses the restricted P[n W][n D][T[n H][n M][n S]]
// grammar edera.qualifiers.TimeDelta.PATTERN accepts. Unlike a general
// ISO-8601 duration parser, it rejects years/months since the original
// qualifier does too (it round-trips through a plain time.Duration).
func ParseDuration(value string) (time.Duration, error) {
	m := durationPattern.FindStringSubmatch(value)
	if m == nil {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	var total time.Duration
	weight := []time.Duration{
		7 * 24 * time.Hour, // weeks
		24 * time.Hour,     // days
		time.Hour,          // hours
		time.Minute,        // minutes
		time.Second,        // seconds
	}
	any := false
	for i, group := range m[1:] {
		if group == "" {
			continue
		}
		any = true
		n, err := strconv.Atoi(group)
		if err != nil {
			return 0, fmt.Errorf("invalid duration component %q: %w", group, err)
		}
		total += time.Duration(n) * weight[i]
	}
	if !any {
		return 0, fmt.Errorf("empty duration %q", value)
	}
	return total, nil
}

// FormatDuration renders d the way edera.qualifiers.TimeDelta does:
// always "PT<seconds>S".
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("PT%dS", int64(d.Seconds()))
}

// DiscreteDateTime quantizes t down to the nearest interval boundary
// measured from the Unix epoch plus offset, matching
// edera.qualifiers.DiscreteDateTime (default offset aligns to the first
// Monday after the epoch, "P4D").
func DiscreteDateTime(t time.Time, interval time.Duration, offset time.Duration) time.Time {
	epoch := time.Unix(0, 0).UTC().Add(offset)
	elapsed := t.Sub(epoch)
	if elapsed < 0 {
		return epoch
	}
	quantized := elapsed / interval * interval
	return epoch.Add(quantized)
}
