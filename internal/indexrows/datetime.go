package indexrows

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var dateTimeLayouts = map[int]string{
	4:  "2006",
	6:  "200601",
	8:  "20060102",
	10: "2006010215",
	12: "200601021504",
	14: "20060102150405",
}

// ParseDateTime parses a DICOM DA or DT value, including partial precision,
// fractional seconds and a trailing UTC offset. It returns the wall clock as
// written and the corresponding UTC instant. Values without an offset are
// taken as UTC.
func ParseDateTime(value string) (time.Time, time.Time, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("empty date-time")
	}

	loc := time.UTC
	if i := strings.LastIndexAny(raw, "+-"); i > 0 {
		offset := raw[i:]
		if len(offset) != 5 {
			return time.Time{}, time.Time{}, fmt.Errorf("date-time %q: bad offset", value)
		}
		hours, err := strconv.Atoi(offset[1:3])
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("date-time %q: bad offset", value)
		}
		minutes, err := strconv.Atoi(offset[3:5])
		if err != nil || hours > 14 || minutes > 59 {
			return time.Time{}, time.Time{}, fmt.Errorf("date-time %q: bad offset", value)
		}
		seconds := hours*3600 + minutes*60
		if offset[0] == '-' {
			seconds = -seconds
		}
		loc = time.FixedZone(offset, seconds)
		raw = raw[:i]
	}

	var fraction time.Duration
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		digits := raw[i+1:]
		if len(raw[:i]) != 14 || digits == "" || len(digits) > 6 {
			return time.Time{}, time.Time{}, fmt.Errorf("date-time %q: bad fraction", value)
		}
		micros, err := strconv.Atoi(digits + strings.Repeat("0", 6-len(digits)))
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("date-time %q: bad fraction", value)
		}
		fraction = time.Duration(micros) * time.Microsecond
		raw = raw[:i]
	}

	layout, ok := dateTimeLayouts[len(raw)]
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("date-time %q: unsupported precision", value)
	}
	parsed, err := time.ParseInLocation(layout, raw, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("date-time %q: %w", value, err)
	}
	parsed = parsed.Add(fraction)

	local := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), parsed.Hour(), parsed.Minute(), parsed.Second(), parsed.Nanosecond(), time.UTC)
	return local, parsed.UTC(), nil
}
