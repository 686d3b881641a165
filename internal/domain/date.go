package domain

import (
	"fmt"
	"time"
)

// dateLayouts are the accepted acquisition timestamp formats, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"20060102T1504",
	"200601021504",
	"2006-01-02",
	"20060102",
}

// Date identifies one SAR acquisition. Acquisitions in a stack share the
// same time of day, so two Dates on the same calendar day refer to the same
// epoch regardless of their clock components.
type Date struct {
	time.Time
}

// ParseDate parses an acquisition timestamp in any of the accepted layouts.
func ParseDate(s string) (Date, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{t.UTC()}, nil
		}
	}
	return Date{}, fmt.Errorf("parse acquisition date %q: unrecognised format", s)
}

// DateOf wraps a time.Time as an acquisition date.
func DateOf(t time.Time) Date {
	return Date{t.UTC()}
}

// Key returns the canonical YYYYMMDD epoch key.
func (d Date) Key() string {
	return d.UTC().Format("20060102")
}

// SameEpoch reports whether two dates identify the same acquisition day.
func (d Date) SameEpoch(o Date) bool {
	return d.Key() == o.Key()
}

// At combines the calendar day of d with the time of day of t. Slave dates
// configured day-only inherit the master's acquisition time this way.
func (d Date) At(t time.Time) Date {
	day := d.UTC()
	clock := t.UTC()
	return Date{time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC)}
}

// PairKey returns the <master>_<slave> key used to name interferograms.
func PairKey(master, slave Date) string {
	return master.Key() + "_" + slave.Key()
}
