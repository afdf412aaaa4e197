/*
day.go - Calendar-day value type

PURPOSE:
  The daily top-up cap is keyed by calendar day, so "today" needs a
  stable, comparable, storable representation. Day is that type: an ISO
  yyyy-mm-dd string under the hood, always UTC.

  A stored daily-limit record whose Day no longer equals Today() is
  stale; its accumulated total counts as zero for limit purposes.

SEE ALSO:
  - limit.go: daily-cap accounting keyed by Day
*/
package fare

import "time"

// Day is a calendar day in ISO form ("2026-08-28").
type Day string

const dayLayout = "2006-01-02"

// Today returns the current calendar day in UTC.
func Today() Day {
	return DayOf(time.Now().UTC())
}

// DayOf truncates a time to its calendar day.
func DayOf(t time.Time) Day {
	return Day(t.UTC().Format(dayLayout))
}

// ParseDay parses an ISO yyyy-mm-dd string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return "", err
	}
	return DayOf(t), nil
}

func (d Day) String() string { return string(d) }

func (d Day) Equal(o Day) bool { return d == o }

// IsZero reports whether the day is unset.
func (d Day) IsZero() bool { return d == "" }
