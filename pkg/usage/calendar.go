package usage

import (
	"time"
)

// DayLayout is the textual form of a Day.
const DayLayout = "2006-01-02"

// Day identifies a calendar date in the ledger timezone.
type Day string

func (d Day) String() string { return string(d) }

// Time returns midnight of the day in loc.
func (d Day) Time(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DayLayout, string(d), loc)
}

// Calendar turns instants into ledger days.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// CalendarOption configures a Calendar.
type CalendarOption func(*Calendar)

// WithNow overrides the time source.
func WithNow(now func() time.Time) CalendarOption {
	return func(c *Calendar) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCalendar creates a Calendar for loc. A nil loc means UTC.
func NewCalendar(loc *time.Location, opts ...CalendarOption) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	c := Calendar{loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Location returns the ledger timezone.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Now returns the current instant.
func (c Calendar) Now() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

// DayOf returns the ledger day containing t.
func (c Calendar) DayOf(t time.Time) Day {
	return Day(t.In(c.Location()).Format(DayLayout))
}

// Today returns the current ledger day.
func (c Calendar) Today() Day {
	return c.DayOf(c.Now())
}

// EndOfDay returns the first instant of the day after d.
func (c Calendar) EndOfDay(d Day) time.Time {
	start, err := d.Time(c.Location())
	if err != nil {
		return c.Now().Add(24 * time.Hour)
	}
	return start.AddDate(0, 0, 1)
}
