package rollover

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/goaltrack/internal/constants"
)

// WeekConvention defines how days are grouped into numbered weeks: the day a
// week starts on, and how many days of a new year the first week needs.
type WeekConvention struct {
	Name        string
	FirstDay    time.Weekday
	MinimalDays int
}

var (
	// ISO is ISO-8601: Monday start, week 1 holds the year's first Thursday.
	ISO = WeekConvention{Name: constants.WeekConventionISO, FirstDay: time.Monday, MinimalDays: 4}
	// US starts weeks on Sunday; week 1 is the week containing January 1st.
	US = WeekConvention{Name: constants.WeekConventionUS, FirstDay: time.Sunday, MinimalDays: 1}
)

// ParseWeekConvention maps a settings value to a convention. Empty means ISO.
func ParseWeekConvention(name string) (WeekConvention, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", constants.WeekConventionISO:
		return ISO, nil
	case constants.WeekConventionUS:
		return US, nil
	default:
		return WeekConvention{}, fmt.Errorf("unknown week convention %q (expected %q or %q)",
			name, constants.WeekConventionISO, constants.WeekConventionUS)
	}
}

func (c WeekConvention) String() string {
	return c.Name
}

// Week returns the week-based year and week number of the civil date d.
func (c WeekConvention) Week(d time.Time) (year, week int) {
	d = civil(d)
	year = d.Year()
	start := c.firstWeekStart(year)
	if d.Before(start) {
		year--
		start = c.firstWeekStart(year)
	} else if next := c.firstWeekStart(year + 1); !d.Before(next) {
		year++
		start = next
	}
	return year, int(d.Sub(start).Hours()/24)/7 + 1
}

// weekStart returns the first day of the week containing d.
func (c WeekConvention) weekStart(d time.Time) time.Time {
	offset := (int(d.Weekday()) - int(c.FirstDay) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// firstWeekStart returns the first day of week 1 of the given week-based year.
func (c WeekConvention) firstWeekStart(year int) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	start := c.weekStart(jan1)
	daysInYear := 7 - int(jan1.Sub(start).Hours()/24)
	if daysInYear < c.MinimalDays {
		start = start.AddDate(0, 0, 7)
	}
	return start
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
