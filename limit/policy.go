package limit

import (
	"fmt"
	"time"

	oracle "github.com/oraclelang/oracle"
)

// Policy decides the quota window a fresh counter opens with.
type Policy interface {
	// Window returns the bounds of the window a request at now falls into.
	Window(now time.Time) (start, end time.Time)
}

// Daily is a calendar-day window that resets at ResetHour:00 in Location.
// The zero value resets at midnight UTC+8.
type Daily struct {
	Location  *time.Location
	ResetHour int
}

func (d Daily) Window(now time.Time) (time.Time, time.Time) {
	loc := d.Location
	if loc == nil {
		loc = oracle.DefaultLocation
	}
	t := now.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), d.ResetHour, 0, 0, 0, loc)
	if t.Before(start) {
		start = start.AddDate(0, 0, -1)
	}
	return start, start.AddDate(0, 0, 1)
}

func (d Daily) String() string {
	loc := d.Location
	if loc == nil {
		loc = oracle.DefaultLocation
	}
	return fmt.Sprintf("daily at %02d:00 %s", d.ResetHour, loc)
}

// Rolling opens a window of Period at the first accepted request.
type Rolling struct {
	Period time.Duration
}

func (r Rolling) Window(now time.Time) (time.Time, time.Time) {
	return now, now.Add(r.Period)
}

func (r Rolling) String() string { return "rolling " + r.Period.String() }

// ParsePolicy reads the configured window: "daily" or a Go duration such
// as "24h".
func ParsePolicy(window string, loc *time.Location, resetHour int) (Policy, error) {
	if window == "" || window == "daily" {
		if resetHour < 0 || resetHour > 23 {
			return nil, fmt.Errorf("reset hour %d out of range", resetHour)
		}
		return Daily{Location: loc, ResetHour: resetHour}, nil
	}
	d, err := time.ParseDuration(window)
	if err != nil {
		return nil, fmt.Errorf("parse window %q: %w", window, err)
	}
	if d <= 0 {
		return nil, fmt.Errorf("window %q must be positive", window)
	}
	return Rolling{Period: d}, nil
}
