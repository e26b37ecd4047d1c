package backup

import (
	"fmt"
	"slices"
	"time"

	"github.com/mesh-intelligence/linkshelf/pkg/types"
)

// DefaultTimezone is the zone backup timestamps and the scheduled window
// are evaluated in unless configured otherwise.
const DefaultTimezone = "Asia/Shanghai"

// DefaultLayout formats backup timestamps. Fields are zero padded and run
// from year to second, so keys sort lexically in creation order.
const DefaultLayout = "2006/01/02 15:04:05"

// DefaultRetention is the maximum number of backup records kept.
const DefaultRetention = 5

// LoadLocation resolves name, falling back to a fixed UTC+8 zone for the
// default timezone when the tz database is unavailable.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		if name == DefaultTimezone {
			return time.FixedZone("CST", 8*60*60), nil
		}
		return nil, fmt.Errorf("loading timezone %q: %w", name, err)
	}
	return loc, nil
}

// Window is the maintenance window a scheduled trigger must fall in: any
// of Days (day of month) at Hour, evaluated in Location.
type Window struct {
	Days     []int
	Hour     int
	Location *time.Location
}

// DefaultWindow returns days 1 and 20 at 03:00 in loc.
func DefaultWindow(loc *time.Location) Window {
	return Window{Days: []int{1, 20}, Hour: 3, Location: loc}
}

// Validate checks day and hour ranges.
func (w Window) Validate() error {
	if len(w.Days) == 0 {
		return fmt.Errorf("%w: no days", types.ErrWindowInvalid)
	}
	for _, d := range w.Days {
		if d < 1 || d > 31 {
			return fmt.Errorf("%w: day %d", types.ErrWindowInvalid, d)
		}
	}
	if w.Hour < 0 || w.Hour > 23 {
		return fmt.Errorf("%w: hour %d", types.ErrWindowInvalid, w.Hour)
	}
	return nil
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if w.Location != nil {
		t = t.In(w.Location)
	}
	return t.Hour() == w.Hour && slices.Contains(w.Days, t.Day())
}

// slot names the window occurrence t falls in, e.g. "2026-10-20T03".
func (w Window) slot(t time.Time) string {
	if w.Location != nil {
		t = t.In(w.Location)
	}
	return t.Format("2006-01-02T15")
}
