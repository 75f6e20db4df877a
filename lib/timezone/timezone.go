package timezone

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Zurich")
	if err != nil {
		panic(err)
	}
}

// force timezone to be the portal's timezone because the servers
// may end up in another region which will cause disturbances when
// manipulating dates based on <time.Time>.Year()/Month()/Day()/Hour()/...
func Now() time.Time {
	return time.Now().In(Location)
}

const (
	// the numeric date formats the portal emits
	LayoutDate      = "02.01.2006"
	LayoutDateTime  = "02.01.2006 15:04"
	LayoutShortDate = "02.01.06"
	LayoutTime      = "15:04"
)

// ParseDate parses a portal date string with one of the Layout*
// format strings, anchored to the portal timezone.
func ParseDate(text, layout string) (time.Time, error) {
	return time.ParseInLocation(layout, strings.TrimSpace(text), Location)
}

var germanMonths = map[string]time.Month{
	"januar":    time.January,
	"februar":   time.February,
	"märz":      time.March,
	"april":     time.April,
	"mai":       time.May,
	"juni":      time.June,
	"juli":      time.July,
	"august":    time.August,
	"september": time.September,
	"oktober":   time.October,
	"november":  time.November,
	"dezember":  time.December,
}

// ParseLongDate parses dates written out with german month names,
// e.g. "3. März 2025".
func ParseLongDate(text string) (time.Time, error) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) != 3 {
		return time.Time{}, fmt.Errorf("expected '<day>. <month> <year>', got %q", text)
	}

	day, err := strconv.Atoi(strings.TrimSuffix(fields[0], "."))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day of %q: %w", text, err)
	}
	month, ok := germanMonths[strings.ToLower(fields[1])]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month name %q", fields[1])
	}
	year, err := strconv.Atoi(fields[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("parse year of %q: %w", text, err)
	}

	return time.Date(year, month, day, 0, 0, 0, 0, Location), nil
}
