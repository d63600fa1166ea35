package appointment

import (
	"fmt"
	"time"
)

const (
	dayLayout  = "20060102"
	dateLayout = "2006-01-02"
)

// Location is the practice time zone used for calendar days.
var Location = time.Local

// ParseDate parses a YYYY-MM-DD calendar day into practice-local midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidRequest)
	}
	return t, nil
}

// FormatDate is the inverse of ParseDate.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// EncodeDay renders the 8 digit YYYYMMDD form the calendar tables use.
func EncodeDay(t time.Time) string {
	return fmt.Sprintf("%04d%02d%02d", t.Year(), int(t.Month()), t.Day())
}

func DecodeDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dayLayout, s, Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode day %q: %w", s, err)
	}
	return t, nil
}

// StartOfDay truncates t to practice-local midnight.
func StartOfDay(t time.Time) time.Time {
	t = t.In(Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Location)
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
