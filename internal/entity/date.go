package entity

import (
	"fmt"
	"strings"
	"time"
)

// DateFormat is the canonical wire format for calendar dates.
const DateFormat = "2006-01-02"

// Date is a calendar date without a time component.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts the date formats seen across bank exports and normalizes
// to a date-only value in UTC.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)

	formats := []string{
		DateFormat,     // YYYY-MM-DD (ISO)
		"01/02/2006",   // MM/DD/YYYY
		"1/2/2006",     // M/D/YYYY
		"02/01/2006",   // DD/MM/YYYY
		"02-Jan-2006",  // DD-MMM-YYYY
		"02-01-2006",   // DD-MM-YYYY
		"Jan 02, 2006", // MMM DD, YYYY
	}

	for _, format := range formats {
		t, err := time.Parse(format, s)
		if err == nil {
			return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}, nil
		}
	}

	return Date{}, fmt.Errorf("unable to parse date: %q", s)
}

func (d Date) String() string {
	return d.Format(DateFormat)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(DateFormat) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
