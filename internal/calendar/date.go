package calendar

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	isoLayout     = "2006-01-02"
	monthLayout   = "2006-01"
	labelLayout   = "02/01/2006"
	secondsPerDay = 24 * 60 * 60
)

var (
	// ErrInvalidDate is returned when a string is not a calendar date.
	ErrInvalidDate = errors.New("invalid calendar date")
	// ErrInvalidDateRange is returned when a range ends before it starts.
	ErrInvalidDateRange = errors.New("invalid date range: end before start")
)

// Date is a calendar day without time of day or zone. The zero value means
// "no date".
type Date struct {
	t time.Time
}

// New builds a date from its calendar fields. Out-of-range fields are
// normalised the way time.Date does.
func New(year int, month time.Month, dayOfMonth int) Date {
	return Date{t: time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)}
}

// FromTime takes the calendar fields of t in t's own location.
func FromTime(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return New(y, m, d)
}

// Today returns the current calendar day in loc according to now.
func Today(now func() time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return FromTime(now().In(loc))
}

// Parse reads a YYYY-MM-DD string. Timestamps such as
// "2024-01-05T00:00:00.000Z" are accepted by keeping their date part, so a
// value never shifts a day when crossing zones.
func Parse(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(isoLayout) && (s[len(isoLayout)] == 'T' || s[len(isoLayout)] == ' ') {
		s = s[:len(isoLayout)]
	}
	t, err := time.Parse(isoLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{t: t}, nil
}

// MustParse is Parse for literals; it panics on bad input.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether d is the "no date" value.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Year, Month and Day return the calendar fields.
func (d Date) Year() int { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int { return d.t.Day() }

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// DaysUntil returns the number of calendar days from d to other; negative
// when other is earlier.
func (d Date) DaysUntil(other Date) int {
	return int((other.t.Unix() - d.t.Unix()) / secondsPerDay)
}

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

// Compare returns -1, 0 or +1.
func (d Date) Compare(other Date) int {
	switch {
	case d.t.Before(other.t):
		return -1
	case d.t.After(other.t):
		return 1
	}
	return 0
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time { return d.t }

// String renders YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(isoLayout)
}

// Label renders DD/MM/YYYY.
func (d Date) Label() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(labelLayout)
}

// Min returns the earlier of a and b.
func Min(a, b Date) Date {
	if b.Before(a) {
		return b
	}
	return a
}

// Max returns the later of a and b.
func Max(a, b Date) Date {
	if b.After(a) {
		return b
	}
	return a
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner for date columns.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = FromTime(v)
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*d = parsed
	case []byte:
		parsed, err := Parse(string(v))
		if err != nil {
			return err
		}
		*d = parsed
	default:
		return fmt.Errorf("calendar: cannot scan %T into Date", src)
	}
	return nil
}

// Value implements driver.Valuer; the zero date is stored as NULL.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}
