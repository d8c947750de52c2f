// Package datetime provides a time value that binds from the date layouts
// clients actually send and round-trips through DATE and TIMESTAMPTZ columns.
package datetime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time wraps time.Time. Zero values encode as SQL NULL.
type Time struct {
	time.Time
}

func New(t time.Time) Time { return Time{Time: t} }

// Ptr returns a pointer to a Time holding t.
func Ptr(t time.Time) *Time { return &Time{Time: t} }

// Parse accepts RFC 3339, a timestamp without zone, or a bare date.
// Zone-less values are taken as UTC.
func Parse(s string) (Time, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Time{Time: t}, nil
		}
	}
	return Time{}, fmt.Errorf("unable to parse date: %s", s)
}

// DateOnly reports whether the value has no time-of-day component.
func (t Time) DateOnly() bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

func (t *Time) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*t = Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*t = Time{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t *Time) ScanDate(v pgtype.Date) error {
	if !v.Valid {
		*t = Time{}
		return nil
	}
	*t = Time{Time: v.Time}
	return nil
}

func (t Time) DateValue() (pgtype.Date, error) {
	return pgtype.Date{Time: t.Time, Valid: !t.IsZero()}, nil
}

func (t *Time) ScanTimestamptz(v pgtype.Timestamptz) error {
	if !v.Valid {
		*t = Time{}
		return nil
	}
	*t = Time{Time: v.Time}
	return nil
}

func (t Time) TimestamptzValue() (pgtype.Timestamptz, error) {
	return pgtype.Timestamptz{Time: t.Time, Valid: !t.IsZero()}, nil
}
