package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	minuteLayout = "2006-01-02T15:04"
	secondLayout = "2006-01-02T15:04:05"
	dayLayout    = "2006-01-02"
)

// Date is a publish timestamp. It serializes as a zone-less ISO-8601
// local time, minute precision unless seconds are present.
type Date struct {
	time.Time
}

// NewDate wraps t.
func NewDate(t time.Time) Date {
	return Date{Time: t}
}

// ParseDate accepts RFC 3339 and the zone-less layouts produced by
// String. Zone-less values are read in time.Local; values with an offset
// keep their instant and are moved into time.Local.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Date{Time: t.In(time.Local)}, nil
	}
	for _, layout := range []string{secondLayout, minuteLayout, dayLayout} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, fmt.Errorf("unrecognised date %q", s)
}

// Truncated drops seconds and below.
func (d Date) Truncated() Date {
	return Date{Time: d.Time.Truncate(time.Minute)}
}

// String formats d as a time.Local wall-clock reading without a zone
// offset, the form ParseDate reads back to the same instant.
func (d Date) String() string {
	t := d.In(time.Local)
	if t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(minuteLayout)
	}
	return t.Format(secondLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseOptionalDate treats an empty string as absent.
func ParseOptionalDate(s string) (*Date, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
