package core

import (
	"time"

	"cloud.google.com/go/civil"
)

// ParseDate parses a YYYY-MM-DD query value into a civil.Date.
// An empty value falls back to `fallback`.
func ParseDate(field, value string, fallback civil.Date) (civil.Date, error) {
	value = CleanString(value)
	if value == "" {
		return fallback, nil
	}
	d, err := civil.ParseDate(value)
	if err != nil {
		return civil.Date{}, NewFieldError(field, "date must be formatted as YYYY-MM-DD")
	}
	return d, nil
}

// TodayIn returns today's date in the given location.
func TodayIn(loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(NowFunc().In(loc))
}

// Today returns the current calendar day in the school's timezone.
func (c *Config) Today() civil.Date {
	return TodayIn(c.Location)
}
