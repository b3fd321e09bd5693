package models

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

const day = 24 * time.Hour

// DateOnly truncates t to midnight UTC of its calendar date
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// NightsBetween counts the nights of an inclusive [start, end] range
func NightsBetween(start, end time.Time) int {
	return int(DateOnly(end).Sub(DateOnly(start))/day) + 1
}

// DatesInRange lists every calendar date of the inclusive [start, end] range
func DatesInRange(start, end time.Time) []time.Time {
	start, end = DateOnly(start), DateOnly(end)
	if end.Before(start) {
		return nil
	}
	dates := make([]time.Time, 0, NightsBetween(start, end))
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// DaysUntil returns ceil((start - now) / 24h) where start is taken at midnight UTC
func DaysUntil(start, now time.Time) int {
	return int(math.Ceil(DateOnly(start).Sub(now).Hours() / 24))
}
