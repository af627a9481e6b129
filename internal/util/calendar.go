package util

import (
	"time"
)

const dayLayout = "2006-01-02"

// TradingCalendar assigns bars to trading days. A trading day is the calendar
// date of the bar timestamp in the calendar's location; 24/7 markets and
// exchange-session markets both reduce to this once the location is chosen.
type TradingCalendar struct {
	loc *time.Location
}

// NewTradingCalendar creates a TradingCalendar for the given location. A nil
// location means UTC.
func NewTradingCalendar(loc *time.Location) *TradingCalendar {
	if loc == nil {
		loc = time.UTC
	}
	return &TradingCalendar{loc: loc}
}

// LoadTradingCalendar resolves an IANA zone name ("" = UTC).
func LoadTradingCalendar(zone string) (*TradingCalendar, error) {
	if zone == "" {
		return NewTradingCalendar(time.UTC), nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, err
	}
	return NewTradingCalendar(loc), nil
}

// Location returns the calendar's time zone.
func (tc *TradingCalendar) Location() *time.Location {
	return tc.loc
}

// DayOf returns the trading day of t as YYYY-MM-DD.
func (tc *TradingCalendar) DayOf(t time.Time) string {
	return t.In(tc.loc).Format(dayLayout)
}

// SameDay reports whether a and b fall on the same trading day.
func (tc *TradingCalendar) SameDay(a, b time.Time) bool {
	return tc.DayOf(a) == tc.DayOf(b)
}

// StartOfDay returns midnight of t's trading day in the calendar location.
func (tc *TradingCalendar) StartOfDay(t time.Time) time.Time {
	lt := t.In(tc.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, tc.loc)
}
