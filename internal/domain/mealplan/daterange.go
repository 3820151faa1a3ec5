package mealplan

import (
	"fmt"
	"time"
)

// DateRange is an inclusive range of calendar days
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange normalises start and end to calendar days and rejects a start
// after the end. Both bounds are read in start's location.
func NewDateRange(start, end time.Time) (DateRange, error) {
	s := Day(start)
	e := Day(end.In(start.Location()))
	if s.After(e) {
		return DateRange{}, fmt.Errorf("%w: %s > %s", ErrInvalidRange, s.Format(DateLayout), e.Format(DateLayout))
	}
	return DateRange{Start: s, End: e}, nil
}

// DateLayout is the calendar-date format used in logs and JSON keys
const DateLayout = "2006-01-02"

// Bounds returns the half-open instant interval [from, to) covering the range
func (r DateRange) Bounds() (from, to time.Time) {
	return r.Start, r.End.AddDate(0, 0, 1)
}

// DayOf returns t's calendar day read in the range's location
func (r DateRange) DayOf(t time.Time) time.Time {
	return Day(t.In(r.Start.Location()))
}

// Contains reports whether t's calendar date lies inside the range
func (r DateRange) Contains(t time.Time) bool {
	d := r.DayOf(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days returns the number of calendar days in the range
func (r DateRange) Days() int {
	n := 0
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}
