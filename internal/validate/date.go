package validate

import (
	"fmt"
	"time"
)

// DefaultMaxYearsInPast bounds how old a date may be unless overridden.
const DefaultMaxYearsInPast = 10

type dateOptions struct {
	allowFuture    bool
	maxYearsInPast int
	now            func() time.Time
}

// DateOption adjusts the policy of Date.
type DateOption func(*dateOptions)

// AllowFuture accepts dates after today.
func AllowFuture() DateOption {
	return func(o *dateOptions) { o.allowFuture = true }
}

// MaxYearsInPast sets the oldest accepted date to today minus n years.
func MaxYearsInPast(n int) DateOption {
	return func(o *dateOptions) { o.maxYearsInPast = n }
}

// AsOf fixes "today" to the calendar date of now.
func AsOf(now time.Time) DateOption {
	return func(o *dateOptions) { o.now = func() time.Time { return now } }
}

// Date fails if value is after today (unless AllowFuture) or before today
// minus the maximum number of years. Only calendar dates are compared, in
// the location of "today", so any time on the current day is accepted.
func Date(value time.Time, field, display string, opts ...DateOption) error {
	o := dateOptions{maxYearsInPast: DefaultMaxYearsInPast, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	now := o.now()
	today := civilDate(now, now.Location())
	day := civilDate(value, now.Location())

	if !o.allowFuture && day.After(today) {
		return fieldError(field, fmt.Sprintf("La %s no puede ser futura", display), CodeFutureDate,
			value.Format(time.DateOnly), "Use la fecha de hoy o una anterior")
	}

	oldest := today.AddDate(-o.maxYearsInPast, 0, 0)
	if day.Before(oldest) {
		msg := fmt.Sprintf("La %s no puede ser anterior a %d años", display, o.maxYearsInPast)
		return fieldError(field, msg, CodeDateTooOld, value.Format(time.DateOnly), "")
	}
	return nil
}

func civilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
