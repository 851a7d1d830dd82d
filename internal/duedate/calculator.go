// Package duedate computes invoice due dates from a client's billing
// frequency configuration.
package duedate

import (
	"time"

	"courier/internal/clock"
	"courier/pkg/models"
)

const (
	// DefaultGraceDays applies when a client has no auto-close configuration.
	DefaultGraceDays = 15
	// PerDeliveryGraceDays applies to the per-delivery frequency. The
	// count-based closing trigger is not modelled.
	PerDeliveryGraceDays = 7
	// DefaultMonthDay is the monthly anchor when none is configured.
	DefaultMonthDay = 28
	// DefaultWeekday is the weekly anchor when none is configured.
	DefaultWeekday = time.Friday
)

// Calculator computes due dates relative to its clock.
type Calculator struct {
	clock clock.Clock
}

// NewCalculator creates a calculator reading "today" from c.
func NewCalculator(c clock.Clock) *Calculator {
	if c == nil {
		c = clock.System{}
	}
	return &Calculator{clock: c}
}

// DueDate returns the next due date for client.
func (c *Calculator) DueDate(client *models.Client) time.Time {
	return Compute(client, c.clock.Now())
}

// Compute returns the due date for client as seen from now. The result is
// always at the start of a day in now's location.
func Compute(client *models.Client, now time.Time) time.Time {
	today := clock.StartOfDay(now)

	if client == nil || client.BillingConfig == nil || !client.BillingConfig.AutoClose {
		return today.AddDate(0, 0, DefaultGraceDays)
	}
	cfg := client.BillingConfig

	switch cfg.Frequency {
	case models.FrequencyDaily:
		return today.AddDate(0, 0, 1)
	case models.FrequencyWeekly:
		return nextWeekday(today, weekdayOf(cfg))
	case models.FrequencyMonthly:
		return nextMonthDay(today, monthDayOf(cfg))
	case models.FrequencyPerDelivery:
		return today.AddDate(0, 0, PerDeliveryGraceDays)
	default:
		return today.AddDate(0, 0, DefaultGraceDays)
	}
}

func weekdayOf(cfg *models.BillingConfig) time.Weekday {
	if wd, ok := models.ParseWeekday(cfg.Weekday); ok {
		return wd
	}
	return DefaultWeekday
}

func monthDayOf(cfg *models.BillingConfig) int {
	if cfg.MonthDay == nil || *cfg.MonthDay < 1 || *cfg.MonthDay > 31 {
		return DefaultMonthDay
	}
	return *cfg.MonthDay
}

// nextWeekday returns the first occurrence of target strictly after today.
func nextWeekday(today time.Time, target time.Weekday) time.Time {
	days := (int(target) - int(today.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return today.AddDate(0, 0, days)
}

// nextMonthDay returns day of the current month, or of the next month when
// that date is already behind today. Days past the end of a month clamp to
// its last day.
func nextMonthDay(today time.Time, day int) time.Time {
	candidate := dayInMonth(today.Year(), today.Month(), day, today.Location())
	if candidate.Before(today) {
		candidate = dayInMonth(today.Year(), today.Month()+1, day, today.Location())
	}
	return candidate
}

func dayInMonth(year int, month time.Month, day int, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, loc)
}
