package invoice

import (
	"time"

	"courier/internal/clock"
	"courier/pkg/models"
)

// View returns the invoice as it reads at now. Overdue is never persisted:
// an open or closed invoice whose fee is still pending and whose due date is
// before today reads as Overdue.
func View(inv models.Invoice, now time.Time) models.Invoice {
	if IsOverdue(inv, now) {
		inv.OverallStatus = models.StatusOverdue
		inv.FeeStatus = models.FeeOverdue
	}
	return inv
}

// IsOverdue reports whether the invoice's fee is past due at now.
func IsOverdue(inv models.Invoice, now time.Time) bool {
	if inv.FeeStatus == models.FeePaid || inv.DueDate.IsZero() {
		return false
	}
	switch inv.OverallStatus {
	case models.StatusOpen, models.StatusClosed, models.StatusOverdue:
	default:
		return false
	}
	return inv.DueDate.Before(clock.StartOfDay(now))
}
