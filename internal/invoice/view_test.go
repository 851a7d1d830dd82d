package invoice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"courier/pkg/models"
)

func TestView_Overdue(t *testing.T) {
	due := time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC)
	base := models.Invoice{
		DueDate:           due,
		FeeStatus:         models.FeePending,
		PassThroughStatus: models.PassThroughPending,
		OverallStatus:     models.StatusOpen,
	}

	t.Run("on the due date it is not overdue", func(t *testing.T) {
		got := View(base, due.Add(23*time.Hour))
		assert.Equal(t, models.StatusOpen, got.OverallStatus)
		assert.Equal(t, models.FeePending, got.FeeStatus)
	})

	t.Run("the day after it is overdue", func(t *testing.T) {
		got := View(base, due.AddDate(0, 0, 1))
		assert.Equal(t, models.StatusOverdue, got.OverallStatus)
		assert.Equal(t, models.FeeOverdue, got.FeeStatus)
		assert.Equal(t, models.StatusOpen, base.OverallStatus, "the stored invoice is untouched")
	})

	t.Run("closed invoices become overdue too", func(t *testing.T) {
		closed := base
		closed.OverallStatus = models.StatusClosed
		assert.Equal(t, models.StatusOverdue, View(closed, due.AddDate(0, 1, 0)).OverallStatus)
	})

	t.Run("paid fees are never overdue", func(t *testing.T) {
		paid := base
		paid.FeeStatus = models.FeePaid
		paid.OverallStatus = models.StatusPaid
		got := View(paid, due.AddDate(0, 1, 0))
		assert.Equal(t, models.StatusPaid, got.OverallStatus)
		assert.Equal(t, models.FeePaid, got.FeeStatus)
	})

	t.Run("no due date", func(t *testing.T) {
		undated := base
		undated.DueDate = time.Time{}
		assert.False(t, IsOverdue(undated, due.AddDate(1, 0, 0)))
	})
}
