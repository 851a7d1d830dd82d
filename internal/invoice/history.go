package invoice

import (
	"sort"
	"time"

	"courier/pkg/models"
)

// appendHistory returns a new history with entries added, ordered by
// timestamp. Entries with equal timestamps keep insertion order, so a
// payment always precedes the finalization it triggered.
func appendHistory(history []models.HistoryEntry, entries ...models.HistoryEntry) []models.HistoryEntry {
	out := make([]models.HistoryEntry, 0, len(history)+len(entries))
	out = append(out, history...)
	out = append(out, entries...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func (e *Engine) historyEntry(action models.HistoryAction, at time.Time, details string) models.HistoryEntry {
	return models.HistoryEntry{
		ID:        e.ids(),
		Action:    action,
		Timestamp: at,
		Details:   details,
	}
}
