// Package stats derives bounded activity statistics from raw message
// batches.
package stats

import (
	"time"

	"github.com/blockedby/grouppulse/internal/telegram"
)

// windowDays is the trailing window length, counted back from the start
// of the current day.
const windowDays = 7

// ActivitySummary is the aggregation result for one group.
type ActivitySummary struct {
	TotalMessages      int `json:"totalMessages"`
	AutomatedMessages  int `json:"automatedMessages"`
	UniqueParticipants int `json:"uniqueParticipants"`
}

// Summarize folds a raw message batch into an ActivitySummary.
//
// Only content-bearing messages dated at or after startOfDay(now)-7d are
// counted. The fold is a pure per-message predicate, so input order does
// not matter and equal inputs with equal now always produce equal
// output. Empty or fully out-of-window input yields the zero summary.
func Summarize(msgs []telegram.RawMessage, now time.Time) ActivitySummary {
	windowStart := startOfDay(now).AddDate(0, 0, -windowDays).Unix()

	var s ActivitySummary
	seen := make(map[int64]struct{})
	for _, m := range msgs {
		if !m.HasContent || m.Date < windowStart {
			continue
		}
		s.TotalMessages++
		if m.ViaBotID != 0 {
			s.AutomatedMessages++
		}
		if m.SenderID != 0 {
			seen[m.SenderID] = struct{}{}
		}
	}
	s.UniqueParticipants = len(seen)
	return s
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
