package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/blockedby/grouppulse/internal/telegram"
)

// fixed reference instant: 2024-01-15 12:00:00 UTC
var now = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

// window start for the reference instant: 2024-01-08 00:00:00 UTC
var windowStart = time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

func msg(date time.Time, content bool, sender, viaBot int64) telegram.RawMessage {
	return telegram.RawMessage{
		Date:       date.Unix(),
		HasContent: content,
		SenderID:   sender,
		ViaBotID:   viaBot,
	}
}

func TestSummarize_EmptyBatch(t *testing.T) {
	got := Summarize(nil, now)
	assert.Equal(t, ActivitySummary{}, got)

	got = Summarize([]telegram.RawMessage{}, now)
	assert.Equal(t, ActivitySummary{}, got)
}

func TestSummarize_AllPreWindow(t *testing.T) {
	batch := []telegram.RawMessage{
		msg(now.AddDate(0, 0, -8), true, 1, 0),
		msg(now.AddDate(0, 0, -30), true, 2, 5),
	}
	assert.Equal(t, ActivitySummary{}, Summarize(batch, now))
}

func TestSummarize_WindowBoundaryExact(t *testing.T) {
	// exactly at the boundary: included
	atBoundary := []telegram.RawMessage{msg(windowStart, true, 1, 0)}
	assert.Equal(t, 1, Summarize(atBoundary, now).TotalMessages)

	// one second earlier: excluded
	before := []telegram.RawMessage{msg(windowStart.Add(-time.Second), true, 1, 0)}
	assert.Equal(t, 0, Summarize(before, now).TotalMessages)
}

func TestSummarize_ContentFilter(t *testing.T) {
	// no text, no media: contributes to nothing, regardless of sender
	batch := []telegram.RawMessage{msg(now, false, 9, 42)}
	assert.Equal(t, ActivitySummary{}, Summarize(batch, now))
}

func TestSummarize_ParticipantDedup(t *testing.T) {
	batch := []telegram.RawMessage{
		msg(now, true, 7, 0),
		msg(now.Add(-time.Hour), true, 7, 0),
	}
	got := Summarize(batch, now)
	assert.Equal(t, 2, got.TotalMessages)
	assert.Equal(t, 1, got.UniqueParticipants)
}

func TestSummarize_AnonymousSenders(t *testing.T) {
	// sender id 0 counts as a message but never as a participant
	batch := []telegram.RawMessage{
		msg(now, true, 0, 0),
		msg(now, true, 0, 42),
	}
	got := Summarize(batch, now)
	assert.Equal(t, 2, got.TotalMessages)
	assert.Equal(t, 1, got.AutomatedMessages)
	assert.Equal(t, 0, got.UniqueParticipants)
}

func TestSummarize_SpecScenario(t *testing.T) {
	batch := []telegram.RawMessage{
		msg(now, true, 7, 0),
		msg(now.AddDate(0, 0, -8), true, 8, 0),
		msg(now, false, 9, 0),
		msg(now, true, 7, 42),
	}
	got := Summarize(batch, now)
	assert.Equal(t, ActivitySummary{
		TotalMessages:      2,
		AutomatedMessages:  1,
		UniqueParticipants: 1,
	}, got)
}

func TestSummarize_Idempotent(t *testing.T) {
	batch := []telegram.RawMessage{
		msg(now, true, 1, 0),
		msg(now.Add(-time.Minute), true, 2, 3),
		msg(now.AddDate(0, 0, -9), true, 3, 0),
	}
	first := Summarize(batch, now)
	second := Summarize(batch, now)
	assert.Equal(t, first, second)
}

func TestSummarize_OrderIndependent(t *testing.T) {
	a := msg(now, true, 1, 0)
	b := msg(now.Add(-time.Hour), true, 2, 5)
	c := msg(now.AddDate(0, 0, -10), true, 3, 0)

	forward := Summarize([]telegram.RawMessage{a, b, c}, now)
	reverse := Summarize([]telegram.RawMessage{c, b, a}, now)
	assert.Equal(t, forward, reverse)
}

func TestSummarize_Bounds(t *testing.T) {
	batch := []telegram.RawMessage{
		msg(now, true, 1, 11),
		msg(now, true, 1, 0),
		msg(now, true, 0, 12),
		msg(now, false, 2, 0),
		msg(now.AddDate(0, 0, -15), true, 3, 13),
	}
	got := Summarize(batch, now)
	assert.LessOrEqual(t, got.AutomatedMessages, got.TotalMessages)
	assert.LessOrEqual(t, got.UniqueParticipants, got.TotalMessages)
	assert.GreaterOrEqual(t, got.TotalMessages, 0)
}

func TestSummarize_LocalTimezoneWindow(t *testing.T) {
	// the day boundary follows the injected instant's location
	loc := time.FixedZone("UTC+5", 5*3600)
	localNow := time.Date(2024, 1, 15, 1, 0, 0, 0, loc)
	localWindowStart := time.Date(2024, 1, 8, 0, 0, 0, 0, loc)

	in := []telegram.RawMessage{msg(localWindowStart, true, 1, 0)}
	out := []telegram.RawMessage{msg(localWindowStart.Add(-time.Second), true, 1, 0)}

	assert.Equal(t, 1, Summarize(in, localNow).TotalMessages)
	assert.Equal(t, 0, Summarize(out, localNow).TotalMessages)
}
