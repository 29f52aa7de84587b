package models

import (
	"strings"
	"time"
)

// Tag is the marker embedded in every event description so tool-created
// events can be told apart from everything else in the calendar. The
// reconciler only ever deletes events carrying it.
const Tag = "#postwmt"

// Event is a synthesized calendar event, independent of any specific
// calendar provider. Events are built fresh from the pasted schedule on
// every run and never mutated afterwards.
type Event struct {
	UID         string    // Deterministic identifier, unique within a run's output
	Title       string    // Summary, e.g. "Shift" or "Overtime"
	Description string    // Carries the Tag marker
	Start       time.Time // Timezone-aware start instant
	End         time.Time // Timezone-aware end instant
	Warnings    []string  // Non-fatal synthesis warnings (DST edge cases)
}

// Tagged reports whether s contains the tool's tag marker.
func Tagged(s string) bool {
	return strings.Contains(s, Tag)
}

// RemoteEvent is an event as reported by a remote calendar collaborator.
type RemoteEvent struct {
	ID          string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}

// SyncWindow is the half-open instant range [Start, End) covering the
// dates of one submission, padded to whole days in the schedule timezone.
// It scopes which remote events are eligible for deletion on resync.
type SyncWindow struct {
	Start time.Time
	End   time.Time
}

// WindowFor computes the sync window for a batch of events: midnight of
// the earliest start date through the midnight after the latest end date,
// both resolved in loc.
func WindowFor(events []Event, loc *time.Location) SyncWindow {
	if len(events) == 0 {
		return SyncWindow{}
	}
	minStart, maxEnd := events[0].Start, events[0].End
	for _, ev := range events[1:] {
		if ev.Start.Before(minStart) {
			minStart = ev.Start
		}
		if ev.End.After(maxEnd) {
			maxEnd = ev.End
		}
	}
	lo := minStart.In(loc)
	hi := maxEnd.In(loc)
	start := time.Date(lo.Year(), lo.Month(), lo.Day(), 0, 0, 0, 0, loc)
	end := time.Date(hi.Year(), hi.Month(), hi.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	return SyncWindow{Start: start, End: end}
}
