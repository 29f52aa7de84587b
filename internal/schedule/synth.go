package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"postwmt/internal/models"
)

// DefaultTimezone is the zone the exporting system's wall-clock times are
// expressed in.
const DefaultTimezone = "America/New_York"

const (
	titleShift       = "Shift"
	titleShiftOT     = "Shift (OT)"
	titleAnnualLeave = "Annual Leave"
	titleOvertime    = "Overtime"
)

// Title is the calendar summary for the spec's primary event.
func (s Spec) Title() string {
	switch s.Kind {
	case AnnualLeave:
		return titleAnnualLeave
	case Shift:
		if s.OvertimePay {
			return titleShiftOT
		}
		return titleShift
	default:
		return titleShift
	}
}

// Synthesize converts one schedule entry and its interpreted spec into
// zero, one or two calendar events. Instants are resolved against loc
// using each date's own UTC offset, so output for a given input is the
// same no matter when the run happens.
func Synthesize(entry Entry, spec Spec, loc *time.Location) []models.Event {
	switch spec.Kind {
	case DayOff:
		return nil

	case Shift, AnnualLeave:
		return []models.Event{newEvent(spec.Title(), entry.Date, spec.StartHour, spec.DurationHours, loc)}

	case OvertimeAfter:
		shift := newEvent(spec.Title(), entry.Date, spec.StartHour, spec.DurationHours, loc)
		ot := eventAt(titleOvertime, shift.End, OvertimeBlockHours*time.Hour)
		return []models.Event{shift, ot}

	case OvertimeBefore:
		shift := newEvent(spec.Title(), entry.Date, spec.StartHour, spec.DurationHours, loc)
		ot := eventAt(titleOvertime, shift.Start.Add(-OvertimeBlockHours*time.Hour), OvertimeBlockHours*time.Hour)
		return []models.Event{ot, shift}
	}
	return nil
}

// SynthesizeBatch runs Synthesize over every entry whose code interprets
// cleanly, collecting per-entry code failures as batch warnings.
func SynthesizeBatch(batch *Batch, loc *time.Location) []models.Event {
	var events []models.Event
	for _, entry := range batch.Entries {
		spec, err := ParseCode(entry.RawCode)
		if err != nil {
			batch.Warnings = append(batch.Warnings, Warning{Line: entry.Line, Message: err.Error()})
			batch.Ignored++
			continue
		}
		events = append(events, Synthesize(entry, spec, loc)...)
	}
	return events
}

// newEvent resolves a wall-clock start on the entry's own date. DST edge
// cases are attached as warnings: a nonexistent hour (spring-forward gap)
// normalizes forward, an ambiguous hour (fall-back overlap) takes the
// offset time.Date picks. The duration is absolute either way, so an
// 8-hour shift always spans 8 hours of UTC time.
func newEvent(title string, date Date, hour, durationHours int, loc *time.Location) models.Event {
	start := date.At(hour, loc)

	var warnings []string
	if start.Hour() != hour {
		warnings = append(warnings, fmt.Sprintf(
			"%02d:00 does not exist on %s in %s (DST gap); shifted to %02d:00",
			hour, date, loc, start.Hour()))
	} else if ambiguousLocal(start) {
		warnings = append(warnings, fmt.Sprintf(
			"%02d:00 occurs twice on %s in %s (DST overlap); using first occurrence",
			hour, date, loc))
	}

	ev := eventAt(title, start, time.Duration(durationHours)*time.Hour)
	ev.Warnings = warnings
	return ev
}

// eventAt builds an event from an already-resolved start instant.
func eventAt(title string, start time.Time, d time.Duration) models.Event {
	return models.Event{
		UID:         eventUID(title, start),
		Title:       title,
		Description: models.Tag,
		Start:       start,
		End:         start.Add(d),
	}
}

// eventUID derives a stable identifier from the event's start instant and
// title, so reruns over the same schedule produce identical UIDs.
func eventUID(title string, start time.Time) string {
	key := fmt.Sprintf("postwmt:%s:%s", start.UTC().Format(time.RFC3339), title)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// ambiguousLocal reports whether t's wall-clock reading occurs twice in
// its location, which happens inside a fall-back transition.
func ambiguousLocal(t time.Time) bool {
	return t.Add(time.Hour).Hour() == t.Hour() || t.Add(-time.Hour).Hour() == t.Hour()
}
