package schedule

import (
	"testing"
	"time"

	"postwmt/internal/models"
)

func nyc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("failed to load schedule timezone: %v", err)
	}
	return loc
}

func mustSpec(t *testing.T, code string) Spec {
	t.Helper()
	spec, err := ParseCode(code)
	if err != nil {
		t.Fatalf("ParseCode(%q): %v", code, err)
	}
	return spec
}

func TestSynthesizeDayOff(t *testing.T) {
	entry := Entry{Date: Date{2024, time.April, 19}, RawCode: "X"}
	events := Synthesize(entry, mustSpec(t, "X"), nyc(t))
	if len(events) != 0 {
		t.Fatalf("day off yielded %d events, want 0", len(events))
	}
}

func TestSynthesizeTenHourOvertimePayShift(t *testing.T) {
	loc := nyc(t)
	entry := Entry{Date: Date{2024, time.March, 10}, RawCode: "6TEN$"}
	events := Synthesize(entry, mustSpec(t, "6TEN$"), loc)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Title != "Shift (OT)" {
		t.Errorf("title = %q, want \"Shift (OT)\"", ev.Title)
	}
	if want := time.Date(2024, time.March, 10, 6, 0, 0, 0, loc); !ev.Start.Equal(want) {
		t.Errorf("start = %v, want %v", ev.Start, want)
	}
	if want := time.Date(2024, time.March, 10, 16, 0, 0, 0, loc); !ev.End.Equal(want) {
		t.Errorf("end = %v, want %v", ev.End, want)
	}
	if !models.Tagged(ev.Description) {
		t.Error("event description is missing the tag marker")
	}
}

func TestSynthesizeAnnualLeave(t *testing.T) {
	loc := nyc(t)
	entry := Entry{Date: Date{2024, time.May, 6}, RawCode: "A09"}
	events := Synthesize(entry, mustSpec(t, "A09"), loc)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Title != "Annual Leave" {
		t.Errorf("title = %q, want \"Annual Leave\"", events[0].Title)
	}
	if d := events[0].End.Sub(events[0].Start); d != 8*time.Hour {
		t.Errorf("duration = %v, want 8h", d)
	}
}

func TestSynthesizeOvertimeAfterIsContiguous(t *testing.T) {
	loc := nyc(t)
	entry := Entry{Date: Date{2024, time.March, 11}, RawCode: "AOA06"}
	events := Synthesize(entry, mustSpec(t, "AOA06"), loc)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	shift, ot := events[0], events[1]
	if shift.Title != "Shift" || ot.Title != "Overtime" {
		t.Errorf("titles = %q, %q; want \"Shift\", \"Overtime\"", shift.Title, ot.Title)
	}
	if want := time.Date(2024, time.March, 11, 6, 0, 0, 0, loc); !shift.Start.Equal(want) {
		t.Errorf("shift start = %v, want %v", shift.Start, want)
	}
	if !ot.Start.Equal(shift.End) {
		t.Errorf("overtime starts at %v, shift ends at %v; want contiguous", ot.Start, shift.End)
	}
	if d := ot.End.Sub(ot.Start); d != OvertimeBlockHours*time.Hour {
		t.Errorf("overtime duration = %v, want %dh", d, OvertimeBlockHours)
	}
}

func TestSynthesizeOvertimeBeforeIsContiguous(t *testing.T) {
	loc := nyc(t)
	entry := Entry{Date: Date{2024, time.March, 12}, RawCode: "AOB06"}
	events := Synthesize(entry, mustSpec(t, "AOB06"), loc)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	ot, shift := events[0], events[1]
	if ot.Title != "Overtime" || shift.Title != "Shift" {
		t.Errorf("titles = %q, %q; want \"Overtime\", \"Shift\"", ot.Title, shift.Title)
	}
	if !ot.End.Equal(shift.Start) {
		t.Errorf("overtime ends at %v, shift starts at %v; want contiguous", ot.End, shift.Start)
	}
	if d := ot.End.Sub(ot.Start); d != OvertimeBlockHours*time.Hour {
		t.Errorf("overtime duration = %v, want %dh", d, OvertimeBlockHours)
	}
}

// 2024-03-10 is the spring-forward date in America/New_York: 02:00 EST
// jumps to 03:00 EDT. A 05:00 shift exists on both sides of the gap and
// must still span exactly 8 hours of absolute time.
func TestSynthesizeSpringForwardShift(t *testing.T) {
	loc := nyc(t)
	entry := Entry{Date: Date{2024, time.March, 10}, RawCode: "5"}
	events := Synthesize(entry, mustSpec(t, "5"), loc)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if d := ev.End.UTC().Sub(ev.Start.UTC()); d != 8*time.Hour {
		t.Errorf("UTC duration = %v, want 8h", d)
	}
	if len(ev.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", ev.Warnings)
	}
}

func TestSynthesizeSpringForwardGapWarns(t *testing.T) {
	loc := nyc(t)
	entry := Entry{Date: Date{2024, time.March, 10}, RawCode: "2"}
	events := Synthesize(entry, mustSpec(t, "2"), loc)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if len(ev.Warnings) == 0 {
		t.Fatal("expected a DST-gap warning for a nonexistent wall-clock hour")
	}
	if ev.Start.Hour() != 3 {
		t.Errorf("start hour = %d, want 3 (normalized past the gap)", ev.Start.Hour())
	}
	if d := ev.End.Sub(ev.Start); d != 8*time.Hour {
		t.Errorf("duration = %v, want 8h", d)
	}
}

// 2024-11-03 is the fall-back date: 01:00 EDT repeats as 01:00 EST.
func TestSynthesizeFallBackAmbiguityWarns(t *testing.T) {
	loc := nyc(t)
	entry := Entry{Date: Date{2024, time.November, 3}, RawCode: "1"}
	events := Synthesize(entry, mustSpec(t, "1"), loc)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if len(ev.Warnings) == 0 {
		t.Fatal("expected a DST-overlap warning for an ambiguous wall-clock hour")
	}
	if d := ev.End.Sub(ev.Start); d != 8*time.Hour {
		t.Errorf("duration = %v, want 8h", d)
	}
}

func TestSynthesizeIsReproducible(t *testing.T) {
	loc := nyc(t)
	entry := Entry{Date: Date{2024, time.March, 11}, RawCode: "AOA06"}
	a := Synthesize(entry, mustSpec(t, "AOA06"), loc)
	b := Synthesize(entry, mustSpec(t, "AOA06"), loc)
	if len(a) != len(b) {
		t.Fatalf("event counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].UID != b[i].UID || !a[i].Start.Equal(b[i].Start) || !a[i].End.Equal(b[i].End) {
			t.Errorf("event %d not reproducible: %+v vs %+v", i, a[i], b[i])
		}
	}
	if a[0].UID == a[1].UID {
		t.Error("distinct events share a UID")
	}
}

func TestSynthesizeBatchCollectsCodeFailures(t *testing.T) {
	batch := &Batch{Entries: []Entry{
		{Date: Date{2024, time.April, 1}, RawCode: "08", Line: 2},
		{Date: Date{2024, time.April, 2}, RawCode: "bogus", Line: 4},
	}}
	events := SynthesizeBatch(batch, nyc(t))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if len(batch.Warnings) != 1 {
		t.Errorf("got %d warnings, want 1", len(batch.Warnings))
	}
}
