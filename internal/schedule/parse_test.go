package schedule

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseEmptyInput(t *testing.T) {
	for _, text := range []string{"", "   \n\n  ", "no dates anywhere\njust noise"} {
		_, err := Parse(text, Options{ReferenceYear: 2024})
		if err == nil {
			t.Errorf("Parse(%q): expected empty-input error, got none", text)
			continue
		}
		var perr *ParseError
		if !errors.As(err, &perr) || perr.Kind != ErrEmptyInput {
			t.Errorf("Parse(%q): expected empty-input error, got %v", text, err)
		}
	}
}

func TestParseTwoLineLayout(t *testing.T) {
	batch, err := Parse("04/15/2024 Mon\n21", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(batch.Entries))
	}
	e := batch.Entries[0]
	if e.Date != (Date{Year: 2024, Month: time.April, Day: 15}) {
		t.Errorf("date = %v, want 2024-04-15", e.Date)
	}
	if e.RawCode != "21" {
		t.Errorf("raw code = %q, want \"21\"", e.RawCode)
	}
}

func TestParseSameLineLayout(t *testing.T) {
	batch, err := Parse("2024-03-10  6TEN$", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(batch.Entries))
	}
	e := batch.Entries[0]
	if e.Date != (Date{Year: 2024, Month: time.March, Day: 10}) {
		t.Errorf("date = %v, want 2024-03-10", e.Date)
	}
	if e.RawCode != "6TEN$" {
		t.Errorf("raw code = %q, want \"6TEN$\"", e.RawCode)
	}
}

func TestParseMultipleEntriesWithNoise(t *testing.T) {
	text := strings.Join([]string{
		"04/20/2024 Sat",
		"09",
		"04/21/2024 Sun",
		"X",
		"04/22/2024 Mon",
		"14TEN$",
		"Some other text",
		"04/23/2024 Tue",
		"08TEN",
	}, "\n")

	batch, err := Parse(text, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(batch.Entries))
	}
	wantCodes := []string{"09", "X", "14TEN$", "08TEN"}
	for i, want := range wantCodes {
		if batch.Entries[i].RawCode != want {
			t.Errorf("entry %d code = %q, want %q", i, batch.Entries[i].RawCode, want)
		}
	}
	if batch.Ignored != 1 {
		t.Errorf("ignored = %d, want 1 (the noise line)", batch.Ignored)
	}
}

func TestParseSkipsMalformedLines(t *testing.T) {
	text := "garbage text\n04/15/2024\n21\nmore garbage"
	batch, err := Parse(text, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(batch.Entries))
	}
	if len(batch.Warnings) == 0 {
		t.Error("expected warnings for skipped lines")
	}
}

func TestParseInvalidHourSkipped(t *testing.T) {
	batch, err := Parse("04/24/2024 Wed\n99\n04/25/2024 Thu\n08", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(batch.Entries))
	}
	if batch.Entries[0].Date.Day != 25 {
		t.Errorf("surviving entry is %v, want the 04/25 one", batch.Entries[0].Date)
	}
}

func TestParseInvalidDateSkipped(t *testing.T) {
	batch, err := Parse("02/30/2024\n08\n03/01/2024\n09", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(batch.Entries))
	}
	if batch.Entries[0].Date != (Date{Year: 2024, Month: time.March, Day: 1}) {
		t.Errorf("surviving entry is %v, want 2024-03-01", batch.Entries[0].Date)
	}
}

func TestParseDateWithoutCode(t *testing.T) {
	batch, err := Parse("04/25/2024 Thu\nrandom text instead of a code\n04/26/2024 Fri\n08", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(batch.Entries))
	}
	if batch.Entries[0].Date.Day != 26 {
		t.Errorf("surviving entry is %v, want the 04/26 one", batch.Entries[0].Date)
	}
}

func TestYearRollsOver(t *testing.T) {
	tests := []struct {
		prev, cur time.Month
		want      bool
	}{
		{0, time.January, false},
		{time.December, time.January, true},
		{time.January, time.February, false},
		{time.June, time.June, false},
		{time.June, time.March, true},
	}
	for _, tt := range tests {
		if got := YearRollsOver(tt.prev, tt.cur); got != tt.want {
			t.Errorf("YearRollsOver(%v, %v) = %v, want %v", tt.prev, tt.cur, got, tt.want)
		}
	}
}

func TestParseYearlessDatesAcrossBoundary(t *testing.T) {
	text := "12/30\n21\n12/31\nX\n01/02\n08TEN"
	batch, err := Parse(text, Options{ReferenceYear: 2024})
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(batch.Entries))
	}
	if y := batch.Entries[0].Date.Year; y != 2024 {
		t.Errorf("first entry year = %d, want 2024", y)
	}
	if y := batch.Entries[1].Date.Year; y != 2024 {
		t.Errorf("second entry year = %d, want 2024", y)
	}
	if y := batch.Entries[2].Date.Year; y != 2025 {
		t.Errorf("third entry year = %d, want 2025", y)
	}
	// A clean December-to-January wrap is not ambiguous.
	for _, w := range batch.Warnings {
		if strings.Contains(w.Message, "ambiguous_year") {
			t.Errorf("unexpected ambiguous-year warning: %v", w)
		}
	}
}

func TestParseAmbiguousYearWarned(t *testing.T) {
	text := "06/15\n08\n03/01\n09"
	batch, err := Parse(text, Options{ReferenceYear: 2024})
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(batch.Entries))
	}
	if y := batch.Entries[1].Date.Year; y != 2025 {
		t.Errorf("second entry year = %d, want 2025 (rolled forward)", y)
	}
	found := false
	for _, w := range batch.Warnings {
		if strings.Contains(w.Message, "ambiguous_year") {
			found = true
		}
	}
	if !found {
		t.Error("expected an ambiguous-year warning")
	}
}

func TestParseExplicitYearResetsInference(t *testing.T) {
	text := "12/30/2023\n08\n01/02\n09"
	batch, err := Parse(text, Options{ReferenceYear: 2030})
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(batch.Entries))
	}
	if y := batch.Entries[1].Date.Year; y != 2024 {
		t.Errorf("yearless entry year = %d, want 2024 (carried from explicit date)", y)
	}
}
