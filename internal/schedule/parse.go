package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Date is a plain calendar date in the schedule's timezone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// At resolves a wall-clock hour on this date to an instant in loc,
// using loc's UTC offset for this date rather than for any other.
func (d Date) At(hour int, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, 0, 0, 0, loc)
}

// valid reports whether the date exists (time.Date normalizes
// out-of-range components, so a round trip detects e.g. 02/30).
func (d Date) valid() bool {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	return t.Year() == d.Year && t.Month() == d.Month && t.Day() == d.Day
}

// Entry is one recognized schedule line: a date and its raw shift code.
type Entry struct {
	Date    Date
	RawCode string
	Line    int // 1-based line the code token came from
}

// Batch is the result of parsing one pasted schedule text.
type Batch struct {
	Entries  []Entry
	Warnings []Warning
	// Ignored counts input lines that were skipped because they matched
	// neither the date nor the code shape.
	Ignored int
}

// Options control parsing. The zero value is ready to use.
type Options struct {
	// ReferenceYear seeds year inference for yearless dates.
	// Zero means the current year.
	ReferenceYear int
}

var (
	isoDatePattern  = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)
	usDatePattern   = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
	bareDatePattern = regexp.MustCompile(`(\d{1,2})/(\d{1,2})`)
)

// YearRollsOver reports whether a schedule stepping from month prev to
// month cur has crossed a year boundary. The export omits years, so the
// only signal is the month running backwards.
func YearRollsOver(prev, cur time.Month) bool {
	return prev != 0 && cur < prev
}

// Parse splits raw schedule text into dated entries. The export's layout
// puts the date and the shift code either on one line or on consecutive
// lines, with day-of-week labels and arbitrary column noise in between;
// anything that matches neither shape is skipped with a warning. Parse
// fails only when no entries are recognized at all.
func Parse(text string, opts Options) (*Batch, error) {
	refYear := opts.ReferenceYear
	if refYear == 0 {
		refYear = time.Now().Year()
	}

	batch := &Batch{}
	lines := strings.Split(text, "\n")

	year := refYear
	var prevMonth time.Month

	ignore := func(lineNo int, msg string) {
		batch.Warnings = append(batch.Warnings, Warning{Line: lineNo, Message: msg})
		batch.Ignored++
	}

	i := 0
	for i < len(lines) {
		lineNo := i + 1
		line := strings.TrimSpace(lines[i])
		i++
		if line == "" {
			continue
		}

		date, hasYear, rest, ok := findDate(line)
		if !ok {
			ignore(lineNo, fmt.Sprintf("no date token in %q", line))
			continue
		}

		if hasYear {
			year = date.Year
		} else {
			if YearRollsOver(prevMonth, date.Month) {
				year++
				if !(prevMonth == time.December && date.Month == time.January) {
					batch.Warnings = append(batch.Warnings, Warning{
						Line:    lineNo,
						Message: (&ParseError{Kind: ErrAmbiguousYear, Line: lineNo, Token: date.String()}).Error(),
					})
				}
			}
			date.Year = year
		}
		if !date.valid() {
			ignore(lineNo, fmt.Sprintf("invalid date %q", date))
			continue
		}
		prevMonth = date.Month

		// Code on the same line, after the date token.
		if code, ok := findCode(rest); ok {
			batch.Entries = append(batch.Entries, Entry{Date: date, RawCode: code, Line: lineNo})
			continue
		}

		// Otherwise the code is on a following line, before the next date.
		matched := false
		for i < len(lines) {
			codeLineNo := i + 1
			codeLine := strings.TrimSpace(lines[i])
			i++
			if codeLine == "" {
				continue
			}
			if _, _, _, isDate := findDate(codeLine); isDate {
				i--
				break
			}
			if code, ok := findCode(codeLine); ok {
				batch.Entries = append(batch.Entries, Entry{Date: date, RawCode: code, Line: codeLineNo})
				matched = true
				break
			}
			ignore(codeLineNo, fmt.Sprintf("unrecognized line %q", codeLine))
		}
		if !matched {
			ignore(lineNo, fmt.Sprintf("date %s has no shift code", date))
		}
	}

	if len(batch.Entries) == 0 {
		return nil, &ParseError{Kind: ErrEmptyInput}
	}
	return batch, nil
}

// findDate locates the first date token in line. It returns the date
// (year zero-valued when the token omits it), whether the token carried
// an explicit year, and the line with the token removed.
func findDate(line string) (date Date, hasYear bool, rest string, ok bool) {
	if loc := isoDatePattern.FindStringSubmatchIndex(line); loc != nil {
		y, _ := strconv.Atoi(line[loc[2]:loc[3]])
		m, _ := strconv.Atoi(line[loc[4]:loc[5]])
		d, _ := strconv.Atoi(line[loc[6]:loc[7]])
		return Date{Year: y, Month: time.Month(m), Day: d}, true, cut(line, loc[0], loc[1]), true
	}
	if loc := usDatePattern.FindStringSubmatchIndex(line); loc != nil {
		m, _ := strconv.Atoi(line[loc[2]:loc[3]])
		d, _ := strconv.Atoi(line[loc[4]:loc[5]])
		y, _ := strconv.Atoi(line[loc[6]:loc[7]])
		return Date{Year: y, Month: time.Month(m), Day: d}, true, cut(line, loc[0], loc[1]), true
	}
	if loc := bareDatePattern.FindStringSubmatchIndex(line); loc != nil {
		m, _ := strconv.Atoi(line[loc[2]:loc[3]])
		d, _ := strconv.Atoi(line[loc[4]:loc[5]])
		return Date{Month: time.Month(m), Day: d}, false, cut(line, loc[0], loc[1]), true
	}
	return Date{}, false, line, false
}

func cut(s string, from, to int) string {
	return strings.TrimSpace(s[:from] + " " + s[to:])
}

// findCode scans whitespace-separated fields for the first token that
// parses as a shift code, so day-of-week labels and other column noise
// around the code are tolerated.
func findCode(s string) (string, bool) {
	for _, field := range strings.Fields(s) {
		if _, err := ParseCode(field); err == nil {
			return field, true
		}
	}
	return "", false
}
