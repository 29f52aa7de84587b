package schedule

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind enumerates what a shift code means for one calendar date.
type Kind int

const (
	// DayOff is the "X" code: informational only, yields no events.
	DayOff Kind = iota
	// Shift is a plain work shift of 8 or 10 hours.
	Shift
	// AnnualLeave is an 8-hour paid leave block.
	AnnualLeave
	// OvertimeAfter is a shift with a 2-hour overtime block directly after it.
	OvertimeAfter
	// OvertimeBefore is a shift with a 2-hour overtime block directly before it.
	OvertimeBefore
)

func (k Kind) String() string {
	switch k {
	case DayOff:
		return "day_off"
	case Shift:
		return "shift"
	case AnnualLeave:
		return "annual_leave"
	case OvertimeAfter:
		return "overtime_after"
	case OvertimeBefore:
		return "overtime_before"
	default:
		return "unknown"
	}
}

// OvertimeBlockHours is the length of the supplementary overtime block
// adjoining an AOA/AOB shift. The exporting system always schedules these
// as two-hour blocks.
const OvertimeBlockHours = 2

// Spec is the structured interpretation of one shift code.
type Spec struct {
	Kind          Kind
	StartHour     int  // 0..23; meaningless for DayOff
	DurationHours int  // 8 or 10; meaningless for DayOff
	OvertimePay   bool // "$" suffix: affects the event title only

	// SecondaryStartHour is the overtime block's start hour. Populated
	// only for OvertimeAfter and OvertimeBefore.
	SecondaryStartHour int
}

// Shift codes, case-insensitive: a bare 1-2 digit hour with optional TEN
// and "$" suffixes, "X" for a day off, or an A/AOA/AOB prefix with a
// two-digit hour.
var codePattern = regexp.MustCompile(`^(?i)(?:(\d{1,2})(TEN)?(\$)?|(X)|AOA(\d{2})|AOB(\d{2})|A(\d{2}))$`)

// ParseCode interprets a raw shift-code token. It is a pure function of
// the token and performs no date arithmetic.
func ParseCode(token string) (Spec, error) {
	trimmed := strings.TrimSpace(token)
	m := codePattern.FindStringSubmatch(trimmed)
	if m == nil {
		return Spec{}, &ParseError{Kind: ErrUnrecognizedCode, Token: trimmed}
	}
	hourStr, ten, dollar, dayOff, aoa, aob, leave := m[1], m[2], m[3], m[4], m[5], m[6], m[7]

	switch {
	case dayOff != "":
		return Spec{Kind: DayOff}, nil

	case hourStr != "":
		hour, err := parseHour(hourStr)
		if err != nil {
			return Spec{}, &ParseError{Kind: ErrUnrecognizedCode, Token: trimmed}
		}
		duration := 8
		if ten != "" {
			duration = 10
		}
		return Spec{
			Kind:          Shift,
			StartHour:     hour,
			DurationHours: duration,
			OvertimePay:   dollar != "",
		}, nil

	case leave != "":
		hour, err := parseHour(leave)
		if err != nil {
			return Spec{}, &ParseError{Kind: ErrUnrecognizedCode, Token: trimmed}
		}
		return Spec{Kind: AnnualLeave, StartHour: hour, DurationHours: 8}, nil

	case aoa != "":
		hour, err := parseHour(aoa)
		if err != nil {
			return Spec{}, &ParseError{Kind: ErrUnrecognizedCode, Token: trimmed}
		}
		return Spec{
			Kind:               OvertimeAfter,
			StartHour:          hour,
			DurationHours:      8,
			SecondaryStartHour: (hour + 8) % 24,
		}, nil

	case aob != "":
		hour, err := parseHour(aob)
		if err != nil {
			return Spec{}, &ParseError{Kind: ErrUnrecognizedCode, Token: trimmed}
		}
		return Spec{
			Kind:               OvertimeBefore,
			StartHour:          hour,
			DurationHours:      8,
			SecondaryStartHour: (hour + 24 - OvertimeBlockHours) % 24,
		}, nil
	}

	return Spec{}, &ParseError{Kind: ErrUnrecognizedCode, Token: trimmed}
}

func parseHour(s string) (int, error) {
	hour, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if hour < 0 || hour > 23 {
		return 0, &ParseError{Kind: ErrUnrecognizedCode, Token: s}
	}
	return hour, nil
}
