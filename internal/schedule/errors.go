package schedule

import "fmt"

// ParseErrorKind classifies schedule parsing failures.
type ParseErrorKind int

const (
	// ErrEmptyInput means the text contained no recognizable entries at all.
	ErrEmptyInput ParseErrorKind = iota
	// ErrUnrecognizedCode means a shift-code token did not match the grammar.
	ErrUnrecognizedCode
	// ErrAmbiguousYear means the year-inference heuristic hit a backward
	// month step that is not the December to January wrap.
	ErrAmbiguousYear
)

func (k ParseErrorKind) String() string {
	switch k {
	case ErrEmptyInput:
		return "empty_input"
	case ErrUnrecognizedCode:
		return "unrecognized_code"
	case ErrAmbiguousYear:
		return "ambiguous_year"
	default:
		return "unknown"
	}
}

// ParseError is a classified schedule parsing failure. Per-line failures
// are collected as warnings on the batch; only ErrEmptyInput aborts.
type ParseError struct {
	Kind  ParseErrorKind
	Line  int    // 1-based line number, 0 when not tied to a line
	Token string // the offending token, if any
}

func (e *ParseError) Error() string {
	switch {
	case e.Token != "" && e.Line > 0:
		return fmt.Sprintf("schedule parse: %s %q on line %d", e.Kind, e.Token, e.Line)
	case e.Token != "":
		return fmt.Sprintf("schedule parse: %s %q", e.Kind, e.Token)
	default:
		return fmt.Sprintf("schedule parse: %s", e.Kind)
	}
}

// Warning records a non-fatal problem on one input line.
type Warning struct {
	Line    int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Message)
}
