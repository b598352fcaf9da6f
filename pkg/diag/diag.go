// Package diag owns every user-facing string the borrow-checking pass
// emits plus the diagnostic sink abstraction. The
// pass never formats ad-hoc strings outside this package: every
// template lives here so wording stays consistent across the
// categorizer, loaner, and driver.
package diag

import (
	"fmt"

	"github.com/arborlang/borrowck/pkg/ir"
	"github.com/arborlang/borrowck/pkg/span"
	"github.com/sirupsen/logrus"
)

// Severity is one of the four levels a diagnostic can carry.
type Severity uint8

const (
	SeverityNote Severity = iota
	SeverityWarn
	SeverityErr
	SeverityBug
)

func (s Severity) String() string {
	switch s {
	case SeverityNote:
		return "note"
	case SeverityWarn:
		return "warning"
	case SeverityErr:
		return "error"
	case SeverityBug:
		return "internal compiler error"
	default:
		return "unknown"
	}
}

// Diagnostic is one message written to the sink.
type Diagnostic struct {
	Span     span.Span
	Message  string
	Severity Severity
}

// Sink accepts diagnostics from the pass. The production sink logs
// through logrus; tests use the in-memory Recorder.
type Sink interface {
	Emit(d Diagnostic)
}

// LogrusSink adapts a *logrus.Logger into a Sink, the way the pass
// reports progress and errors through the ambient structured logger.
type LogrusSink struct {
	Log *logrus.Logger
}

// NewLogrusSink builds a Sink backed by the given logger, or the
// package-level logrus standard logger if log is nil.
func NewLogrusSink(log *logrus.Logger) *LogrusSink {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogrusSink{Log: log}
}

func (s *LogrusSink) Emit(d Diagnostic) {
	entry := s.Log.WithField("span", d.Span.String())
	switch d.Severity {
	case SeverityBug:
		entry.Error("bug: " + d.Message)
	case SeverityErr:
		entry.Error(d.Message)
	case SeverityWarn:
		entry.Warn(d.Message)
	default:
		entry.Info(d.Message)
	}
}

// Recorder is an in-memory Sink used by tests and by callers that want
// to inspect the full diagnostic batch before deciding how to present
// it (e.g. pass.Run collects every diagnostic into one, and the CLI
// prints that batch in emission order).
type Recorder struct {
	Diagnostics []Diagnostic
}

func (r *Recorder) Emit(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
}

// HasErrors reports whether any Err or Bug-severity diagnostic was
// recorded.
func (r *Recorder) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityErr || d.Severity == SeverityBug {
			return true
		}
	}
	return false
}

// --- cmt description forms ---

// DescribeCategory renders the cmt description forms by name, used
// to build the "assigning to / moving out of / ..." messages.
func DescribeCategory(kind string, mutbl ir.Mutability) string {
	switch kind {
	case "method":
		return "method"
	case "static-item":
		return "static item"
	case "self":
		return "self reference"
	case "upvar":
		return "upvar"
	case "rvalue":
		return "non-lvalue"
	case "local":
		return fmt.Sprintf("%s local variable", mutbl)
	case "arg":
		return fmt.Sprintf("%s argument", mutbl)
	case "deref":
		return fmt.Sprintf("dereference of %s pointer", mutbl)
	case "field":
		return fmt.Sprintf("%s field", mutbl)
	case "tuple":
		return "tuple content"
	case "resource":
		return "resource content"
	case "variant":
		return "enum content"
	case "vec":
		return fmt.Sprintf("%s vec content", mutbl)
	case "str":
		return fmt.Sprintf("%s str content", mutbl)
	case "indexed":
		return fmt.Sprintf("%s indexed content", mutbl)
	default:
		return "value"
	}
}

// AssignmentVerb is one of the three verbs used to phrase a
// non-assignable-target or outstanding-loan error.
type AssignmentVerb uint8

const (
	VerbAssign AssignmentVerb = iota
	VerbSwap
	VerbMutRef
)

func (v AssignmentVerb) String() string {
	switch v {
	case VerbAssign:
		return "assigning to"
	case VerbSwap:
		return "swapping to and from"
	case VerbMutRef:
		return "taking mut reference to"
	default:
		return "using"
	}
}

// NotAssignable renders the step-2 "assigning to / swapping to and from
// / taking mut reference to <description>" message.
func NotAssignable(verb AssignmentVerb, description string) string {
	return fmt.Sprintf("%s %s", verb, description)
}

// OutstandingLoan renders the step-3 conflict message for an assignment,
// swap, or mut-reference against an existing Imm loan.
func OutstandingLoan(verb AssignmentVerb, description string) string {
	return fmt.Sprintf("%s %s prohibited due to outstanding loan", verb, description)
}

// MoveOfBorrowed renders check_move_out_from_cmt's conflict message.
func MoveOfBorrowed(description string) string {
	return fmt.Sprintf("moving out of %s prohibited due to outstanding loan", description)
}

// MoveDisallowed renders check_move_out_from_cmt's non-movable message.
func MoveDisallowed(description string) string {
	return fmt.Sprintf("moving out of %s", description)
}

// LoanConflict renders the new-loan-vs-existing-loan message and its
// accompanying note.
func LoanConflict(description string, newMutbl ir.Mutability) (message, note string) {
	message = fmt.Sprintf("loan of %s as %s conflicts with prior loan", description, newMutbl)
	note = fmt.Sprintf("prior loan as %s granted here", newMutbl)
	return message, note
}

// --- bckerr codes ---

// BckErrCode is one of the four `bckerr` kinds a borrow failure carries.
type BckErrCode uint8

const (
	ErrMutbl BckErrCode = iota
	ErrMutUniq
	ErrMutVariant
	ErrPreserveGC
)

func (c BckErrCode) String() string {
	switch c {
	case ErrMutbl:
		return "illegal borrow: creating a mutable alias of an immutable location"
	case ErrMutUniq:
		return "illegal borrow: unique value in aliasable, mutable location"
	case ErrMutVariant:
		return "illegal borrow: enum variant in aliasable, mutable location"
	case ErrPreserveGC:
		return "illegal borrow: GC'd value would have to be preserved for longer than the scope of the function"
	default:
		return "illegal borrow"
	}
}

// MutblMismatch renders err_mutbl(req, act): a borrow needing req found
// only act available.
func MutblMismatch(req, act ir.Mutability) string {
	return fmt.Sprintf("%s: requires a %s location, found a %s one", ErrMutbl, req, act)
}
