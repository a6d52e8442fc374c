// Package diag implements the compiler's diagnostic model: expected
// compilation outcomes (lexical/syntactic/semantic errors and warnings),
// as distinct from infrastructure failures which are plain Go errors.
package diag

import (
	"fmt"

	"zcc/internal/source"
)

// Severity classifies a Diagnostic's importance.
type Severity uint8

const (
	Error Severity = iota
	Warning
	Note
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	default:
		return "unknown"
	}
}

// Phase identifies which pipeline stage raised a Diagnostic.
type Phase uint8

const (
	PhaseLexer Phase = iota
	PhaseParser
	PhaseSema
	PhaseCodegen
)

func (p Phase) String() string {
	switch p {
	case PhaseLexer:
		return "lexer"
	case PhaseParser:
		return "parser"
	case PhaseSema:
		return "sema"
	case PhaseCodegen:
		return "codegen"
	default:
		return "unknown"
	}
}

// Diagnostic is one reported compilation outcome: a severity, a source
// position, and a message. It implements error so it can be returned or
// wrapped like any other Go error when convenient, but diagnostics are
// normally accumulated in a Bag rather than returned individually.
type Diagnostic struct {
	Pos      source.Position
	Phase    Phase
	Severity Severity
	Message  string
}

// New builds a Diagnostic. The message is formatted with fmt.Sprintf
// semantics when args are supplied.
func New(pos source.Position, phase Phase, sev Severity, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Pos:      pos,
		Phase:    phase,
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Error formats the diagnostic as "file:line:col: level: message".
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.Pos.File, d.Pos.Line, d.Pos.Column, d.Severity, d.Message)
}

// Bag accumulates diagnostics for one compilation instead of
// early-exiting on the first error.
type Bag struct {
	items []*Diagnostic
}

// Add appends a Diagnostic to the bag.
func (b *Bag) Add(d *Diagnostic) {
	b.items = append(b.items, d)
}

// Addf constructs and appends a Diagnostic in one call.
func (b *Bag) Addf(pos source.Position, phase Phase, sev Severity, format string, args ...any) {
	b.Add(New(pos, phase, sev, format, args...))
}

// All returns every diagnostic added so far, in order.
func (b *Bag) All() []*Diagnostic {
	return b.items
}

// Errors returns only the Error-severity diagnostics.
func (b *Bag) Errors() []*Diagnostic {
	return b.filter(Error)
}

// Warnings returns only the Warning-severity diagnostics.
func (b *Bag) Warnings() []*Diagnostic {
	return b.filter(Warning)
}

func (b *Bag) filter(sev Severity) []*Diagnostic {
	var out []*Diagnostic
	for _, d := range b.items {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// HasErrors reports whether any Error-severity diagnostic was recorded.
// A compilation succeeds iff no error-severity diagnostic was emitted and
// the pipeline completed.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Merge appends every diagnostic in other to b.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	b.items = append(b.items, other.items...)
}
