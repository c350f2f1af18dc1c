package pdp

import "fmt"

// --- Positions --------------------------------------------------------

// Position denotes a (row, col) location in source text. Rows and columns
// are both 1-based, matching the reader's mental model of a text editor.
type Position struct {
	Row int
	Col int
}

// String is a debug Stringer for positions.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Col)
}

// IsZero reports whether p was never assigned a real position.
func (p Position) IsZero() bool {
	return p.Row == 0 && p.Col == 0
}

// --- Error taxonomy -----------------------------------------------------
//
// Every stage of the pipeline halts on its first error and reports it
// through one of the following types. All of them carry the position they
// occurred at (when known) so a caller can print "line:col: message".

// LexError is raised by the lexer on an unrecognizable character, bad
// indentation, or an unterminated string.
type LexError struct {
	Pos    Position
	Reason string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s: lex error: %s", e.Pos, e.Reason)
}

// ParseError is raised by the parser when the next token does not satisfy
// any arm of the active grammar production.
type ParseError struct {
	Pos      Position
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse error: expected %s, found %s", e.Pos, e.Expected, e.Found)
}

// SymbolError reports a statement outside the context that allows it. The
// parser raises it when its context flags (in_loop, in_function) reject
// break/continue outside a loop or return/yield outside a function;
// symtab.Build raises it when called on a root that is not a script.
type SymbolError struct {
	Pos    Position
	Reason string
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("%s: symbol error: %s", e.Pos, e.Reason)
}

// CompileError signals an AST shape the compiler's lowering rules don't
// cover. It is an internal-consistency error, not a user-facing one.
type CompileError struct {
	Pos    Position
	Reason string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: compile error (bug): %s", e.Pos, e.Reason)
}

// NameError is raised by the VM when a global or builtin lookup fails.
type NameError struct {
	Pos  Position
	Name string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("%s: NameError: name '%s' is not defined", e.Pos, e.Name)
}

// TypeError is raised by the VM when an operator is applied to
// incompatible operand kinds.
type TypeError struct {
	Pos    Position
	Reason string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: TypeError: %s", e.Pos, e.Reason)
}

// IndexError is raised on an out-of-bounds list index or a missing dict key.
type IndexError struct {
	Pos    Position
	Reason string
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: IndexError: %s", e.Pos, e.Reason)
}

// ZeroDivisionError is raised by /, //, % and ** with a zero divisor.
type ZeroDivisionError struct {
	Pos Position
}

func (e *ZeroDivisionError) Error() string {
	return fmt.Sprintf("%s: ZeroDivisionError: division by zero", e.Pos)
}

// StackOverflowError is raised when the frame stack exceeds the configured
// maximum call depth.
type StackOverflowError struct {
	Depth int
}

func (e *StackOverflowError) Error() string {
	return fmt.Sprintf("VmError: stack overflow at frame depth %d", e.Depth)
}
