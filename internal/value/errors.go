package value

import "fmt"

// Kind classifies a runtime failure.
type Kind string

const (
	ErrRuntime   Kind = "RuntimeError"
	ErrType      Kind = "TypeError"
	ErrName      Kind = "NameError"
	ErrImmutable Kind = "ImmutableError"
)

// Error is a structured runtime failure. Line and Col are zero when the
// failure has no source position.
type Error struct {
	Kind Kind
	Msg  string
	Line int
	Col  int
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s at %d:%d: %s", e.Kind, e.Line, e.Col, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// WithPos returns a copy of e carrying the given position, unless e already
// has one.
func (e *Error) WithPos(line, col int) *Error {
	if e.Line > 0 {
		return e
	}
	return &Error{Kind: e.Kind, Msg: e.Msg, Line: line, Col: col}
}

func Runtimef(format string, args ...any) *Error {
	return &Error{Kind: ErrRuntime, Msg: fmt.Sprintf(format, args...)}
}

func Typef(format string, args ...any) *Error {
	return &Error{Kind: ErrType, Msg: fmt.Sprintf(format, args...)}
}

func Namef(format string, args ...any) *Error {
	return &Error{Kind: ErrName, Msg: fmt.Sprintf(format, args...)}
}

func Immutablef(format string, args ...any) *Error {
	return &Error{Kind: ErrImmutable, Msg: fmt.Sprintf(format, args...)}
}
