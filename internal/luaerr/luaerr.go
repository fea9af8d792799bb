// Package luaerr implements the error model (spec.md 4.8/7): an error
// carries either an arbitrary Lua Value (raised via error(table)) or a
// message Bytes value, with call-stack tracking for debug.traceback.
//
// Grounded field-for-field on the teacher's internal/errors package
// (SentraError/SourceLocation/StackFrame/Error() via strings.Builder);
// ErrorType's enum is replaced by spec.md 7's error-kind categories and
// a Value field is added so a raised table propagates unmodified.
package luaerr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"lua/internal/value"
)

// Kind is one of spec.md 7's error categories.
type Kind string

const (
	TypeError       Kind = "TypeError"
	ArithmeticError Kind = "ArithmeticError"
	PatternError    Kind = "PatternError"
	FormatError     Kind = "FormatError"
	PackError       Kind = "PackError"
	NameError       Kind = "NameError"
	IOError         Kind = "IOError"
	ModuleError     Kind = "ModuleError"
	CoroutineError  Kind = "CoroutineError"
	UserError       Kind = "UserError"
)

// SourceLocation mirrors the teacher's internal/errors.SourceLocation.
type SourceLocation struct {
	Chunk  string
	Line   int
	Column int
}

// StackFrame mirrors the teacher's internal/errors.StackFrame.
type StackFrame struct {
	Function string
	Chunk    string
	Line     int
}

// Error is a Lua-raised error: Value is the raw Value error() was called
// with (a *value.Bytes message in the common case, but any Value for
// `error(sometable)`, per spec.md 4.8). Message is the rendered form
// used by Error()/the CLI, including the "chunk:line: " prefix spec.md
// 4.8 adds unless level==0.
type Error struct {
	Kind      Kind
	Value     value.Value
	Message   string
	Location  SourceLocation
	CallStack []StackFrame
	Traceback string
	cause     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return value.RawToString(e.Value)
}

// Unwrap lets errors.Is/As reach a wrapped Go-level cause (an IOError's
// underlying os.PathError, a ModuleError's underlying driver error, ...).
func (e *Error) Unwrap() error { return e.cause }

// New builds a message-only error: Value becomes a *value.Bytes holding
// msg (spec.md 4.8's "Bytes value... everything else" case).
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Value: value.NewString(msg), Message: msg}
}

// Newf is New with fmt-style formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, sprintf(format, args...))
}

// FromValue wraps an arbitrary raised Value (spec.md 4.8: "error(v)
// where v is a table" propagates v unmodified).
func FromValue(v value.Value) *Error {
	e := &Error{Kind: UserError, Value: v}
	if b, ok := v.(*value.Bytes); ok {
		e.Message = b.String()
	}
	return e
}

// WithLocation adds spec.md 4.8's "chunkname:line: " prefix unless level
// is 0, and records the location for debug.traceback.
func (e *Error) WithLocation(loc SourceLocation, level int) *Error {
	e.Location = loc
	if level == 0 || loc.Chunk == "" {
		return e
	}
	if b, ok := e.Value.(*value.Bytes); ok {
		prefixed := sprintf("%s:%d: %s", loc.Chunk, loc.Line, b.String())
		e.Value = value.NewString(prefixed)
		e.Message = prefixed
	}
	return e
}

// WithCause wraps a Go-level cause (file I/O, driver, ...) using
// github.com/pkg/errors so the Go stack trace at the failure site is
// preserved underneath the Lua-facing Error (see SPEC_FULL.md section A).
func (e *Error) WithCause(cause error) *Error {
	e.cause = errors.WithStack(cause)
	return e
}

func (e *Error) PushFrame(f StackFrame) {
	e.CallStack = append(e.CallStack, f)
}

// RenderTraceback renders debug.traceback's "stack traceback:\n..." body
// (spec.md 4.8/7).
func (e *Error) RenderTraceback() string {
	var sb strings.Builder
	sb.WriteString("stack traceback:")
	for i := len(e.CallStack) - 1; i >= 0; i-- {
		f := e.CallStack[i]
		sb.WriteString("\n\t")
		if f.Chunk != "" {
			sb.WriteString(f.Chunk)
			sb.WriteString(":")
		}
		if f.Line > 0 {
			sb.WriteString(strconv.Itoa(f.Line))
			sb.WriteString(": ")
		}
		if f.Function != "" {
			sb.WriteString("in function '" + f.Function + "'")
		} else {
			sb.WriteString("in main chunk")
		}
	}
	return sb.String()
}

// AsValue extracts the Lua Value an arbitrary Go error should raise as:
// a *Error's carried Value, or a fresh Bytes wrapping err.Error().
func AsValue(err error) value.Value {
	if err == nil {
		return value.Nil{}
	}
	if le, ok := err.(*Error); ok {
		return le.Value
	}
	return value.NewString(err.Error())
}

func sprintf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
