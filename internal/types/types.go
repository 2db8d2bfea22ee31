package types

import (
	"errors"
	"fmt"
)

// Class groups error kinds by the stage that detects them.
// Callers map a class to a process exit code.
type Class int

const (
	ClassSyntax Class = iota + 1
	ClassSemantic
	ClassRedefinition
	ClassResourceExhausted
)

func (c Class) String() string {
	switch c {
	case ClassSyntax:
		return "syntax"
	case ClassSemantic:
		return "semantic"
	case ClassRedefinition:
		return "redefinition"
	case ClassResourceExhausted:
		return "resource"
	default:
		return "unknown"
	}
}

// Kind identifies a single failure inside a class.
type Kind int

const (
	KindIllegalCharSequence Kind = iota + 1
	KindBlockNotClosed
	KindDefSyntax
	KindMacroNotDefined
	KindUnknownMacro
	KindArguments
	KindRedefinition
	KindResourceExhausted
)

var kindClass = map[Kind]Class{
	KindIllegalCharSequence: ClassSyntax,
	KindBlockNotClosed:      ClassSyntax,
	KindDefSyntax:           ClassSyntax,
	KindMacroNotDefined:     ClassSemantic,
	KindUnknownMacro:        ClassSemantic,
	KindArguments:           ClassSemantic,
	KindRedefinition:        ClassRedefinition,
	KindResourceExhausted:   ClassResourceExhausted,
}

var kindNames = map[Kind]string{
	KindIllegalCharSequence: "illegal character sequence",
	KindBlockNotClosed:      "block not closed",
	KindDefSyntax:           "malformed parameter block",
	KindMacroNotDefined:     "macro not defined",
	KindUnknownMacro:        "unknown macro",
	KindArguments:           "invalid arguments",
	KindRedefinition:        "illegal redefinition",
	KindResourceExhausted:   "resource exhausted",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown error"
}

// Class returns the class the kind belongs to.
func (k Kind) Class() Class {
	return kindClass[k]
}

// Error is the single error type produced by the processor core.
//
// Offset is a rune offset into Source. Source is filled in by the engine
// with the buffer content at the moment of failure, which may differ from
// the original input after earlier expansions. Offset is -1 when the error
// has no position (table mutations requested by a config file, for example).
type Error struct {
	Kind   Kind
	Msg    string
	Offset int
	Source string
	// Err is the cause when the error comes from outside the processor,
	// such as an expired deadline.
	Err error
}

// Errorf creates an Error of the given kind at offset.
func Errorf(kind Kind, offset int, format string, args ...any) *Error {
	return &Error{
		Kind:   kind,
		Msg:    fmt.Sprintf(format, args...),
		Offset: offset,
	}
}

// Interrupted reports a run stopped from outside by cause, usually
// context.DeadlineExceeded or context.Canceled. It is a resource error.
func Interrupted(offset int, cause error) *Error {
	return &Error{
		Kind:   KindResourceExhausted,
		Msg:    "processing stopped: " + cause.Error(),
		Offset: offset,
		Err:    cause,
	}
}

func (e *Error) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("%s error: %s", e.Kind.Class(), e.Msg)
	}
	return fmt.Sprintf("%s error at offset %d: %s", e.Kind.Class(), e.Offset, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Class is a shortcut for e.Kind.Class().
func (e *Error) Class() Class {
	return e.Kind.Class()
}

// Is reports whether target is the class or kind sentinel matching e.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case classSentinel:
		return Class(t) == e.Class()
	case kindSentinel:
		return Kind(t) == e.Kind
	}
	return false
}

type classSentinel Class

func (c classSentinel) Error() string { return Class(c).String() + " error" }

type kindSentinel Kind

func (k kindSentinel) Error() string { return Kind(k).String() }

// Class sentinels, for errors.Is.
var (
	ErrSyntax            error = classSentinel(ClassSyntax)
	ErrSemantic          error = classSentinel(ClassSemantic)
	ErrRedefinitionClass error = classSentinel(ClassRedefinition)
	ErrResourceClass     error = classSentinel(ClassResourceExhausted)
)

// Kind sentinels, for errors.Is.
var (
	ErrIllegalCharSequence error = kindSentinel(KindIllegalCharSequence)
	ErrBlockNotClosed      error = kindSentinel(KindBlockNotClosed)
	ErrDefSyntax           error = kindSentinel(KindDefSyntax)
	ErrMacroNotDefined     error = kindSentinel(KindMacroNotDefined)
	ErrUnknownMacro        error = kindSentinel(KindUnknownMacro)
	ErrArguments           error = kindSentinel(KindArguments)
	ErrRedefinition        error = kindSentinel(KindRedefinition)
	ErrResourceExhausted   error = kindSentinel(KindResourceExhausted)
)

// ClassOf returns the class of the first *Error in err's chain, or 0.
func ClassOf(err error) Class {
	var e *Error
	if errors.As(err, &e) {
		return e.Class()
	}
	return 0
}
