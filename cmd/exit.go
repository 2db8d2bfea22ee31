package cmd

import (
	"errors"
	"fmt"

	tt "github.com/gnolang/jmp/internal/types"
	"github.com/gnolang/jmp/jmp"
)

// Process exit codes.
const (
	ExitOK           = 0
	ExitArgs         = 1
	ExitRead         = 2
	ExitWrite        = 3
	ExitSyntax       = 55
	ExitSemantic     = 56
	ExitRedefinition = 57
	ExitResource     = 58
)

// ArgsError reports an invalid command line.
type ArgsError struct {
	Msg string
}

func (e *ArgsError) Error() string { return e.Msg }

func argsErrorf(format string, args ...any) error {
	return &ArgsError{Msg: fmt.Sprintf(format, args...)}
}

// reportedError marks an error whose diagnostic has already been printed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var ioErr *jmp.IOError
	if errors.As(err, &ioErr) {
		if ioErr.Op == "write" {
			return ExitWrite
		}
		return ExitRead
	}

	switch tt.ClassOf(err) {
	case tt.ClassSyntax:
		return ExitSyntax
	case tt.ClassSemantic:
		return ExitSemantic
	case tt.ClassRedefinition:
		return ExitRedefinition
	case tt.ClassResourceExhausted:
		return ExitResource
	}

	// bad flags, bad configuration, timeouts
	return ExitArgs
}
