// Package internal provides the expansion engine of the jmp macro processor.
//
// The engine reads tokens from a scanner over a rewritable buffer. Plain
// characters go straight to the output. A macro name is looked up in the
// macro table, its arguments are read, and the invocation (name and
// arguments) is replaced in the buffer by the expansion. Scanning resumes
// at the start of the replacement, so macros in the expansion are handled
// the same way. There is no recursion; an expansion that keeps producing
// invocations of itself keeps the engine busy until a limit stops it.
//
// Sub-packages:
//
// types: the error taxonomy shared by the whole processor.
//
// scanner: the Buffer and the character-level Scanner.
//
// macro: the macro Table and the builtin and user-defined macros.
//
// Usage:
//
//	engine := internal.NewEngine(internal.WithRestrict(true))
//	if err := engine.Table().Define("@greet", "$who", "Hello, $who!"); err != nil {
//	    // handle error
//	}
//
//	out, err := engine.Run("@greet{world}")
//	if err != nil {
//	    // handle error
//	}
//
// This package is intended for internal use and is reached through the jmp
// package.
package internal
