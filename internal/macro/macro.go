package macro

import (
	"github.com/gnolang/jmp/internal/scanner"
	tt "github.com/gnolang/jmp/internal/types"
)

// Names of the builtin macros.
const (
	NameNull = "@null"
	NameLet  = "@let"
	NameSet  = "@set"
	NameDef  = "@def"
)

// Values accepted by @set.
const (
	IgnoreSpaces = "-INPUT_SPACES"
	AcceptSpaces = "+INPUT_SPACES"
)

// AnyToken in an argument kind list accepts a token of any kind.
const AnyToken scanner.TokenKind = 0

// Kind tags the macro variants.
type Kind int

const (
	KindNull Kind = iota + 1
	KindLet
	KindSet
	KindDef
	KindUser
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindLet:
		return "let"
	case KindSet:
		return "set"
	case KindDef:
		return "def"
	case KindUser:
		return "user"
	default:
		return "unknown"
	}
}

// ModeSetter is the part of the scanner @set needs.
type ModeSetter interface {
	SetMode(mode scanner.SpaceMode)
}

// Env is what an expansion may act on besides its arguments.
type Env struct {
	Table   *Table
	Scanner ModeSetter
}

// Macro is one of Null, Let, Set, Def or *User. The set is closed.
//
// ArgKinds has Arity entries; the engine checks each gathered argument
// against its entry (AnyToken accepts everything) before calling Expand.
type Macro interface {
	Name() string
	Kind() Kind
	Arity() int
	ArgKinds() []scanner.TokenKind
	Expand(env *Env, args []*scanner.Token) (string, error)

	sealed()
}

var (
	_ Macro = Null{}
	_ Macro = Let{}
	_ Macro = Set{}
	_ Macro = Def{}
	_ Macro = (*User)(nil)
)

// Null expands to nothing.
type Null struct{}

func (Null) Name() string { return NameNull }
func (Null) Kind() Kind { return KindNull }
func (Null) Arity() int { return 0 }
func (Null) ArgKinds() []scanner.TokenKind { return nil }
func (Null) sealed() {}

func (Null) Expand(*Env, []*scanner.Token) (string, error) {
	return "", nil
}

// Let binds the first name to the current definition of the second one.
// Binding to @null deletes the first name; binding @null is a no-op.
type Let struct{}

func (Let) Name() string { return NameLet }
func (Let) Kind() Kind { return KindLet }
func (Let) Arity() int { return 2 }
func (Let) sealed() {}

func (Let) ArgKinds() []scanner.TokenKind {
	return []scanner.TokenKind{scanner.TokenMacroName, scanner.TokenMacroName}
}

func (Let) Expand(env *Env, args []*scanner.Token) (string, error) {
	a, b := args[0], args[1]

	if !env.Table.Exists(b.Text) {
		return "", tt.Errorf(tt.KindUnknownMacro, b.Pos, "@let: %s is not defined", b.Text)
	}

	switch {
	case a.Text == NameNull:
		return "", nil
	case b.Text == NameNull:
		return "", at(env.Table.Delete(a.Text), a.Pos)
	default:
		return "", at(env.Table.Set(a.Text, env.Table.Get(b.Text)), a.Pos)
	}
}

// Set switches the scanner whitespace mode.
type Set struct{}

func (Set) Name() string { return NameSet }
func (Set) Kind() Kind { return KindSet }
func (Set) Arity() int { return 1 }
func (Set) sealed() {}

func (Set) ArgKinds() []scanner.TokenKind {
	return []scanner.TokenKind{scanner.TokenBlock}
}

func (Set) Expand(env *Env, args []*scanner.Token) (string, error) {
	switch value := args[0].Text; value {
	case IgnoreSpaces:
		env.Scanner.SetMode(scanner.SpacesIgnore)
	case AcceptSpaces:
		env.Scanner.SetMode(scanner.SpacesAccept)
	default:
		return "", tt.Errorf(tt.KindArguments, args[0].Pos,
			"@set: expected %s or %s, got %q", IgnoreSpaces, AcceptSpaces, value)
	}
	return "", nil
}

// Def registers a user macro.
type Def struct{}

func (Def) Name() string { return NameDef }
func (Def) Kind() Kind { return KindDef }
func (Def) Arity() int { return 3 }
func (Def) sealed() {}

func (Def) ArgKinds() []scanner.TokenKind {
	return []scanner.TokenKind{scanner.TokenMacroName, scanner.TokenBlock, scanner.TokenBlock}
}

func (Def) Expand(env *Env, args []*scanner.Token) (string, error) {
	name, params, body := args[0], args[1], args[2]

	names, err := ParseParams(params.Text)
	if err != nil {
		return "", at(err, params.Pos)
	}
	if name.Text == NameNull {
		return "", nil
	}

	return "", at(env.Table.Set(name.Text, NewUser(name.Text, names, body.Text)), name.Pos)
}

// at fills in the offset of a positionless *tt.Error.
func at(err error, pos int) error {
	if e, ok := err.(*tt.Error); ok && e.Offset < 0 {
		e.Offset = pos
	}
	return err
}
