package macro

import (
	"regexp"
	"sort"
	"strings"

	"github.com/gnolang/jmp/internal/scanner"
	tt "github.com/gnolang/jmp/internal/types"
)

var paramRegex = regexp.MustCompile(`^\$[A-Za-z_][A-Za-z0-9_]*$`)

// Binding is one occurrence of a parameter in a body template.
// Offset and Length are byte positions in the original body.
type Binding struct {
	Offset int
	Length int
	Param  string
	Index  int // position of Param in the parameter list
}

// User is a macro created by @def.
type User struct {
	name     string
	params   []string
	body     string
	bindings []Binding // descending Offset
}

// NewUser creates a user macro. params are names without the '$' and must
// be unique (ParseParams guarantees it).
func NewUser(name string, params []string, body string) *User {
	return &User{
		name:     name,
		params:   params,
		body:     body,
		bindings: findBindings(body, params),
	}
}

func (u *User) Name() string { return u.name }
func (u *User) Kind() Kind { return KindUser }
func (u *User) Arity() int { return len(u.params) }
func (u *User) sealed() {}

// Params returns the parameter names in declaration order.
func (u *User) Params() []string { return u.params }

// Body returns the template.
func (u *User) Body() string { return u.body }

// Bindings returns the parameter occurrences, last one first.
func (u *User) Bindings() []Binding { return u.bindings }

func (u *User) ArgKinds() []scanner.TokenKind {
	return make([]scanner.TokenKind, len(u.params))
}

// Expand substitutes the arguments into the template. The result is not
// expanded any further here.
func (u *User) Expand(_ *Env, args []*scanner.Token) (string, error) {
	if len(args) != len(u.params) {
		return "", tt.Errorf(tt.KindArguments, -1,
			"%s takes %d arguments, got %d", u.name, len(u.params), len(args))
	}

	// bindings run back to front, so offsets not yet used stay valid
	out := u.body
	for _, b := range u.bindings {
		out = out[:b.Offset] + args[b.Index].Arg() + out[b.Offset+b.Length:]
	}
	return out, nil
}

// ParseParams parses the parameter block of @def: zero or more
// whitespace-separated "$identifier" entries. It returns the identifiers
// without the '$'.
func ParseParams(block string) ([]string, error) {
	fields := strings.Fields(block)
	params := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))

	for _, f := range fields {
		if !paramRegex.MatchString(f) {
			return nil, tt.Errorf(tt.KindDefSyntax, -1,
				"@def: %q is not a parameter, expected $name", f)
		}
		name := f[1:]
		if seen[name] {
			return nil, tt.Errorf(tt.KindArguments, -1,
				"@def: duplicate parameter $%s", name)
		}
		seen[name] = true
		params = append(params, name)
	}
	return params, nil
}

// findBindings records every "$identifier" of body naming one of params.
// Only "@@" is skipped as a unit: in "@@$x" the "$x" is still an occurrence,
// and so is the one in "@$x".
func findBindings(body string, params []string) []Binding {
	index := make(map[string]int, len(params))
	for i, p := range params {
		index[p] = i
	}

	var bindings []Binding
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '@':
			if i+1 < len(body) && body[i+1] == '@' {
				i++
			}
		case '$':
			j := i + 1
			if j >= len(body) || !scanner.IsIdentStart(rune(body[j])) {
				continue
			}
			for j < len(body) && scanner.IsIdentChar(rune(body[j])) {
				j++
			}
			name := body[i+1 : j]
			if idx, ok := index[name]; ok {
				bindings = append(bindings, Binding{
					Offset: i,
					Length: j - i,
					Param:  name,
					Index:  idx,
				})
			}
			i = j - 1
		}
	}

	sort.Slice(bindings, func(a, b int) bool {
		return bindings[a].Offset > bindings[b].Offset
	})
	return bindings
}
