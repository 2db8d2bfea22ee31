package macro

import (
	"sort"

	tt "github.com/gnolang/jmp/internal/types"
)

// Table maps macro names to definitions.
//
// @def, @set and @let can never be reassigned or deleted. In restrict mode,
// in addition, no existing name may be reassigned.
type Table struct {
	macros    map[string]Macro
	immutable map[string]bool
	restrict  bool
}

// NewTable creates a table holding the builtin macros.
func NewTable(restrict bool) *Table {
	t := &Table{
		macros: map[string]Macro{
			NameNull: Null{},
			NameLet:  Let{},
			NameSet:  Set{},
			NameDef:  Def{},
		},
		immutable: map[string]bool{
			NameDef: true,
			NameSet: true,
			NameLet: true,
		},
		restrict: restrict,
	}
	return t
}

// Restricted reports whether the table was created in restrict mode.
func (t *Table) Restricted() bool { return t.restrict }

// Exists reports whether name is defined.
func (t *Table) Exists(name string) bool {
	_, ok := t.macros[name]
	return ok
}

// Get returns the definition of name, or nil. Check with Exists first.
func (t *Table) Get(name string) Macro {
	return t.macros[name]
}

// Set binds name to m.
func (t *Table) Set(name string, m Macro) error {
	if t.immutable[name] {
		return tt.Errorf(tt.KindRedefinition, -1, "cannot redefine %s", name)
	}
	if t.restrict && t.Exists(name) {
		return tt.Errorf(tt.KindRedefinition, -1, "redefinition forbidden: %s is already defined", name)
	}

	t.macros[name] = m
	return nil
}

// Delete removes name. Removing an undefined name does nothing.
func (t *Table) Delete(name string) error {
	if t.immutable[name] {
		return tt.Errorf(tt.KindRedefinition, -1, "cannot delete %s", name)
	}

	delete(t.macros, name)
	return nil
}

// Define parses params like the parameter block of @def and registers a
// user macro. It goes through Set, so the same redefinition rules apply.
func (t *Table) Define(name, params, body string) error {
	names, err := ParseParams(params)
	if err != nil {
		return err
	}
	if name == NameNull {
		return nil
	}
	return t.Set(name, NewUser(name, names, body))
}

// Names returns the defined names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.macros))
	for name := range t.macros {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
