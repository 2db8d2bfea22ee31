package internal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	tt "github.com/gnolang/jmp/internal/types"
)

func TestEngine_Run(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "identity",
			input: "Hello, world!\n\tsecond line  ",
			want:  "Hello, world!\n\tsecond line  ",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "blocks keep their braces and resolve escapes",
			input: "a {b {c} @x @{} d",
			want:  "a {b {c} @x {} d",
		},
		{
			name:  "escaped brace in a block",
			input: "{a@}b}",
			want:  "{a}b}",
		},
		{
			name:  "escaped at in a block",
			input: "{a@@b}",
			want:  "{a@b}",
		},
		{
			name:  "block argument keeps its escapes until the rescan",
			input: "@def @m {$x} {[$x]}@m{a@}b}",
			want:  "[a}b]",
		},
		{
			name:  "escapes",
			input: "@@@{x@}@$",
			want:  "@{x}$",
		},
		{
			name:  "macro without parameters",
			input: "@def @m {} {hello}@m",
			want:  "hello",
		},
		{
			name:  "macro with a block argument",
			input: "@def @m {$x} {[$x]}@m{world}",
			want:  "[world]",
		},
		{
			name:  "nested braces and substitution",
			input: "@def @m {$x} {A{$x}B}@m{Z}",
			want:  "A{Z}B",
		},
		{
			name:  "whitespace between arguments",
			input: "@def @m {$a $b} {$b$a}\n@m {1}\t{2}.",
			want:  "\n21.",
		},
		{
			name:  "character arguments",
			input: "@def @pair {$a $b} {($a,$b)}@pair xy",
			want:  "(x,y)",
		},
		{
			name:  "escaped character argument survives the rescan",
			input: "@def @w {$c} {[$c]}@w@{",
			want:  "[{]",
		},
		{
			name:  "macro name argument is expanded after substitution",
			input: "@def @hi {} {hi}@def @call {$f} {<$f>}@call@hi",
			want:  "<hi>",
		},
		{
			name:  "transitive expansion",
			input: "@def @a {$x} {<$x>}@def @b {$y} {@a{$y$y}}@b{q}",
			want:  "<qq>",
		},
		{
			name:  "definition inside an expansion",
			input: "@def @mk {$n} {@def $n {} {made}}@mk@x@x",
			want:  "made",
		},
		{
			name:  "null",
			input: "a@null b",
			want:  "a b",
		},
		{
			name:  "let of an undefined name to null",
			input: "@let @a @null",
			want:  "",
		},
		{
			name:  "let to null target",
			input: "@def @b {} {x}@let @null @b@null",
			want:  "",
		},
		{
			name:  "let copies the current binding",
			input: "@def @a {} {1}@let @b @a@def @a {} {2}@b@a",
			want:  "12",
		},
		{
			name:  "let aliases a builtin",
			input: "@let @define @def@define @m {} {ok}@m",
			want:  "ok",
		},
		{
			name:  "redefinition without restrict",
			input: "@def @m {} {1}@m@def @m {} {2}@m",
			want:  "12",
		},
		{
			name:  "ignore and accept whitespace",
			input: "@set {-INPUT_SPACES}a b\n c @set {+INPUT_SPACES} d e",
			want:  "abc d e",
		},
		{
			name:  "whitespace inside blocks is kept in ignore mode",
			input: "@set {-INPUT_SPACES} @def @m {$x} {{$x}} @m { a b }",
			want:  "{ a b }",
		},
		{
			name:  "escaped dollar before a parameter",
			input: "@def @price {$x} {@$$x}@price{5}",
			want:  "$5",
		},
		{
			name:  "parameter after an at sign is substituted and rescanned",
			input: "@def @Z {} {zed}@def @m {$x} {@$x}@m{Z}",
			want:  "zed",
		},
		{
			name:  "escaped at before a parameter",
			input: "@def @m {$x} {@@$x}@m{v}",
			want:  "@v",
		},
		{
			name:  "multibyte text",
			input: "čau @def @m {} {žluť}@m!",
			want:  "čau žluť!",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NewEngine().Run(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEngine_RunErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		input     string
		restrict  bool
		wantKind  error
		wantClass error
	}{
		{
			name:      "undefined macro",
			input:     "x @nope",
			wantKind:  tt.ErrMacroNotDefined,
			wantClass: tt.ErrSemantic,
		},
		{
			name:      "let with undefined source",
			input:     "@let @a @b",
			wantKind:  tt.ErrUnknownMacro,
			wantClass: tt.ErrSemantic,
		},
		{
			name:      "def of def",
			input:     "@def @def {} {}",
			wantKind:  tt.ErrRedefinition,
			wantClass: tt.ErrRedefinitionClass,
		},
		{
			name:      "def of def under restrict",
			input:     "@def @def {} {}",
			restrict:  true,
			wantKind:  tt.ErrRedefinition,
			wantClass: tt.ErrRedefinitionClass,
		},
		{
			name:      "let over a builtin",
			input:     "@let @set @null",
			wantKind:  tt.ErrRedefinition,
			wantClass: tt.ErrRedefinitionClass,
		},
		{
			name:      "user redefinition under restrict",
			input:     "@def @m {} {1}@def @m {} {2}",
			restrict:  true,
			wantKind:  tt.ErrRedefinition,
			wantClass: tt.ErrRedefinitionClass,
		},
		{
			name:      "let over an existing name under restrict",
			input:     "@def @a {} {1}@def @b {} {2}@let @a @b",
			restrict:  true,
			wantKind:  tt.ErrRedefinition,
			wantClass: tt.ErrRedefinitionClass,
		},
		{
			name:      "let over an alias under restrict",
			input:     "@let @x @def@let @x @set",
			restrict:  true,
			wantKind:  tt.ErrRedefinition,
			wantClass: tt.ErrRedefinitionClass,
		},
		{
			name:      "unclosed body block",
			input:     "@def @m {$x} {body",
			wantKind:  tt.ErrBlockNotClosed,
			wantClass: tt.ErrSyntax,
		},
		{
			name:      "bare closing brace",
			input:     "abc}",
			wantKind:  tt.ErrIllegalCharSequence,
			wantClass: tt.ErrSyntax,
		},
		{
			name:      "bare dollar produced by an expansion",
			input:     "@def @m {$x} {$y}@m{1}",
			wantKind:  tt.ErrIllegalCharSequence,
			wantClass: tt.ErrSyntax,
		},
		{
			name:      "malformed parameter block",
			input:     "@def @m {x} {}",
			wantKind:  tt.ErrDefSyntax,
			wantClass: tt.ErrSyntax,
		},
		{
			name:      "duplicate parameter",
			input:     "@def @m {$x $x} {}",
			wantKind:  tt.ErrArguments,
			wantClass: tt.ErrSemantic,
		},
		{
			name:      "too few arguments",
			input:     "@def @m {$a $b} {}@m{1}",
			wantKind:  tt.ErrArguments,
			wantClass: tt.ErrSemantic,
		},
		{
			name:      "wrong argument kind",
			input:     "@def m {} {hello}",
			wantKind:  tt.ErrArguments,
			wantClass: tt.ErrSemantic,
		},
		{
			name:      "set with a name instead of a block",
			input:     "@set @null",
			wantKind:  tt.ErrArguments,
			wantClass: tt.ErrSemantic,
		},
		{
			name:      "set with an unknown value",
			input:     "@set {INPUT_SPACES}",
			wantKind:  tt.ErrArguments,
			wantClass: tt.ErrSemantic,
		},
		{
			name:      "deleted macro",
			input:     "@def @a {} {1}@let @a @null@a",
			wantKind:  tt.ErrMacroNotDefined,
			wantClass: tt.ErrSemantic,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NewEngine(WithRestrict(tc.restrict)).Run(tc.input)
			require.Error(t, err)
			assert.Empty(t, got)
			assert.ErrorIs(t, err, tc.wantKind)
			assert.ErrorIs(t, err, tc.wantClass)
		})
	}
}

func TestEngine_ErrorCarriesBuffer(t *testing.T) {
	t.Parallel()
	_, err := NewEngine().Run("ab@def @m {} {@x}@m")

	var e *tt.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, tt.KindMacroNotDefined, e.Kind)
	assert.Equal(t, "ab@x", e.Source)
	assert.Equal(t, 2, e.Offset)
}

func TestEngine_RedefinitionErrorOffset(t *testing.T) {
	t.Parallel()
	_, err := NewEngine(WithRestrict(true)).Run("@def @m {} {}\n@def @m {} {}")

	var e *tt.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, tt.KindRedefinition, e.Kind)
	assert.Equal(t, 6, e.Offset)
	assert.Equal(t, "\n@def @m {} {}", e.Source)
}

func TestEngine_Limits(t *testing.T) {
	t.Parallel()

	t.Run("expansion count", func(t *testing.T) {
		t.Parallel()
		e := NewEngine(WithLimits(Limits{MaxExpansions: 100}))
		_, err := e.Run("@def @loop {} {@loop}@loop")
		assert.ErrorIs(t, err, tt.ErrResourceExhausted)
		assert.ErrorIs(t, err, tt.ErrResourceClass)
	})

	t.Run("buffer size", func(t *testing.T) {
		t.Parallel()
		e := NewEngine(WithLimits(Limits{MaxSize: 50}))
		_, err := e.Run("@def @grow {} {x@grow}@grow")
		assert.ErrorIs(t, err, tt.ErrResourceExhausted)
	})

	t.Run("finite expansion under the limit", func(t *testing.T) {
		t.Parallel()
		e := NewEngine(WithLimits(Limits{MaxExpansions: 3}))
		got, err := e.Run("@def @a {} {A}@a@a")
		require.NoError(t, err)
		assert.Equal(t, "AA", got)
		assert.Equal(t, 3, e.Stats().Expansions)
	})
}

func TestEngine_RunContext(t *testing.T) {
	t.Parallel()

	t.Run("deadline stops an endless expansion", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		e := NewEngine()
		_, err := e.RunContext(ctx, "@def @loop {} {@loop}@loop")
		assert.ErrorIs(t, err, tt.ErrResourceExhausted)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("cancelled before the first invocation", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		e := NewEngine()
		_, err := e.RunContext(ctx, "ab@def @m {} {}")
		assert.ErrorIs(t, err, context.Canceled)
		var te *tt.Error
		require.ErrorAs(t, err, &te)
		assert.Equal(t, 2, te.Offset)
		assert.Equal(t, 0, e.Stats().Expansions)
	})

	t.Run("plain text ignores the context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		got, err := NewEngine().RunContext(ctx, "no {macros} here")
		require.NoError(t, err)
		assert.Equal(t, "no {macros} here", got)
	})
}

func TestEngine_PredefinedMacros(t *testing.T) {
	t.Parallel()
	e := NewEngine(WithRestrict(true))
	require.NoError(t, e.Table().Define("@greet", "$who", "Hello, $who!"))

	got, err := e.Run("@greet{world}")
	require.NoError(t, err)
	assert.Equal(t, "Hello, world!", got)

	_, err = e.Run("@def @greet {} {}")
	assert.ErrorIs(t, err, tt.ErrRedefinition)
}

func TestEngine_Logging(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.DebugLevel)
	e := NewEngine(WithLogger(zap.New(core)))

	_, err := e.Run("@def @m {} {x}@m@m")
	require.NoError(t, err)

	expanded := logs.FilterMessage("expanded macro").All()
	require.Len(t, expanded, 3)
	assert.Equal(t, "@def", expanded[0].ContextMap()["macro"])
	assert.Equal(t, "@m", expanded[1].ContextMap()["macro"])
	assert.Equal(t, "user", expanded[1].ContextMap()["kind"])
	finished := logs.FilterMessage("run finished").All()
	require.Len(t, finished, 1)
	assert.Equal(t, zapcore.InfoLevel, finished[0].Level)
	assert.Equal(t, int64(3), finished[0].ContextMap()["expansions"])
}
