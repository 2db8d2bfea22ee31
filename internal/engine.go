package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gnolang/jmp/internal/macro"
	"github.com/gnolang/jmp/internal/scanner"
	tt "github.com/gnolang/jmp/internal/types"
)

// Limits caps the work a single run may do. Zero means unlimited.
type Limits struct {
	// MaxExpansions is the number of macro invocations a run may expand.
	MaxExpansions int `yaml:"max_expansions"`
	// MaxSize is the largest the buffer may grow to, in runes.
	MaxSize int `yaml:"max_size"`
}

// Stats describes a finished run.
type Stats struct {
	Expansions int
	OutputLen  int
}

// Engine expands macros.
//
// An engine owns one macro table. Definitions made while processing an
// input stay in the table, so an engine is meant for a single run; create
// a new one per input.
type Engine struct {
	table  *macro.Table
	limits Limits
	logger *zap.Logger
	stats  Stats
}

// Option configures an Engine.
type Option func(e *Engine)

// WithRestrict makes every redefinition of an existing macro an error.
func WithRestrict(restrict bool) Option {
	return func(e *Engine) {
		e.table = macro.NewTable(restrict)
	}
}

// WithLimits sets expansion ceilings.
func WithLimits(limits Limits) Option {
	return func(e *Engine) {
		e.limits = limits
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine with a fresh macro table.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		table:  macro.NewTable(false),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Table returns the macro table, e.g. to predefine macros before Run.
func (e *Engine) Table() *macro.Table { return e.table }

// Stats returns the statistics of the last run.
func (e *Engine) Stats() Stats { return e.stats }

// Run expands every macro in input and returns the result.
//
// Each invocation is replaced in the buffer by its expansion and scanning
// resumes at the start of the replacement, so macros produced by an
// expansion are expanded in turn. Run stops at the first error and returns
// no output in that case. Unless limits are set, an input whose expansion
// never stops makes Run loop forever; use RunContext to bound it in time.
func (e *Engine) Run(input string) (string, error) {
	return e.RunContext(context.Background(), input)
}

// RunContext is Run, stopping with a resource error once ctx is done.
// ctx is checked before every invocation.
func (e *Engine) RunContext(ctx context.Context, input string) (string, error) {
	e.stats = Stats{}

	buf := scanner.NewBuffer(input)
	sc := scanner.New(buf)
	env := &macro.Env{Table: e.table, Scanner: sc}

	var out strings.Builder
	for {
		from := buf.Mark()

		tok, err := sc.Next()
		if err != nil {
			return "", e.fail(err, buf)
		}
		if tok == nil {
			break
		}

		switch tok.Kind {
		case scanner.TokenChar:
			out.WriteString(tok.Text)
			continue
		case scanner.TokenBlock:
			// a block outside an invocation keeps its braces, its escapes resolve
			out.WriteString("{" + tok.Value + "}")
			continue
		}

		if err := ctx.Err(); err != nil {
			return "", e.fail(tt.Interrupted(tok.Pos, err), buf)
		}
		if err := e.expand(env, sc, buf, tok, from); err != nil {
			return "", e.fail(err, buf)
		}
	}

	e.stats.OutputLen = out.Len()
	e.logger.Info("run finished",
		zap.Int("expansions", e.stats.Expansions),
		zap.Int("output_bytes", e.stats.OutputLen))

	return out.String(), nil
}

// expand handles one invocation whose name token has just been read.
func (e *Engine) expand(env *macro.Env, sc *scanner.Scanner, buf *scanner.Buffer, tok *scanner.Token, from int) error {
	if !e.table.Exists(tok.Text) {
		return tt.Errorf(tt.KindMacroNotDefined, tok.Pos, "macro %s is not defined", tok.Text)
	}
	m := e.table.Get(tok.Text)

	args, err := gatherArgs(sc, m, tok)
	if err != nil {
		return err
	}

	result, err := m.Expand(env, args)
	if err != nil {
		var te *tt.Error
		if errors.As(err, &te) && te.Offset < 0 {
			te.Offset = tok.Pos
		}
		return err
	}

	to := buf.Pos()
	if err := buf.Splice(result, from, to); err != nil {
		return fmt.Errorf("expanding %s: %w", tok.Text, err)
	}
	buf.Restore()

	e.stats.Expansions++
	e.logger.Debug("expanded macro",
		zap.String("macro", tok.Text),
		zap.Stringer("kind", m.Kind()),
		zap.Int("from", from),
		zap.Int("to", to),
		zap.Int("length", len(result)))

	return e.checkLimits(buf, tok)
}

// gatherArgs reads the arguments of m, checking each against its kind.
func gatherArgs(sc *scanner.Scanner, m macro.Macro, tok *scanner.Token) ([]*scanner.Token, error) {
	kinds := m.ArgKinds()
	args := make([]*scanner.Token, 0, m.Arity())

	for i := 0; i < m.Arity(); i++ {
		arg, err := sc.NextArgument()
		if err != nil {
			return nil, err
		}
		if arg == nil {
			return nil, tt.Errorf(tt.KindArguments, tok.Pos,
				"too few arguments for %s: want %d, got %d", tok.Text, m.Arity(), i)
		}
		if want := kinds[i]; want != macro.AnyToken && arg.Kind != want {
			return nil, tt.Errorf(tt.KindArguments, arg.Pos,
				"wrong argument kind for %s: argument %d must be a %s, got a %s",
				tok.Text, i+1, want, arg.Kind)
		}
		args = append(args, arg)
	}
	return args, nil
}

func (e *Engine) checkLimits(buf *scanner.Buffer, tok *scanner.Token) error {
	if limit := e.limits.MaxExpansions; limit > 0 && e.stats.Expansions > limit {
		return tt.Errorf(tt.KindResourceExhausted, tok.Pos,
			"more than %d macro expansions, last one %s", limit, tok.Text)
	}
	if limit := e.limits.MaxSize; limit > 0 && buf.Len() > limit {
		return tt.Errorf(tt.KindResourceExhausted, tok.Pos,
			"buffer grew to %d characters, limit is %d", buf.Len(), limit)
	}
	return nil
}

// fail attaches the buffer content to a core error so it can be shown.
func (e *Engine) fail(err error, buf *scanner.Buffer) error {
	var te *tt.Error
	if errors.As(err, &te) && te.Source == "" {
		te.Source = buf.String()
	}
	return err
}
