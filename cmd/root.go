package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/jmp/formatter"
	tt "github.com/gnolang/jmp/internal/types"
	"github.com/gnolang/jmp/jmp"
)

const defaultTimeout = 5 * time.Minute

// options holds the flag values of one command tree.
type options struct {
	cfgFile string
	timeout time.Duration
	verbose bool
	noColor bool

	input         string
	output        string
	prefix        string
	restrict      bool
	maxExpansions int
	maxSize       int

	logger *zap.Logger
}

// Run executes the jmp command line and returns the process exit code.
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts := &options{}
	rootCmd := newRootCmd(opts)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := checkHelp(rootCmd, args)
	if err == nil {
		err = rootCmd.Execute()
	}
	if opts.logger != nil {
		_ = opts.logger.Sync()
	}

	var reported *reportedError
	if err != nil && !errors.As(err, &reported) {
		fmt.Fprint(stderr, formatter.FormatError(err, "", ""))
	}
	return ExitCode(err)
}

func newRootCmd(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jmp",
		Short: "jmp - a text macro processor",
		Long: `Reads text containing @-escapes, {blocks} and @macro invocations and writes
it with every macro expanded. Input is read from standard input and output
written to standard output unless --input or --output is given.

Builtin macros:
  @def @name {$params} {body}   define a macro
  @let @a @b                    make @a an alias of @b (@null as @b deletes @a)
  @set {-INPUT_SPACES}          drop whitespace from the input ({+INPUT_SPACES} keeps it)
  @null                         expand to nothing`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.noColor {
				color.NoColor = true
			}
			logger, err := newLogger(opts.verbose)
			if err != nil {
				return fmt.Errorf("error creating logger: %w", err)
			}
			opts.logger = logger
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(cmd, opts)
		},
	}
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ArgsError{Msg: err.Error()}
	})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.cfgFile, "config", "", "Configuration file (default "+jmp.DefaultConfigFile+" if present)")
	pf.DurationVar(&opts.timeout, "timeout", defaultTimeout, "Set a timeout for processing, 0 disables it")
	pf.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	pf.BoolVar(&opts.noColor, "no-color", false, "Disable colored diagnostics")
	pf.StringVar(&opts.prefix, "cmd", "", "Text processed before the input")
	pf.BoolVarP(&opts.restrict, "restrict", "r", false, "Forbid redefining any defined macro")
	pf.IntVar(&opts.maxExpansions, "max-expansions", 0, "Maximum number of macro expansions per run, 0 is unlimited")
	pf.IntVar(&opts.maxSize, "max-size", 0, "Maximum buffer size in characters, 0 is unlimited")

	rootCmd.Flags().StringVarP(&opts.input, "input", "i", "", "Input file (default standard input)")
	rootCmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (default standard output)")

	rootCmd.AddCommand(newInitCmd(opts))
	rootCmd.AddCommand(newBatchCmd(opts))
	rootCmd.AddCommand(newWatchCmd(opts))

	return rootCmd
}

// checkHelp rejects --help combined with any other argument of the root
// command. Subcommands keep cobra's behavior.
func checkHelp(rootCmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		return nil
	}
	if c, _, err := rootCmd.Find(args); err == nil && c != rootCmd {
		return nil
	}
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return argsErrorf("--help cannot be combined with other arguments")
		}
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return config.Build()
}

// loadConfig reads the configuration file, if any, and applies the flags
// set on the command line over it.
func (o *options) loadConfig(cmd *cobra.Command) (jmp.Config, error) {
	var config jmp.Config
	flags := cmd.Flags()

	path := o.cfgFile
	if flags.Changed("config") && path == "" {
		return config, argsErrorf("missing value for --config")
	}
	if path == "" {
		if _, err := os.Stat(jmp.DefaultConfigFile); err == nil {
			path = jmp.DefaultConfigFile
		}
	}
	if path != "" {
		c, err := jmp.LoadConfig(path)
		if err != nil {
			return config, argsErrorf("error loading configuration: %v", err)
		}
		config = c
		o.logger.Debug("loaded configuration", zap.String("path", path), zap.Int("macros", len(c.Macros)))
	}

	if flags.Changed("cmd") {
		if o.prefix == "" {
			return config, argsErrorf("missing value for --cmd")
		}
		config.Prefix = o.prefix
	}
	if flags.Changed("restrict") {
		config.Restrict = o.restrict
	}
	if flags.Changed("max-expansions") {
		if o.maxExpansions < 0 {
			return config, argsErrorf("--max-expansions must not be negative")
		}
		config.Limits.MaxExpansions = o.maxExpansions
	}
	if flags.Changed("max-size") {
		if o.maxSize < 0 {
			return config, argsErrorf("--max-size must not be negative")
		}
		config.Limits.MaxSize = o.maxSize
	}
	return config, nil
}

func (o *options) context(parent context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, o.timeout)
}

func runExpand(cmd *cobra.Command, opts *options) error {
	flags := cmd.Flags()
	if flags.Changed("input") && opts.input == "" {
		return argsErrorf("missing value for --input")
	}
	if flags.Changed("output") && opts.output == "" {
		return argsErrorf("missing value for --output")
	}

	config, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}

	source, err := readInput(cmd.InOrStdin(), opts.input)
	if err != nil {
		return err
	}

	ctx, cancel := opts.context(cmd.Context())
	defer cancel()

	proc := jmp.New(config, opts.logger)

	var output string
	err = runWithTimeout(ctx, func() error {
		var err error
		output, err = jmp.ProcessSource(ctx, proc, source)
		return err
	})
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), formatter.FormatError(err, opts.input, config.Prefix+string(source)))
		return &reportedError{err: err}
	}

	if opts.output != "" {
		return jmp.WriteOutput(opts.output, output)
	}
	if _, err := io.WriteString(cmd.OutOrStdout(), output); err != nil {
		return &jmp.IOError{Op: "write", Path: "<stdout>", Err: err}
	}
	return nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, &jmp.IOError{Op: "read", Path: "<stdin>", Err: err}
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &jmp.IOError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}

func runWithTimeout(ctx context.Context, f func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- f()
	}()

	select {
	case <-ctx.Done():
		return tt.Interrupted(-1, ctx.Err())
	case err := <-done:
		return err
	}
}
