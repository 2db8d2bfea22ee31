package jmp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/gnolang/jmp/internal"
	tt "github.com/gnolang/jmp/internal/types"
)

// DefaultExtension is the extension of files processed by ProcessPath.
const DefaultExtension = ".jmp"

// OutputExtension replaces the input extension in ProcessPath outputs.
const OutputExtension = ".out"

// Expander turns input text into fully expanded output. It gives up with
// an error once ctx is done.
type Expander interface {
	Expand(ctx context.Context, input string) (string, error)
}

var _ Expander = (*Processor)(nil)

// Processor runs the macro engine with a fixed configuration. Every call
// to Expand starts from a fresh macro table.
type Processor struct {
	config Config
	logger *zap.Logger
}

// New creates a processor. A nil logger discards log output.
func New(config Config, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		config: config,
		logger: logger,
	}
}

// Config returns the processor configuration.
func (p *Processor) Config() Config { return p.config }

// Expand processes the configured prefix followed by input.
func (p *Processor) Expand(ctx context.Context, input string) (string, error) {
	engine := internal.NewEngine(
		internal.WithRestrict(p.config.Restrict),
		internal.WithLimits(p.config.Limits),
		internal.WithLogger(p.logger),
	)

	for _, m := range p.config.Macros {
		if err := engine.Table().Define(macroName(m.Name), m.Params, m.Body); err != nil {
			return "", fmt.Errorf("predefined macro %s: %w", m.Name, err)
		}
	}

	return engine.RunContext(ctx, p.config.Prefix+input)
}

// IOError reports a failure reading input or writing output, as opposed to
// a failure of the processing itself.
type IOError struct {
	Op   string // "read" or "write"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ProcessSource expands source.
func ProcessSource(ctx context.Context, exp Expander, source []byte) (string, error) {
	return exp.Expand(ctx, string(source))
}

// ProcessFile expands the content of the file at path.
func ProcessFile(ctx context.Context, exp Expander, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &IOError{Op: "read", Path: path, Err: err}
	}
	return exp.Expand(ctx, string(data))
}

// ProcessReader expands everything r yields. name is used in errors.
func ProcessReader(ctx context.Context, exp Expander, r io.Reader, name string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", &IOError{Op: "read", Path: name, Err: err}
	}
	return exp.Expand(ctx, string(data))
}

// WriteOutput writes output to path.
func WriteOutput(path, output string) error {
	if err := os.WriteFile(path, []byte(output), 0o644); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// OutputPath is where ProcessPath writes the result for input.
func OutputPath(input string) string {
	ext := filepath.Ext(input)
	if ext == OutputExtension {
		return input + OutputExtension
	}
	return strings.TrimSuffix(input, ext) + OutputExtension
}

// Result is the outcome for one file of ProcessPath.
type Result struct {
	Path    string
	Output  string // path of the written output, empty on failure
	Skipped bool   // the cached output was up to date
	Err     error
}

// BatchOptions configures ProcessPath.
type BatchOptions struct {
	// Extension selects the files to process. Defaults to DefaultExtension.
	Extension string
	// Workers bounds the files processed at once. Defaults to the CPU count.
	Workers int
	// Progress receives a progress bar when not nil.
	Progress io.Writer
	// Cache, when set, skips inputs expanded before with the same CacheKey
	// (see ConfigHash) and records the new ones.
	Cache    *Cache
	CacheKey string
}

// ProcessPath expands every file under root that has the configured
// extension and writes each result next to its input (see OutputPath).
// A failure of one file does not stop the others; it is recorded in that
// file's Result. The error return is for failures of the walk itself and
// for cancellation, reported as a resource error wrapping ctx.Err() as soon
// as ctx is done, without waiting for the files still being expanded.
func ProcessPath(
	ctx context.Context,
	logger *zap.Logger,
	exp Expander,
	root string,
	opts BatchOptions,
) ([]Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", root, err)
	}

	var files []string
	if info.IsDir() {
		err = filepath.Walk(root, func(path string, fileInfo os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !fileInfo.IsDir() && filepath.Ext(path) == opts.Extension {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error walking directory %s: %w", root, err)
		}
	} else {
		files = append(files, root)
	}
	sort.Strings(files)

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription(root),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}

	results := make([]Result, len(files))
	resultChan := make(chan int, len(files))

	// limit the number of workers
	sem := make(chan struct{}, opts.Workers)

	cancelled := func() ([]Result, error) {
		return nil, tt.Interrupted(-1, ctx.Err())
	}
	for i, path := range files {
		if ctx.Err() != nil {
			return cancelled()
		}
		select {
		case <-ctx.Done():
			return cancelled()
		case sem <- struct{}{}:
		}

		go func(i int, path string) {
			defer func() { <-sem }()

			results[i] = processOne(ctx, exp, path, opts)
			switch {
			case results[i].Err != nil:
				logger.Error("Error processing file", zap.String("file", path), zap.Error(results[i].Err))
			case results[i].Skipped:
				logger.Debug("Skipped unchanged file", zap.String("file", path))
			default:
				logger.Debug("Processed file", zap.String("file", path), zap.String("output", results[i].Output))
			}
			resultChan <- i
		}(i, path)
	}

	for range files {
		select {
		case <-ctx.Done():
			return cancelled()
		case <-resultChan:
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	// a file stopped by ctx reports it in its Result; report it once instead
	if ctx.Err() != nil {
		return cancelled()
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if opts.Cache != nil {
		if err := opts.Cache.Save(); err != nil {
			logger.Warn("Error saving cache", zap.String("dir", opts.Cache.Dir), zap.Error(err))
		}
	}

	return results, nil
}

func processOne(ctx context.Context, exp Expander, path string, opts BatchOptions) Result {
	res := Result{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		res.Err = &IOError{Op: "read", Path: path, Err: err}
		return res
	}

	inputHash := hashOf(data)
	if opts.Cache != nil {
		if out, ok := opts.Cache.Lookup(path, inputHash, opts.CacheKey); ok {
			res.Output = out
			res.Skipped = true
			return res
		}
	}

	output, err := ProcessSource(ctx, exp, data)
	if err != nil {
		res.Err = err
		return res
	}

	outPath := OutputPath(path)
	if err := WriteOutput(outPath, output); err != nil {
		res.Err = err
		return res
	}
	res.Output = outPath

	if opts.Cache != nil {
		opts.Cache.Store(path, inputHash, opts.CacheKey, outPath)
	}
	return res
}
