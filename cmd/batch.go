package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/jmp/formatter"
	"github.com/gnolang/jmp/jmp"
)

// jmp batch
func newBatchCmd(opts *options) *cobra.Command {
	var (
		extension  string
		workers    int
		noProgress bool
		cacheDir   string
	)

	batchCmd := &cobra.Command{
		Use:   "batch [paths...]",
		Short: "Expand every matching file under the given paths",
		Long: `Expands every file with the --ext extension under each path and writes the
result next to it with the .out extension. Every file starts from a fresh
macro table. A failing file does not stop the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := opts.context(cmd.Context())
			defer cancel()

			batchOpts := jmp.BatchOptions{
				Extension: extension,
				Workers:   workers,
			}
			if !noProgress {
				batchOpts.Progress = cmd.ErrOrStderr()
			}
			if cacheDir != "" {
				cache, err := jmp.OpenCache(cacheDir)
				if err != nil {
					return argsErrorf("%v", err)
				}
				batchOpts.Cache = cache
				batchOpts.CacheKey = jmp.ConfigHash(config)
			}

			proc := jmp.New(config, opts.logger)
			return runBatch(ctx, cmd, opts.logger, proc, config.Prefix, args, batchOpts)
		},
	}

	batchCmd.Flags().StringVar(&extension, "ext", jmp.DefaultExtension, "Extension of the files to expand")
	batchCmd.Flags().IntVar(&workers, "workers", 0, "Number of files expanded at once (default number of CPUs)")
	batchCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Do not show the progress bar")
	batchCmd.Flags().StringVar(&cacheDir, "cache", "", "Directory of a cache that skips unchanged files")

	return batchCmd
}

func runBatch(
	ctx context.Context,
	cmd *cobra.Command,
	logger *zap.Logger,
	exp jmp.Expander,
	prefix string,
	paths []string,
	batchOpts jmp.BatchOptions,
) error {
	var (
		firstErr  error
		processed int
		failed    int
		skipped   int
	)

	for _, path := range paths {
		results, err := jmp.ProcessPath(ctx, logger, exp, path, batchOpts)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return &jmp.IOError{Op: "read", Path: path, Err: err}
			}
			return err
		}

		for _, r := range results {
			processed++
			if r.Skipped {
				skipped++
			}
			if r.Err == nil {
				continue
			}
			failed++
			if firstErr == nil {
				firstErr = r.Err
			}
			printDiagnostic(cmd.ErrOrStderr(), r.Err, r.Path, prefix+readSource(r.Path))
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Expanded %d file(s), %d failed", processed-failed-skipped, failed)
	if skipped > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), ", %d unchanged", skipped)
	}
	fmt.Fprintln(cmd.OutOrStdout())

	if firstErr != nil {
		return &reportedError{err: firstErr}
	}
	return nil
}

func printDiagnostic(w io.Writer, err error, filename, input string) {
	fmt.Fprint(w, formatter.FormatError(err, filename, input))
}

// readSource returns the content of path, or "" when it cannot be read.
func readSource(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}
