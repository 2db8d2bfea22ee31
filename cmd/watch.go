package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/jmp/jmp"
)

// jmp watch
func newWatchCmd(opts *options) *cobra.Command {
	var output string

	watchCmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Expand FILE again every time it changes",
		Long: `Expands FILE, then watches it and expands it again after every write,
until interrupted. --timeout does not apply.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return &jmp.IOError{Op: "read", Path: path, Err: err}
			}

			config, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			proc := jmp.New(config, opts.logger)
			return jmp.Watch(ctx, opts.logger, proc, path, func(out string, err error) {
				if err != nil {
					printDiagnostic(cmd.ErrOrStderr(), err, path, config.Prefix+readSource(path))
					return
				}
				if output == "" {
					fmt.Fprint(cmd.OutOrStdout(), out)
					return
				}
				if err := jmp.WriteOutput(output, out); err != nil {
					opts.logger.Error("Error writing output", zap.String("file", output), zap.Error(err))
					return
				}
				opts.logger.Info("Output written", zap.String("file", output))
			})
		},
	}

	watchCmd.Flags().StringVarP(&output, "output", "o", "", "Output file rewritten on every change (default standard output)")

	return watchCmd
}
