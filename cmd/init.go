package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/jmp/jmp"
)

// jmp init
func newInitCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new jmp configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.cfgFile
			if path == "" {
				path = jmp.DefaultConfigFile
			}
			if err := jmp.WriteConfig(path, jmp.DefaultConfig()); err != nil {
				opts.logger.Error("Error initializing config file", zap.Error(err))
				return &jmp.IOError{Op: "write", Path: path, Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created/updated: %s\n", path)
			return nil
		},
	}
}
