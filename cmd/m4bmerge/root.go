package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var debugFlag bool
	var flags mergeFlags

	ctx := newCommandContext(&configFlag, &debugFlag)

	rootCmd := &cobra.Command{
		Use:           "m4bmerge [paths...] -o <output>",
		Short:         "Merge audio files into a single chaptered m4b audiobook",
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, ctx, args, flags)
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debugging output mode")

	bindMergeFlags(rootCmd.Flags(), &flags)

	rootCmd.AddCommand(newInspectCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

func printBanner(cmd *cobra.Command) {
	fmt.Fprintf(cmd.OutOrStdout(), "m4bmerge v%s\n", version)
}
