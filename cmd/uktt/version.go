package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tradetariff/uktt/internal/version"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version information",
	Annotations: map[string]string{skipServices: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Fprintf(cmd.OutOrStdout(), "uktt %s\n", info.Release)
		fmt.Fprintf(cmd.OutOrStdout(), "  Go:     %s\n", info.Go)
		fmt.Fprintf(cmd.OutOrStdout(), "  Commit: %s\n", info.Commit)
		fmt.Fprintf(cmd.OutOrStdout(), "  Date:   %s\n", info.Date)
	},
}
