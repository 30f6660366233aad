package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/latticesim/kernel/internal/buildinfo"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print build version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", buildinfo.AppName, buildinfo.Version, buildinfo.Commit)
			return nil
		},
	}
}
