package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "print the last-known run's counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())

			s, err := readSnapshot(a.cfg.LogDir)
			if err != nil {
				return fmt.Errorf("no recorded run found under %s: %w", a.cfg.LogDir, err)
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"FIELD", "VALUE"})
			t.AppendRow(table.Row{"version", s.Version})
			t.AppendRow(table.Row{"current tick", s.CurrentTick})
			t.AppendRow(table.Row{"elapsed ticks", s.ElapsedTicks})
			t.AppendRow(table.Row{"events fired", s.EventsFired})
			t.AppendRow(table.Row{"run wall seconds", s.RunWallSeconds})
			t.AppendRow(table.Row{"stop reason", s.StopReason})
			t.AppendRow(table.Row{"recorded at", s.RecordedAt})
			t.Render()
			return nil
		},
	}
}
