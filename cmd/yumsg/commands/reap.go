package commands

import (
	"github.com/spf13/cobra"

	"yumsg/internal/reaper"
)

func reapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Run one StaleReaper sweep immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := reaper.New(chatStore, pendingTable, log)
			r.SweepOnce()
			return nil
		},
	}
}
