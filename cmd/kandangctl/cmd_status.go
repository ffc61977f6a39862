package main

import (
	"github.com/spf13/cobra"

	"kandang-monitor/internal/modules/dashboard/poller"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the board once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newRemoteSession(opts, cmd.ErrOrStderr(), poller.DefaultIntervals())
			return runStatus(cmd, s)
		},
	}
}

func runStatus(cmd *cobra.Command, s *session) error {
	failed := s.refresh(cmd.Context())
	printFailures(cmd.ErrOrStderr(), failed)
	return printBoard(cmd.OutOrStdout(), s.board.Snapshot())
}
