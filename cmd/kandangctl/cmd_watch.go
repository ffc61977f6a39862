package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kandang-monitor/internal/modules/dashboard/poller"
)

const clearScreen = "\033[H\033[2J"

func newWatchCmd(opts *rootOptions) *cobra.Command {
	intervals := poller.DefaultIntervals()
	var every time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep polling and redraw the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			s := newRemoteSession(opts, cmd.ErrOrStderr(), intervals)
			return runWatch(ctx, cmd, s, every, true)
		},
	}
	cmd.Flags().DurationVar(&intervals.Devices, "devices-every", intervals.Devices, "device, snapshot and coop poll interval")
	cmd.Flags().DurationVar(&intervals.History, "history-every", intervals.History, "history poll interval")
	cmd.Flags().DurationVar(&every, "redraw-every", time.Second, "redraw interval")
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, s *session, every time.Duration, clear bool) error {
	if every <= 0 {
		return fmt.Errorf("redraw interval must be positive, got %s", every)
	}

	if err := s.poller.Start(ctx); err != nil {
		return err
	}
	defer s.poller.Wait()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	out := cmd.OutOrStdout()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if clear {
				fmt.Fprint(out, clearScreen)
			}
			if err := printBoard(out, s.board.Snapshot()); err != nil {
				return err
			}
			printFailures(cmd.ErrOrStderr(), s.failures.drain())
		}
	}
}
