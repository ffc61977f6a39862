package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kandang-monitor/internal/modules/dashboard/poller"
	"kandang-monitor/internal/types"
)

func newToggleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "toggle <device>",
		Short:     "Flip a device on or off",
		Long:      `Reads the device's current status, sends the opposite action and prints the status read back afterwards.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: types.Devices,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newRemoteSession(opts, cmd.ErrOrStderr(), poller.DefaultIntervals())
			return runToggle(cmd, s, args[0])
		},
	}
}

func runToggle(cmd *cobra.Command, s *session, device string) error {
	if !s.board.HasDevice(device) {
		return fmt.Errorf("%w: %q", poller.ErrUnknownDevice, device)
	}
	ctx := cmd.Context()

	// The action comes from the current button label, so read it first.
	s.poller.RefreshAll(ctx)
	s.poller.Wait()
	s.failures.drain()

	if err := s.poller.Toggle(ctx, device); err != nil {
		return err
	}
	if failed := s.failures.drain(); len(failed) > 0 {
		printFailures(cmd.ErrOrStderr(), failed)
		return fmt.Errorf("toggle %s did not complete", device)
	}

	card, _ := s.board.Snapshot().Device(device)
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", device, card.StatusText)
	return nil
}
