package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/pevans/dealfeed/history"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the listing until interrupted",
	RunE:  runAction,
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single poll cycle and exit",
	Long:  "once runs one probe and, if the listing changed, one full rebuild. It exits non-zero when the cycle failed.",
	RunE:  onceAction,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(onceCmd)
}

func runAction(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.newPoller()
	if err != nil {
		return err
	}

	// SIGTERM/SIGINT: graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = p.Run(ctx)
	if errors.Is(err, context.Canceled) {
		a.logger.Info("shut down")
		return nil
	}
	return err
}

func onceAction(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.newPoller()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cycle := p.RunOnce(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", cycle.CycleID, cycle.Outcome)

	if cycle.Outcome == history.OutcomeFailed {
		return fmt.Errorf("cycle failed: %s", cycle.Error)
	}
	return nil
}
