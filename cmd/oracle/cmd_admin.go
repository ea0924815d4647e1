package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/oraclelang/oracle/internal/app"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage statistics for the current window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			now := time.Now()
			stats, err := a.Limiter().Stats(ctx, now)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), app.FormatStats(stats, a.Limiter().NextReset(now), a.Location()))
			return nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <user>",
	Short: "Reset a user's usage in the current window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Limiter().ResetUser(ctx, args[0], time.Now()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset usage of %s\n", args[0])
			return nil
		})
	},
}

var quotaCmd = &cobra.Command{
	Use:   "quota <user> <n>",
	Short: "Set a user's per-window quota (0 restores the default)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("quota %q: not a number", args[1])
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Limiter().SetUserQuota(ctx, args[0], n, time.Now()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "quota of %s set to %d\n", args[0], n)
			return nil
		})
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear <user>",
	Short: "Delete a user's casting history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.History().Clear(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared history of %s\n", args[0])
			return nil
		})
	},
}
