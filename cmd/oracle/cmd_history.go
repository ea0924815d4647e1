package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oraclelang/oracle/internal/app"
)

var historyFlags struct {
	limit int
	index int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent castings of --user",
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.IntVarP(&historyFlags.limit, "limit", "n", 0, "Number of castings to list (default from config)")
	f.IntVarP(&historyFlags.index, "index", "i", 0, "Show the full figure of the n-th most recent casting")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		out := cmd.OutOrStdout()
		if historyFlags.index > 0 {
			reply, _ := a.Handle(ctx, rootFlags.user, fmt.Sprintf("%s 历史 %d", app.CommandPrefix, historyFlags.index))
			fmt.Fprintln(out, reply)
			return nil
		}
		n := historyFlags.limit
		if n <= 0 {
			n = a.Config().History.RecentLimit
		}
		fmt.Fprintln(out, a.Oracle().History(ctx, rootFlags.user, n))
		return nil
	})
}
