package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oraclelang/oracle/internal/app"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Read chat messages from stdin and answer them as --user",
	Long: "Each input line is routed like a group-chat message. Lines that do\n" +
		"not start with " + app.CommandPrefix + " are prefixed automatically.",
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		out := cmd.OutOrStdout()
		sc := bufio.NewScanner(cmd.InOrStdin())
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			reply, ok := a.Handle(ctx, rootFlags.user, line)
			if !ok {
				reply, _ = a.Handle(ctx, rootFlags.user, app.CommandPrefix+" "+line)
			}
			fmt.Fprintf(out, "%s\n\n", reply)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		return sc.Err()
	})
}
