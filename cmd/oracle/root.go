package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/oraclelang/oracle/internal/app"
	"github.com/oraclelang/oracle/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

// exitFault is the exit status after a hexagram data-integrity failure.
const exitFault = 2

var rootFlags struct {
	config  string
	user    string
	verbose bool
}

// faulted records whether the oracle reported a data-integrity failure.
var faulted error

var rootCmd = &cobra.Command{
	Use:   "oracle",
	Short: "I Ching divination with usage limits and history",
	Long: "oracle casts I Ching hexagrams from text, coin digits or the time,\n" +
		"interprets them, and keeps per-user quotas and casting history.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&rootFlags.config, "config", "c", "oracle.toml", "Path to the TOML config file")
	f.StringVarP(&rootFlags.user, "user", "u", "local", "User ID the command acts as")
	f.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "Log to stderr")

	rootCmd.AddCommand(castCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(quotaCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.Version = version
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if faulted != nil {
		os.Exit(exitFault)
	}
}

// openApp loads the config named by --config and assembles the App.
func openApp(ctx context.Context, cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load(rootFlags.config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(ctx, cfg,
		app.WithLogger(newLogger(cmd, cfg.Debug)),
		app.WithFaultHandler(func(err error) { faulted = errors.Join(faulted, err) }),
	)
}

func newLogger(cmd *cobra.Command, debug bool) *slog.Logger {
	if !rootFlags.verbose && !debug {
		return slog.New(slog.DiscardHandler)
	}
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// withApp runs fn against a freshly opened App and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(context.Context, *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx)) //nolint:errcheck
	return fn(ctx, a)
}
