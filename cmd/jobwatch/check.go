package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go-jobwatch/internal/models"
)

var checkFlags struct {
	dryRun bool
	target string
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one detection pass over the configured targets",
	RunE:  runCheck,
}

func init() {
	f := checkCmd.Flags()
	f.BoolVar(&checkFlags.dryRun, "dry-run", false, "keep writes in memory and only log the report")
	f.StringVar(&checkFlags.target, "target", "", "check a single target by name")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	rt, err := loadRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	targets, err := selectTargets(rt.cfg, checkFlags.target)
	if err != nil {
		return err
	}

	w, err := rt.watcher(ctx, targets, checkFlags.dryRun)
	if err != nil {
		return err
	}

	result, err := w.Run(ctx)
	if err != nil {
		return err
	}
	printVerdicts(cmd, result)
	return nil
}

func printVerdicts(cmd *cobra.Command, result *models.RunResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n", result.RunID)
	for _, v := range result.Verdicts {
		if v.Error {
			fmt.Fprintf(out, "  ❌ %-20s error: %s\n", v.Target, v.ErrorMessage)
			continue
		}
		marker := "✅"
		if v.Changed {
			marker = "🔥"
		}
		fmt.Fprintf(out, "  %s %-20s %-26s %s\n", marker, v.Target, v.State, v.Reason)
		for _, item := range v.NewlySeenItems {
			fmt.Fprintf(out, "      + %s\n", item)
		}
	}
	if result.Notified {
		fmt.Fprintln(out, "Notification sent.")
	}
}

// signalContext is shared by the long-running commands
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
