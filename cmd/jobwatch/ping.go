package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-jobwatch/internal/notifier"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Send a test message to the configured Telegram chat",
	RunE:  runPing,
}

func runPing(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	if !rt.cfg.HasTelegram() {
		return fmt.Errorf("telegram is not configured (TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID)")
	}
	tg, err := notifier.NewTelegramNotifier(rt.cfg.TelegramToken, rt.cfg.TelegramChatID, rt.cfg.NotifyErrors, rt.logger)
	if err != nil {
		return err
	}
	if err := tg.Ping(len(rt.cfg.Targets)); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✅ Telegram message sent")
	return nil
}
