package notifier

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"go-jobwatch/internal/models"
)

// telegramLimit is the maximum message length Telegram accepts
const telegramLimit = 4096

// sender is the part of *tgbotapi.BotAPI used here
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramNotifier struct {
	bot           sender
	chatID        int64
	includeErrors bool
	//pause between consecutive messages to stay clear of 429s
	pause  time.Duration
	logger zerolog.Logger
}

func NewTelegramNotifier(token string, chatID int64, includeErrors bool, logger zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}

	//turn this on in case of debug
	//bot.Debug = true

	return newTelegramNotifier(bot, chatID, includeErrors, logger), nil
}

func newTelegramNotifier(bot sender, chatID int64, includeErrors bool, logger zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		bot:           bot,
		chatID:        chatID,
		includeErrors: includeErrors,
		pause:         time.Second,
		logger:        logger.With().Str("component", "notifier").Str("channel", "telegram").Logger(),
	}
}

// Notify renders the report and sends every resulting chunk
func (t *TelegramNotifier) Notify(ctx context.Context, r models.Report) error {
	sent := 0
	for _, msg := range Messages(r, t.includeErrors) {
		for _, chunk := range Split(msg, telegramLimit) {
			if sent > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(t.pause):
				}
			}
			if err := t.SendMessage(chunk); err != nil {
				return fmt.Errorf("telegram send failed after %d message(s): %w", sent, err)
			}
			sent++
		}
	}
	t.logger.Info().Str("run_id", r.RunID).Int("messages", sent).Msg("📨 Report sent to Telegram")
	return nil
}

func (t *TelegramNotifier) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := t.bot.Send(msg)
	return err
}

// Ping sends a short status message to confirm the bot can reach the chat
func (t *TelegramNotifier) Ping(targets int) error {
	return t.SendMessage(fmt.Sprintf("ℹ️ jobwatch is up, watching %d target(s).", targets))
}
