package sender

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
)

//go:generate mockery --name TelegramBot

// TelegramMessageLimit is the maximum length of a single Telegram message.
const TelegramMessageLimit = 4096

type TelegramBot interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type Telegram struct {
	bot TelegramBot
}

func NewTelegram(bot TelegramBot) *Telegram {
	return &Telegram{bot: bot}
}

// SendText sends text to the chat whose numeric ID is given in to, split into several messages when
// it exceeds the Telegram limit.
func (s *Telegram) SendText(ctx context.Context, to string, text string) error {
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", to, err)
	}

	for _, chunk := range chunkText(text, TelegramMessageLimit) {
		_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   chunk,
		})
		if err != nil {
			log.Error().Err(err).Int64("chatID", chatID).Msg("failed to send telegram message")
			return err
		}
	}

	return nil
}
