package handler

import (
	"context"
	"fmt"
	"github.com/aliaksandrluz19921520/whatsapp/internal/core/domain"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
)

type FileResolver interface {
	GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error)
	FileDownloadLink(f *models.File) string
}

// Telegram turns bot updates into inbound messages for the pipeline.
type Telegram struct {
	pipeline Pipeline
	files    FileResolver
	timeout  time.Duration
}

func NewTelegram(pipeline Pipeline, files FileResolver, timeout time.Duration) *Telegram {
	return &Telegram{pipeline: pipeline, files: files, timeout: timeout}
}

// Handle matches the go-telegram default handler signature. The pipeline runs in the background so
// the update loop is never blocked.
func (h *Telegram) Handle(_ context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}

	msg := update.Message

	text := msg.Text
	if len(msg.Photo) > 0 {
		text = msg.Caption
	}

	log.Debug().
		Str("user", getUserNameFromMessage(msg.From)).
		Str("message", text).
		Int("photos", len(msg.Photo)).
		Msg("received telegram message")

	inbound := &domain.InboundMessage{
		ID:        strconv.Itoa(msg.ID),
		Sender:    strconv.FormatInt(msg.Chat.ID, 10),
		Body:      text,
		Transport: domain.Telegram,
	}

	go func() {
		ctx := context.Background()
		if h.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.timeout)
			defer cancel()
		}

		if len(msg.Photo) > 0 {
			url, err := h.imageURL(ctx, msg.Photo)
			if err != nil {
				log.Error().Err(err).Int64("chatID", msg.Chat.ID).Msg("error getting file from telegram api")
				return
			}
			inbound.MediaURL = url
		}

		if _, err := h.pipeline.Handle(ctx, inbound); err != nil {
			log.Err(err).Int64("chatID", msg.Chat.ID).Msg("failed to answer telegram message")
		}
	}()
}

func (h *Telegram) imageURL(ctx context.Context, photos []models.PhotoSize) (string, error) {
	f, err := h.files.GetFile(ctx, &bot.GetFileParams{FileID: findMediumSizedImage(photos)})
	if err != nil {
		return "", fmt.Errorf("get file: %w", err)
	}

	return h.files.FileDownloadLink(f), nil
}

const minSize = 80000
const maxSize = 130000

func findMediumSizedImage(photos []models.PhotoSize) string {
	for _, photo := range photos {
		if photo.FileSize > minSize && photo.FileSize < maxSize {
			return photo.FileID
		}
	}

	return photos[len(photos)-1].FileID
}

func getUserNameFromMessage(user *models.User) string {
	if user == nil {
		return ""
	}

	if user.Username == "" {
		return user.FirstName
	}

	return "@" + user.Username
}
