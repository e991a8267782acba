package service

import (
	"context"
	"errors"
	"fmt"
	"github.com/aliaksandrluz19921520/whatsapp/internal/core/domain"
	"github.com/aliaksandrluz19921520/whatsapp/internal/core/port"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ImageMode string

const (
	NativeImage ImageMode = "native"
	OCRImage    ImageMode = "ocr"
)

func ParseImageMode(s string) (ImageMode, error) {
	switch ImageMode(s) {
	case NativeImage, OCRImage:
		return ImageMode(s), nil
	case "":
		return NativeImage, nil
	default:
		return "", fmt.Errorf("unknown image mode %q", s)
	}
}

const imageQuestion = "The question was provided as a screenshot."

// Pipeline answers one inbound message and delivers the reply. It keeps no state between messages.
type Pipeline struct {
	fetcher       port.MediaFetcher
	extractor     port.TextExtractor
	filter        *LineFilter
	prompts       *PromptBuilder
	answerer      *Answerer
	sender        port.TextSender
	authorizer    Authorizer
	imageMode     ImageMode
	mediaTimeout  time.Duration
	notFoundReply string

	l *zerolog.Logger
}

type PipelineParams struct {
	Fetcher port.MediaFetcher
	// Extractor and Filter are only used with OCRImage.
	Extractor    port.TextExtractor
	Filter       *LineFilter
	Prompts      *PromptBuilder
	Answerer     *Answerer
	Sender       port.TextSender
	// Authorizer is optional. Without one every sender is served.
	Authorizer   Authorizer
	ImageMode    ImageMode
	MediaTimeout time.Duration
	// NotFoundReply is sent instead of failing when the media is gone. Empty disables it.
	NotFoundReply string
	Name          string
}

func NewPipeline(p PipelineParams) (*Pipeline, error) {
	var errs []error

	if p.Fetcher == nil {
		errs = append(errs, errors.New("missing media fetcher"))
	}
	if p.Prompts == nil {
		errs = append(errs, errors.New("missing prompt builder"))
	}
	if p.Answerer == nil {
		errs = append(errs, errors.New("missing answerer"))
	}
	if p.Sender == nil {
		errs = append(errs, errors.New("missing text sender"))
	}
	if p.ImageMode == OCRImage && (p.Extractor == nil || p.Filter == nil) {
		errs = append(errs, errors.New("ocr image mode requires a text extractor and a line filter"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if p.ImageMode == "" {
		p.ImageMode = NativeImage
	}

	logger := log.With().
		Str("pipeline", p.Name).
		Str("imageMode", string(p.ImageMode)).
		Logger()

	return &Pipeline{
		fetcher:       p.Fetcher,
		extractor:     p.Extractor,
		filter:        p.Filter,
		prompts:       p.Prompts,
		answerer:      p.Answerer,
		sender:        p.Sender,
		authorizer:    p.Authorizer,
		imageMode:     p.ImageMode,
		mediaTimeout:  p.MediaTimeout,
		notFoundReply: p.NotFoundReply,
		l:             &logger,
	}, nil
}

// Handle runs fetch, extraction, prompting, answering and delivery for a single message.
func (p *Pipeline) Handle(ctx context.Context, message *domain.InboundMessage) (domain.Reply, error) {
	l := p.l.With().
		Str("requestId", requestID()).
		Str("messageId", message.ID).
		Str("sender", message.Sender).
		Str("transport", string(message.Transport)).
		Logger()

	l.Debug().Str("body", message.Body).
		Str("media", message.MediaURL).
		Msg("handling message")

	if err := message.Validate(); err != nil {
		l.Debug().Err(err).Msg("rejecting message")
		return domain.Reply{}, err
	}

	if p.authorizer != nil && !p.authorizer.IsAuthorized(ctx, message.Sender) {
		return domain.Reply{}, domain.ErrUnauthorized
	}

	text, err := p.answer(ctx, &l, message)
	if err != nil {
		l.Error().Err(err).Msg("failed to answer message")
		return domain.Reply{}, err
	}

	if text == "" {
		l.Error().Msg("model returned an empty answer")
		return domain.Reply{}, domain.ErrEmptyAnswer
	}

	if err := p.sender.SendText(ctx, message.Sender, text); err != nil {
		l.Error().Err(err).Msg(domain.ErrSendingReplyFailed.Error())
		return domain.Reply{}, fmt.Errorf("%w: %w", domain.ErrSendingReplyFailed, err)
	}

	l.Info().Int("length", len(text)).Msg("reply sent")

	return domain.Reply{To: message.Sender, Text: text}, nil
}

func (p *Pipeline) answer(ctx context.Context, l *zerolog.Logger, message *domain.InboundMessage) (string, error) {
	if !message.HasMedia() {
		question := strings.TrimSpace(message.Body)
		return p.answerer.Answer(ctx, question, p.prompts.TextRequest(question))
	}

	media, err := p.fetch(ctx, message)
	if errors.Is(err, domain.ErrMediaNotFound) && p.notFoundReply != "" {
		l.Info().Str("media", message.MediaURL).Msg("media not found, replying with sentinel")
		return p.notFoundReply, nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrMediaFetch, err)
	}

	l.Debug().Int("bytes", len(media.Data)).Str("mimeType", media.MIMEType).Msg("media fetched")

	if p.imageMode == OCRImage {
		question, err := p.extractQuestion(ctx, l, message, media)
		if err != nil {
			return "", err
		}

		return p.answerer.Answer(ctx, question, p.prompts.TextRequest(question))
	}

	question := strings.TrimSpace(message.Body)
	if question == "" {
		question = imageQuestion
	}

	return p.answerer.Answer(ctx, question, p.prompts.ImageRequest(message.Body, media))
}

func (p *Pipeline) fetch(ctx context.Context, message *domain.InboundMessage) (domain.Media, error) {
	if p.mediaTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.mediaTimeout)
		defer cancel()
	}

	media, err := p.fetcher.Fetch(ctx, message.MediaURL)
	if err != nil {
		return domain.Media{}, err
	}

	if media.MIMEType == "" {
		media.MIMEType = message.MediaType
	}

	return media, nil
}

func (p *Pipeline) extractQuestion(ctx context.Context, l *zerolog.Logger, message *domain.InboundMessage,
	media domain.Media) (string, error) {
	lines, err := p.extractor.ExtractText(ctx, media)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrTextExtraction, err)
	}

	kept := p.filter.Filter(lines)
	l.Debug().Int("lines", len(lines)).Int("kept", len(kept)).Msg("ocr lines filtered")

	if len(kept) == 0 {
		return "", fmt.Errorf("%w: no question text recognised", domain.ErrTextExtraction)
	}

	question := strings.Join(kept, "\n")
	if body := strings.TrimSpace(message.Body); body != "" {
		question = body + "\n" + question
	}

	return question, nil
}

func requestID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return "unknown"
	}

	return id.String()
}
