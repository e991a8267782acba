package main

import (
	"context"
	"fmt"
	"github.com/aliaksandrluz19921520/whatsapp/internal/adapters/extractor"
	"github.com/aliaksandrluz19921520/whatsapp/internal/adapters/file"
	"github.com/aliaksandrluz19921520/whatsapp/internal/adapters/generator"
	"github.com/aliaksandrluz19921520/whatsapp/internal/config"
	"github.com/aliaksandrluz19921520/whatsapp/internal/core/domain"
	"github.com/aliaksandrluz19921520/whatsapp/internal/core/port"
	"github.com/aliaksandrluz19921520/whatsapp/internal/core/service"

	"github.com/rs/zerolog/log"
)

// core holds the transport-independent parts shared by every pipeline.
type core struct {
	cfg       *config.Config
	prompts   *service.PromptBuilder
	answerer  *service.Answerer
	extractor port.TextExtractor
	filter    *service.LineFilter
	imageMode service.ImageMode
}

func newCore(ctx context.Context, cfg *config.Config) (*core, error) {
	imageMode, err := service.ParseImageMode(cfg.Pipeline.ImageMode)
	if err != nil {
		return nil, err
	}

	answerMode, err := service.ParseAnswerMode(cfg.Pipeline.AnswerMode)
	if err != nil {
		return nil, err
	}

	templates, err := service.LoadTemplates(cfg.PromptsDir)
	if err != nil {
		return nil, err
	}
	prompts := service.NewPromptBuilder(templates)

	var reference *domain.Document
	if cfg.ReferenceDocument != "" {
		reference, err = file.NewFetcher(cfg.Media.Timeout).LoadDocument(ctx, cfg.ReferenceDocument)
		if err != nil {
			return nil, err
		}
	}

	orGenerator := generator.NewOpenRouter(generator.OpenRouterParams{
		APIKey:      cfg.OpenRouter.APIKey,
		Model:       cfg.OpenRouter.Model,
		Temperature: cfg.OpenRouter.Temperature,
		MaxTokens:   cfg.OpenRouter.MaxTokens,
	})

	var arbiter port.TextGenerator = orGenerator
	if cfg.OpenRouter.ArbitrationModel != "" {
		arbiter = generator.NewOpenRouter(generator.OpenRouterParams{
			APIKey:      cfg.OpenRouter.APIKey,
			Model:       cfg.OpenRouter.ArbitrationModel,
			Temperature: cfg.OpenRouter.Temperature,
			MaxTokens:   cfg.OpenRouter.MaxTokens,
		})
	}

	answerer, err := service.NewAnswerer(service.AnswererParams{
		Generator: orGenerator,
		Arbiter:   arbiter,
		Prompts:   prompts,
		Mode:      answerMode,
		Reference: reference,
	})
	if err != nil {
		return nil, fmt.Errorf("failed initializing answerer: %w", err)
	}

	filter, err := service.NewLineFilter(cfg.OCRDenylist)
	if err != nil {
		return nil, fmt.Errorf("invalid ocr denylist: %w", err)
	}

	c := &core{
		cfg:       cfg,
		prompts:   prompts,
		answerer:  answerer,
		filter:    filter,
		imageMode: imageMode,
	}

	if imageMode == service.OCRImage {
		gemini, err := extractor.NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return nil, fmt.Errorf("failed initializing gemini ocr: %w", err)
		}
		c.extractor = gemini
	}

	log.Info().
		Str("model", cfg.OpenRouter.Model).
		Str("answerMode", string(answerMode)).
		Str("imageMode", string(imageMode)).
		Bool("reference", reference != nil).
		Msg("answer core ready")

	return c, nil
}

func (c *core) pipeline(name string, fetcher port.MediaFetcher, sender port.TextSender) (*service.Pipeline, error) {
	p, err := service.NewPipeline(service.PipelineParams{
		Fetcher:       fetcher,
		Extractor:     c.extractor,
		Filter:        c.filter,
		Prompts:       c.prompts,
		Answerer:      c.answerer,
		Sender:        sender,
		Authorizer:    service.NewAuthorizer(c.cfg.Auth.AllowedSenders, c.cfg.Auth.Contact, sender),
		ImageMode:     c.imageMode,
		MediaTimeout:  c.cfg.Media.Timeout,
		NotFoundReply: c.cfg.NotFoundReply(),
		Name:          name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed initializing %s pipeline: %w", name, err)
	}

	return p, nil
}
