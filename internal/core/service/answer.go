package service

import (
	"context"
	"errors"
	"fmt"
	"github.com/aliaksandrluz19921520/whatsapp/internal/core/domain"
	"github.com/aliaksandrluz19921520/whatsapp/internal/core/port"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type AnswerMode string

const (
	SingleAnswer AnswerMode = "single"
	DualAnswer   AnswerMode = "dual"
)

func ParseAnswerMode(s string) (AnswerMode, error) {
	switch AnswerMode(s) {
	case SingleAnswer, DualAnswer:
		return AnswerMode(s), nil
	case "":
		return SingleAnswer, nil
	default:
		return "", fmt.Errorf("unknown answer mode %q", s)
	}
}

// Answerer turns a model request into the final reply text, either with one completion or with two
// concurrent completions judged by an arbitration call.
type Answerer struct {
	generator port.TextGenerator
	arbiter   port.TextGenerator
	prompts   *PromptBuilder
	mode      AnswerMode
	reference *domain.Document

	l *zerolog.Logger
}

type AnswererParams struct {
	Generator port.TextGenerator
	// Arbiter defaults to Generator.
	Arbiter   port.TextGenerator
	Prompts   *PromptBuilder
	Mode      AnswerMode
	Reference *domain.Document
}

func NewAnswerer(p AnswererParams) (*Answerer, error) {
	if p.Generator == nil {
		return nil, errors.New("missing text generator")
	}

	if p.Prompts == nil {
		return nil, errors.New("missing prompt builder")
	}

	if p.Mode == DualAnswer && p.Reference == nil {
		return nil, errors.New("dual answer mode requires a reference document")
	}

	if p.Arbiter == nil {
		p.Arbiter = p.Generator
	}

	logger := log.With().
		Str("component", "answerer").
		Str("mode", string(p.Mode)).
		Logger()

	return &Answerer{
		generator: p.Generator,
		arbiter:   p.Arbiter,
		prompts:   p.Prompts,
		mode:      p.Mode,
		reference: p.Reference,
		l:         &logger,
	}, nil
}

// Answer requests a completion for req and returns the formatted answer. question is the text shown to
// the arbitration call.
func (a *Answerer) Answer(ctx context.Context, question string, req domain.ModelRequest) (string, error) {
	if a.mode == DualAnswer {
		return a.answerDual(ctx, question, req)
	}

	resp, err := a.generator.GenerateFromRequest(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	a.l.Debug().
		Str("model", resp.Metadata.Model).
		Int("totalTokens", resp.Metadata.TotalTokens).
		Msg("answer generated")

	return domain.FormatAnswer(resp.Response), nil
}

func (a *Answerer) answerDual(ctx context.Context, question string, req domain.ModelRequest) (string, error) {
	var (
		plain, referenced       domain.ModelResponse
		plainErr, referencedErr error
		g                       errgroup.Group
	)

	g.Go(func() error {
		plain, plainErr = a.generator.GenerateFromRequest(ctx, req)
		return plainErr
	})

	g.Go(func() error {
		referenced, referencedErr = a.generator.GenerateFromRequest(ctx, req.WithReference(a.reference))
		return referencedErr
	})

	// both calls always run to completion, the individual errors decide the outcome
	_ = g.Wait()

	switch {
	case plainErr != nil && referencedErr != nil:
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, errors.Join(plainErr, referencedErr))
	case plainErr != nil:
		a.l.Warn().Err(plainErr).Msg("plain answer failed, using referenced answer")
		return domain.FormatAnswer(referenced.Response), nil
	case referencedErr != nil:
		a.l.Warn().Err(referencedErr).Msg("referenced answer failed, using plain answer")
		return domain.FormatAnswer(plain.Response), nil
	}

	a.l.Debug().
		Str("plain", plain.Response).
		Str("referenced", referenced.Response).
		Msg("candidates generated, arbitrating")

	resp, err := a.arbiter.GenerateFromRequest(ctx,
		a.prompts.ArbitrationRequest(question, plain.Response, referenced.Response))
	if err != nil {
		return "", fmt.Errorf("%w: arbitration: %w", domain.ErrGeneration, err)
	}

	return domain.FormatFinalAnswer(resp.Response), nil
}
