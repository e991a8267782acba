package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"github.com/aliaksandrluz19921520/whatsapp/internal/core/domain"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	InputTextPlaceholder       = "{input_text}"
	PlainAnswerPlaceholder     = "{answer_plain}"
	ReferenceAnswerPlaceholder = "{answer_reference}"
)

// Templates holds the instructional prompts. Text must contain InputTextPlaceholder, Arbitration must
// contain both answer placeholders.
type Templates struct {
	Text        string
	Image       string
	Arbitration string
}

const defaultRules = `You are an expert on building codes and construction standards answering quiz questions.

Rules:
1. Read measurement symbols carefully: ′ or ' means feet, ″ or " means inches, ⌀ means diameter,
   ± means tolerance, ° means degrees. Keep the unit system of the question (mm, m, in, ft).
2. When a question offers combined options such as "both A and B" or "all of the above", pick the
   combined option whenever every option it covers is correct; prefer it over any single option.
3. If the question is ambiguous, pick the answer required by the strictest applicable provision.
4. You may reason in short steps labelled "Step 1:", "Step 2:" and so on.
5. The last line of your reply must be exactly "Answer: <text>", where <text> is the chosen option
   text (with its letter if the question has letters) or the short numeric answer with its unit.`

var DefaultTemplates = Templates{
	Text: defaultRules + `

Question:
` + InputTextPlaceholder,
	Image: defaultRules + `

The question and its answer options are shown in the attached screenshot. Ignore phone status bars,
timestamps, menus and navigation buttons.`,
	Arbitration: `Two assistants answered the same building code question.

Question:
` + InputTextPlaceholder + `

Answer from general knowledge:
` + PlainAnswerPlaceholder + `

Answer checked against the reference document:
` + ReferenceAnswerPlaceholder + `

Compare both answers. Prefer the answer that is supported by the reference document unless it is
clearly wrong. If they agree, repeat the shared answer. The last line of your reply must be exactly
"Final Answer: <text>".`,
}

func (t Templates) Validate() error {
	var errs []error

	if !strings.Contains(t.Text, InputTextPlaceholder) {
		errs = append(errs, fmt.Errorf("text template is missing %s", InputTextPlaceholder))
	}

	if strings.TrimSpace(t.Image) == "" {
		errs = append(errs, errors.New("image template is empty"))
	}

	for _, p := range []string{PlainAnswerPlaceholder, ReferenceAnswerPlaceholder} {
		if !strings.Contains(t.Arbitration, p) {
			errs = append(errs, fmt.Errorf("arbitration template is missing %s", p))
		}
	}

	return errors.Join(errs...)
}

// LoadTemplates overlays text.tmpl, image.tmpl and arbitration.tmpl from dir on the defaults.
// An empty dir returns the defaults.
func LoadTemplates(dir string) (Templates, error) {
	t := DefaultTemplates
	if dir == "" {
		return t, nil
	}

	files := map[string]*string{
		"text.tmpl":        &t.Text,
		"image.tmpl":       &t.Image,
		"arbitration.tmpl": &t.Arbitration,
	}

	for name, target := range files {
		path := filepath.Join(dir, name)

		buf, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			log.Debug().Str("path", path).Msg("template override not found, keeping default")
			continue
		}
		if err != nil {
			return Templates{}, fmt.Errorf("error reading template %s: %w", path, err)
		}

		*target = string(buf)
		log.Info().Str("path", path).Msg("loaded template override")
	}

	if err := t.Validate(); err != nil {
		return Templates{}, fmt.Errorf("invalid templates in %s: %w", dir, err)
	}

	return t, nil
}

type PromptBuilder struct {
	templates Templates
}

func NewPromptBuilder(templates Templates) *PromptBuilder {
	return &PromptBuilder{templates: templates}
}

// TextRequest embeds the question verbatim into the text template.
func (b *PromptBuilder) TextRequest(question string) domain.ModelRequest {
	return domain.ModelRequest{Blocks: []domain.Block{
		{
			Role: domain.User,
			Text: strings.ReplaceAll(b.templates.Text, InputTextPlaceholder, question),
		},
	}}
}

// ImageRequest puts the image template in a system block and the image with the optional caption in
// a single user block.
func (b *PromptBuilder) ImageRequest(caption string, media domain.Media) domain.ModelRequest {
	text := strings.TrimSpace(caption)
	if text == "" {
		text = "Answer the question shown in the image."
	}

	return domain.ModelRequest{Blocks: []domain.Block{
		{
			Role: domain.System,
			Text: b.templates.Image,
		},
		{
			Role:          domain.User,
			Text:          text,
			ImageBase64:   base64.StdEncoding.EncodeToString(media.Data),
			ImageMIMEType: media.MIMEType,
		},
	}}
}

// ArbitrationRequest embeds both candidate answers literally.
func (b *PromptBuilder) ArbitrationRequest(question, plain, referenced string) domain.ModelRequest {
	r := strings.NewReplacer(
		InputTextPlaceholder, question,
		PlainAnswerPlaceholder, plain,
		ReferenceAnswerPlaceholder, referenced,
	)

	return domain.ModelRequest{Blocks: []domain.Block{
		{
			Role: domain.User,
			Text: r.Replace(b.templates.Arbitration),
		},
	}}
}
