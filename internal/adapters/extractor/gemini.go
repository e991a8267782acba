package extractor

import (
	"context"
	"errors"
	"fmt"
	"github.com/aliaksandrluz19921520/whatsapp/internal/core/domain"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const (
	DefaultModel = "gemini-2.0-flash"

	ocrInstruction = "Transcribe every line of text visible in this image exactly as written, one line per " +
		"output line, top to bottom. Do not translate, summarise or answer anything. Output only the text."
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini uses a Gemini model as an OCR service.
type Gemini struct {
	models contentGenerator
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if model == "" {
		model = DefaultModel
	}

	return &Gemini{models: client.Models, model: model}, nil
}

func (g *Gemini) ExtractText(ctx context.Context, media domain.Media) ([]string, error) {
	if len(media.Data) == 0 {
		return nil, errors.New("empty image")
	}

	mimeType := media.MIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(ocrInstruction),
			genai.NewPartFromBytes(media.Data, mimeType),
		}, genai.RoleUser),
	}

	result, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	text := result.Text()
	log.Debug().Int("chars", len(text)).Str("model", g.model).Msg("ocr text received")

	return splitLines(text), nil
}

func splitLines(text string) []string {
	var lines []string

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	return lines
}
