package port

import (
	"context"
	"github.com/aliaksandrluz19921520/whatsapp/internal/core/domain"
)

type TextGenerator interface {
	// GenerateFromRequest issues a single completion request and returns the raw model text.
	GenerateFromRequest(ctx context.Context, request domain.ModelRequest) (domain.ModelResponse, error)
}

type TextExtractor interface {
	// ExtractText reads an image and returns the recognised text, one entry per line.
	ExtractText(ctx context.Context, media domain.Media) ([]string, error)
}
