package port

import (
	"context"
	"github.com/aliaksandrluz19921520/whatsapp/internal/core/domain"
)

type MediaFetcher interface {
	// Fetch downloads the media behind url. A missing resource is reported as domain.ErrMediaNotFound.
	Fetch(ctx context.Context, url string) (domain.Media, error)
}
