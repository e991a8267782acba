package port

import "context"

type TextSender interface {
	// SendText delivers a text message to the given transport address.
	SendText(ctx context.Context, to string, text string) error
}
