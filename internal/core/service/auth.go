package service

import (
	"context"
	"fmt"
	"github.com/aliaksandrluz19921520/whatsapp/internal/core/port"
	"slices"

	"github.com/rs/zerolog/log"
)

type Authorizer interface {
	IsAuthorized(ctx context.Context, sender string) bool
}

// SenderAuthorizer admits senders on the allowlist. An empty allowlist admits everyone.
type SenderAuthorizer struct {
	allowlist []string
	contact   string
	sender    port.TextSender
}

func NewAuthorizer(allowlist []string, contact string, sender port.TextSender) *SenderAuthorizer {
	return &SenderAuthorizer{
		allowlist: allowlist,
		contact:   contact,
		sender:    sender,
	}
}

const forbidden = "You are not authorized to use this service. Please contact %s with this ID to get access: %s"

func (a *SenderAuthorizer) IsAuthorized(ctx context.Context, sender string) bool {
	if len(a.allowlist) == 0 || slices.Contains(a.allowlist, sender) {
		return true
	}

	log.Info().Str("sender", sender).Msg("rejecting sender not on allowlist")

	if a.contact == "" {
		return false
	}

	err := a.sender.SendText(ctx, sender, fmt.Sprintf(forbidden, a.contact, sender))
	if err != nil {
		log.Err(err).Msg("failed to send unauthorized warning")
	}

	return false
}
