package sender

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioMessageLimit is the maximum body length Twilio accepts for a single message.
const TwilioMessageLimit = 1600

const whatsappPrefix = "whatsapp:"

type TwilioMessages interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// Twilio sends WhatsApp messages through the Twilio messaging API.
type Twilio struct {
	api  TwilioMessages
	from string
}

func NewTwilio(accountSID, authToken, from string) *Twilio {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return NewTwilioWithAPI(client.Api, from)
}

func NewTwilioWithAPI(api TwilioMessages, from string) *Twilio {
	return &Twilio{api: api, from: from}
}

func (s *Twilio) SendText(ctx context.Context, to string, text string) error {
	from := s.from
	if strings.HasPrefix(to, whatsappPrefix) && !strings.HasPrefix(from, whatsappPrefix) {
		from = whatsappPrefix + from
	}

	for _, chunk := range chunkText(text, TwilioMessageLimit) {
		// the twilio client takes no context, so check for cancellation between chunks
		if err := ctx.Err(); err != nil {
			return err
		}

		params := &twilioApi.CreateMessageParams{}
		params.SetFrom(from)
		params.SetTo(to)
		params.SetBody(chunk)

		msg, err := s.api.CreateMessage(params)
		if err != nil {
			log.Error().Err(err).Str("to", to).Msg("failed to send twilio message")
			return fmt.Errorf("twilio API error: %w", err)
		}

		if msg != nil && msg.Sid != nil {
			log.Debug().Str("sid", *msg.Sid).Str("to", to).Msg("twilio message queued")
		}
	}

	return nil
}
