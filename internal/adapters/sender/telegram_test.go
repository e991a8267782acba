package sender

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBot struct {
	mock.Mock
}

func (m *MockBot) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	args := m.Called(ctx, params)
	msg, _ := args.Get(0).(*models.Message)
	return msg, args.Error(1)
}

func TestTelegramSender_SendText(t *testing.T) {
	longText := strings.Repeat("x", TelegramMessageLimit+10)

	tests := []struct {
		name      string
		to        string
		text      string
		wantCalls int
		setupMock func(mb *MockBot)
		wantErr   bool
	}{
		{
			name:      "single message",
			to:        "1001",
			text:      "hello",
			wantCalls: 1,
			setupMock: func(mb *MockBot) {
				mb.On("SendMessage", mock.Anything, mock.MatchedBy(func(params *bot.SendMessageParams) bool {
					return params.Text == "hello" && params.ChatID == int64(1001)
				})).
					Return(&models.Message{ID: 123}, nil).
					Once()
			},
			wantErr: false,
		},
		{
			name:      "message chunked in two",
			to:        "1001",
			text:      longText,
			wantCalls: 2,
			setupMock: func(mb *MockBot) {
				mb.On("SendMessage", mock.Anything, mock.MatchedBy(func(params *bot.SendMessageParams) bool {
					return len(params.Text) <= TelegramMessageLimit
				})).
					Return(&models.Message{ID: 456}, nil).
					Twice()
			},
			wantErr: false,
		},
		{
			name:      "send fails on first",
			to:        "1001",
			text:      longText,
			wantCalls: 1,
			setupMock: func(mb *MockBot) {
				mb.On("SendMessage", mock.Anything, mock.Anything).Return(nil, errors.New("fail")).Once()
			},
			wantErr: true,
		},
		{
			name:      "invalid chat id",
			to:        "whatsapp:+100",
			text:      "hello",
			wantCalls: 0,
			setupMock: func(_ *MockBot) {},
			wantErr:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mb := new(MockBot)
			sender := NewTelegram(mb)

			tc.setupMock(mb)
			err := sender.SendText(t.Context(), tc.to, tc.text)

			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			mb.AssertNumberOfCalls(t, "SendMessage", tc.wantCalls)
			mb.AssertExpectations(t)
		})
	}
}
