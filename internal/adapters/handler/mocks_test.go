package handler

import (
	"context"
	"sync/atomic"
	"github.com/aliaksandrluz19921520/whatsapp/internal/core/domain"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/mock"
)

type MockPipeline struct {
	mock.Mock
	handled atomic.Int32
}

func (m *MockPipeline) Handle(ctx context.Context, message *domain.InboundMessage) (domain.Reply, error) {
	args := m.Called(ctx, message)
	m.handled.Add(1)
	return args.Get(0).(domain.Reply), args.Error(1)
}

type MockFiles struct {
	mock.Mock
}

func (m *MockFiles) GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error) {
	args := m.Called(ctx, params)
	f, _ := args.Get(0).(*models.File)
	return f, args.Error(1)
}

func (m *MockFiles) FileDownloadLink(f *models.File) string {
	return "https://api.telegram.org/file/bot123/" + f.FilePath
}
