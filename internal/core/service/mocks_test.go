package service

import (
	"context"
	"github.com/aliaksandrluz19921520/whatsapp/internal/core/domain"
	"sync"

	"github.com/stretchr/testify/mock"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateFromRequest(ctx context.Context,
	request domain.ModelRequest) (domain.ModelResponse, error) {
	args := m.Called(ctx, request)
	resp, _ := args.Get(0).(domain.ModelResponse)
	return resp, args.Error(1)
}

type MockSender struct {
	mu       sync.Mutex
	err      error
	To       string
	Messages []string
}

func (m *MockSender) SendText(_ context.Context, to string, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.To = to
	m.Messages = append(m.Messages, text)
	return m.err
}

type MockFetcher struct {
	media  domain.Media
	err    error
	called int
	URL    string
}

func (m *MockFetcher) Fetch(_ context.Context, url string) (domain.Media, error) {
	m.called++
	m.URL = url
	return m.media, m.err
}

type MockExtractor struct {
	lines  []string
	err    error
	called int
}

func (m *MockExtractor) ExtractText(_ context.Context, _ domain.Media) ([]string, error) {
	m.called++
	return m.lines, m.err
}

func response(text string) domain.ModelResponse {
	return domain.ModelResponse{
		Response: text,
		Metadata: domain.ResponseMetadata{Model: "unit-test", CompletionTokens: 12, TotalTokens: 42},
	}
}
