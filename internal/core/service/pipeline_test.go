package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"github.com/aliaksandrluz19921520/whatsapp/internal/core/domain"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type pipelineFixture struct {
	generator *MockGenerator
	sender    *MockSender
	fetcher   *MockFetcher
	extractor *MockExtractor
	pipeline  *Pipeline
}

func newPipelineFixture(t *testing.T, mode ImageMode, notFoundReply string) *pipelineFixture {
	t.Helper()

	f := &pipelineFixture{
		generator: &MockGenerator{},
		sender:    &MockSender{},
		fetcher:   &MockFetcher{},
		extractor: &MockExtractor{},
	}

	prompts := NewPromptBuilder(DefaultTemplates)

	answerer, err := NewAnswerer(AnswererParams{
		Generator: f.generator,
		Prompts:   prompts,
		Mode:      SingleAnswer,
	})
	require.NoError(t, err)

	filter, err := NewLineFilter(nil)
	require.NoError(t, err)

	f.pipeline, err = NewPipeline(PipelineParams{
		Fetcher:       f.fetcher,
		Extractor:     f.extractor,
		Filter:        filter,
		Prompts:       prompts,
		Answerer:      answerer,
		Sender:        f.sender,
		ImageMode:     mode,
		MediaTimeout:  time.Second,
		NotFoundReply: notFoundReply,
		Name:          "test",
	})
	require.NoError(t, err)

	return f
}

func TestPipelineRejectsEmptyMessage(t *testing.T) {
	f := newPipelineFixture(t, NativeImage, "")

	_, err := f.pipeline.Handle(t.Context(), &domain.InboundMessage{Sender: "whatsapp:+100", Body: "  "})

	require.ErrorIs(t, err, domain.ErrEmptyMessage)
	assert.Equal(t, 0, f.fetcher.called)
	assert.Equal(t, 0, f.extractor.called)
	assert.Empty(t, f.sender.Messages)
	f.generator.AssertNotCalled(t, "GenerateFromRequest", mock.Anything, mock.Anything)
}

func TestPipelineRejectsUnauthorizedSender(t *testing.T) {
	f := newPipelineFixture(t, NativeImage, "")
	f.pipeline.authorizer = NewAuthorizer([]string{"whatsapp:+100"}, "", f.sender)

	_, err := f.pipeline.Handle(t.Context(), &domain.InboundMessage{Sender: "whatsapp:+999", Body: "q"})

	require.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Empty(t, f.sender.Messages)
	f.generator.AssertNotCalled(t, "GenerateFromRequest", mock.Anything, mock.Anything)
}

func TestPipelineTextQuestion(t *testing.T) {
	f := newPipelineFixture(t, NativeImage, "")
	question := "What is the minimum hallway width?"

	f.generator.On("GenerateFromRequest", mock.Anything, mock.Anything).
		Return(response("Step 1: check egress rules.\nAnswer: A. 44 inches"), nil).
		Once()

	reply, err := f.pipeline.Handle(t.Context(), &domain.InboundMessage{Sender: "whatsapp:+100", Body: question})
	require.NoError(t, err)

	assert.Equal(t, domain.Reply{To: "whatsapp:+100", Text: "44 inches"}, reply)
	assert.Equal(t, []string{"44 inches"}, f.sender.Messages)
	assert.Equal(t, "whatsapp:+100", f.sender.To)
	assert.Equal(t, 0, f.fetcher.called)

	f.generator.AssertNumberOfCalls(t, "GenerateFromRequest", 1)
	req, ok := f.generator.Calls[0].Arguments.Get(1).(domain.ModelRequest)
	require.True(t, ok)

	assert.Equal(t, 0, req.ImageCount())
	assert.Nil(t, req.Reference)
	require.Len(t, req.Blocks, 1)
	assert.Equal(t, strings.ReplaceAll(DefaultTemplates.Text, InputTextPlaceholder, question), req.Blocks[0].Text)
	assert.Contains(t, req.Blocks[0].Text, question)
}

func TestPipelineNativeImage(t *testing.T) {
	f := newPipelineFixture(t, NativeImage, "")
	f.fetcher.media = domain.Media{Data: []byte("jpegdata")}

	f.generator.On("GenerateFromRequest", mock.Anything, mock.Anything).
		Return(response("Answer: B. 36 in"), nil).
		Once()

	reply, err := f.pipeline.Handle(t.Context(), &domain.InboundMessage{
		Sender:    "whatsapp:+100",
		MediaURL:  "https://api.twilio.com/media/1",
		MediaType: "image/jpeg",
	})
	require.NoError(t, err)
	assert.Equal(t, "36 in", reply.Text)

	assert.Equal(t, "https://api.twilio.com/media/1", f.fetcher.URL)
	assert.Equal(t, 0, f.extractor.called)

	req, ok := f.generator.Calls[0].Arguments.Get(1).(domain.ModelRequest)
	require.True(t, ok)
	require.Equal(t, 1, req.ImageCount())

	image := req.Blocks[len(req.Blocks)-1]
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("jpegdata")), image.ImageBase64)
	assert.Equal(t, "image/jpeg", image.ImageMIMEType)
}

func TestPipelineOCRImage(t *testing.T) {
	f := newPipelineFixture(t, OCRImage, "")
	f.fetcher.media = domain.Media{Data: []byte("png"), MIMEType: "image/png"}
	f.extractor.lines = []string{
		"9:41",
		"LTE",
		"87%",
		"Question 3 of 10",
		"What is the minimum stair width?",
		"A. 36 in",
		"B. 44 in",
		"Next",
	}

	f.generator.On("GenerateFromRequest", mock.Anything, mock.Anything).
		Return(response("Answer: B. 44 in"), nil).
		Once()

	reply, err := f.pipeline.Handle(t.Context(), &domain.InboundMessage{
		Sender:   "whatsapp:+100",
		MediaURL: "https://api.twilio.com/media/2",
	})
	require.NoError(t, err)
	assert.Equal(t, "44 in", reply.Text)
	assert.Equal(t, 1, f.extractor.called)

	req, ok := f.generator.Calls[0].Arguments.Get(1).(domain.ModelRequest)
	require.True(t, ok)
	assert.Equal(t, 0, req.ImageCount())

	prompt := req.Blocks[0].Text
	assert.Contains(t, prompt, "What is the minimum stair width?\nA. 36 in\nB. 44 in")
	assert.NotContains(t, prompt, "9:41")
	assert.NotContains(t, prompt, "Question 3 of 10")
}

func TestPipelineOCRNothingRecognised(t *testing.T) {
	f := newPipelineFixture(t, OCRImage, "")
	f.extractor.lines = []string{"12:30", "Menu"}

	_, err := f.pipeline.Handle(t.Context(), &domain.InboundMessage{Sender: "a", MediaURL: "https://x/1"})

	require.ErrorIs(t, err, domain.ErrTextExtraction)
	assert.Empty(t, f.sender.Messages)
	f.generator.AssertNotCalled(t, "GenerateFromRequest", mock.Anything, mock.Anything)
}

func TestPipelineMediaNotFound(t *testing.T) {
	tests := []struct {
		name          string
		notFoundReply string
		wantReply     string
		wantErr       error
	}{
		{
			name:          "sentinel reply",
			notFoundReply: "N/A",
			wantReply:     "N/A",
		},
		{
			name:    "sentinel disabled",
			wantErr: domain.ErrMediaFetch,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newPipelineFixture(t, NativeImage, tc.notFoundReply)
			f.fetcher.err = fmt.Errorf("status 404: %w", domain.ErrMediaNotFound)

			reply, err := f.pipeline.Handle(t.Context(), &domain.InboundMessage{Sender: "a", MediaURL: "https://x/1"})

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.ErrorIs(t, err, domain.ErrMediaNotFound)
				assert.Empty(t, f.sender.Messages)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.wantReply, reply.Text)
				assert.Equal(t, []string{tc.wantReply}, f.sender.Messages)
			}
			f.generator.AssertNotCalled(t, "GenerateFromRequest", mock.Anything, mock.Anything)
		})
	}
}

func TestPipelineFetchError(t *testing.T) {
	f := newPipelineFixture(t, NativeImage, "N/A")
	f.fetcher.err = errors.New("connection reset")

	_, err := f.pipeline.Handle(t.Context(), &domain.InboundMessage{Sender: "a", MediaURL: "https://x/1"})

	require.ErrorIs(t, err, domain.ErrMediaFetch)
	assert.Empty(t, f.sender.Messages)
}

func TestPipelineGenerationError(t *testing.T) {
	f := newPipelineFixture(t, NativeImage, "")
	f.generator.On("GenerateFromRequest", mock.Anything, mock.Anything).
		Return(nil, errors.New("api failure")).
		Once()

	_, err := f.pipeline.Handle(t.Context(), &domain.InboundMessage{Sender: "a", Body: "q"})

	require.ErrorIs(t, err, domain.ErrGeneration)
	assert.Empty(t, f.sender.Messages)
	f.generator.AssertNumberOfCalls(t, "GenerateFromRequest", 1)
}

func TestPipelineEmptyAnswer(t *testing.T) {
	f := newPipelineFixture(t, NativeImage, "")
	f.generator.On("GenerateFromRequest", mock.Anything, mock.Anything).
		Return(response("Answer: **"), nil).
		Once()

	_, err := f.pipeline.Handle(t.Context(), &domain.InboundMessage{Sender: "a", Body: "q"})

	require.ErrorIs(t, err, domain.ErrEmptyAnswer)
	assert.Empty(t, f.sender.Messages)
}

func TestPipelineSendError(t *testing.T) {
	f := newPipelineFixture(t, NativeImage, "")
	f.sender.err = errors.New("twilio down")
	f.generator.On("GenerateFromRequest", mock.Anything, mock.Anything).
		Return(response("Answer: yes"), nil).
		Once()

	_, err := f.pipeline.Handle(t.Context(), &domain.InboundMessage{Sender: "a", Body: "q"})

	require.ErrorIs(t, err, domain.ErrSendingReplyFailed)
	assert.Equal(t, []string{"yes"}, f.sender.Messages)
}

func TestNewPipelineValidation(t *testing.T) {
	_, err := NewPipeline(PipelineParams{ImageMode: OCRImage})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing media fetcher")
	assert.Contains(t, err.Error(), "missing answerer")
	assert.Contains(t, err.Error(), "ocr image mode requires")
}

func TestParseImageMode(t *testing.T) {
	mode, err := ParseImageMode("")
	require.NoError(t, err)
	assert.Equal(t, NativeImage, mode)

	mode, err = ParseImageMode("ocr")
	require.NoError(t, err)
	assert.Equal(t, OCRImage, mode)

	_, err = ParseImageMode("tesseract")
	require.Error(t, err)
}
