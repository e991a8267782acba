package generator

import (
	"context"
	"errors"
	"fmt"
	"github.com/aliaksandrluz19921520/whatsapp/internal/core/domain"

	"github.com/revrost/go-openrouter"
)

const (
	DefaultModel       = "openai/gpt-4o"
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 500
)

type openRouterClient interface {
	CreateChatCompletion(ctx context.Context,
		ccr openrouter.ChatCompletionRequest) (openrouter.ChatCompletionResponse, error)
}

type OpenRouter struct {
	client      openRouterClient
	model       string
	temperature float32
	maxTokens   int
}

type OpenRouterParams struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

func NewOpenRouter(p OpenRouterParams) *OpenRouter {
	if p.Model == "" {
		p.Model = DefaultModel
	}

	if p.MaxTokens <= 0 {
		p.MaxTokens = DefaultMaxTokens
	}

	// a zero temperature is omitted from the request, so it would fall back to the provider default
	if p.Temperature <= 0 {
		p.Temperature = DefaultTemperature
	}

	return &OpenRouter{
		client: openrouter.NewClient(
			p.APIKey,
			openrouter.WithXTitle("whatsapp-answer-relay"),
		),
		model:       p.Model,
		temperature: p.Temperature,
		maxTokens:   p.MaxTokens,
	}
}

func (o *OpenRouter) GenerateFromRequest(ctx context.Context,
	request domain.ModelRequest) (domain.ModelResponse, error) {
	if len(request.Blocks) == 0 {
		return domain.ModelResponse{}, errors.New("empty model request")
	}

	messages := make([]openrouter.ChatCompletionMessage, 0, len(request.Blocks)+1)

	if request.Reference != nil {
		messages = append(messages, createReferenceMessage(request.Reference))
	}

	for _, block := range request.Blocks {
		switch block.Role {
		case domain.System:
			messages = append(messages, openrouter.ChatCompletionMessage{
				Role: openrouter.ChatMessageRoleSystem,
				Content: openrouter.Content{
					Text: block.Text,
				},
			})
		case domain.User:
			messages = append(messages, createUserMessage(block))
		}
	}

	ccr := openrouter.ChatCompletionRequest{
		Messages:    messages,
		Model:       o.model,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	}

	resp, err := o.client.CreateChatCompletion(ctx, ccr)
	if err != nil {
		return domain.ModelResponse{}, fmt.Errorf("openrouter API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return domain.ModelResponse{}, errors.New("openrouter returned no choices")
	}

	metadata := domain.ResponseMetadata{Model: resp.Model}
	if resp.Usage != nil {
		metadata.CompletionTokens = resp.Usage.CompletionTokens
		metadata.TotalTokens = resp.Usage.TotalTokens
	}

	return domain.ModelResponse{
		Response: resp.Choices[0].Message.Content.Text,
		Metadata: metadata,
	}, nil
}

func createReferenceMessage(doc *domain.Document) openrouter.ChatCompletionMessage {
	return openrouter.ChatCompletionMessage{
		Role: openrouter.ChatMessageRoleSystem,
		Content: openrouter.Content{
			Text: fmt.Sprintf("Reference document %q. Check your answer against it and name the section "+
				"you relied on.\n\n%s", doc.Name, doc.Content),
		},
	}
}

func createUserMessage(block domain.Block) openrouter.ChatCompletionMessage {
	if block.HasImage() {
		mimeType := block.ImageMIMEType
		if mimeType == "" {
			mimeType = "image/jpeg"
		}

		return openrouter.ChatCompletionMessage{
			Role: openrouter.ChatMessageRoleUser,
			Content: openrouter.Content{Multi: []openrouter.ChatMessagePart{
				{
					Type: openrouter.ChatMessagePartTypeImageURL,
					ImageURL: &openrouter.ChatMessageImageURL{
						URL: fmt.Sprintf("data:%s;base64,%s", mimeType, block.ImageBase64),
					},
				},
				{
					Type: openrouter.ChatMessagePartTypeText,
					Text: block.Text,
				},
			},
			},
		}
	}

	return openrouter.ChatCompletionMessage{
		Role: openrouter.ChatMessageRoleUser,
		Content: openrouter.Content{
			Text: block.Text,
		},
	}
}
