package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider using the OpenAI Chat Completions API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	client := openai.NewClient(apiKey)
	return &OpenAIProvider{
		client: client,
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	var messages []openai.ChatCompletionMessage
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	apiReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}

	resp, err := p.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return nil, p.wrapError(err)
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	var finishReason string
	if len(resp.Choices) > 0 {
		finishReason = string(resp.Choices[0].FinishReason)
	}

	return &CompletionResponse{
		Content:      content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        resp.Model,
		FinishReason: finishReason,
	}, nil
}

// wrapError converts go-openai errors into classified ProviderErrors.
func (p *OpenAIProvider) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Kind:     kindFromStatus(apiErr.HTTPStatusCode),
			Provider: p.Name(),
			Status:   apiErr.HTTPStatusCode,
			Err:      err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{
			Kind:     kindFromStatus(reqErr.HTTPStatusCode),
			Provider: p.Name(),
			Status:   reqErr.HTTPStatusCode,
			Err:      err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Kind: KindTimeout, Provider: p.Name(), Err: err}
	}

	return &ProviderError{Kind: KindOther, Provider: p.Name(), Err: err}
}
