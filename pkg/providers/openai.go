package providers

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider is the primary backend, talking to a chat-completions API
// through the official SDK. It supports multi-message chat, so the
// instruction travels as a system message.
type OpenAIProvider struct {
	client *openai.Client
	opts   Options
}

func NewOpenAIProvider(apiKey, apiBase string, opts Options) *OpenAIProvider {
	requestOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if apiBase != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(apiBase))
	}
	if opts.Model == "" {
		opts.Model = defaultOpenAIModel
	}
	return &OpenAIProvider{
		client: openai.NewClient(requestOpts...),
		opts:   opts,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Generate(ctx context.Context, instruction string, history []Message, userMessage string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(instruction))
	for _, m := range history {
		switch m.Role {
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	messages = append(messages, openai.UserMessage(userMessage))

	params := openai.ChatCompletionNewParams{
		Messages: openai.F(messages),
		Model:    openai.F(p.opts.Model),
	}
	if p.opts.MaxTokens > 0 {
		params.MaxTokens = openai.F(int64(p.opts.MaxTokens))
	}
	if p.opts.Temperature > 0 {
		params.Temperature = openai.F(p.opts.Temperature)
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}
