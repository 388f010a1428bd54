package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/xak1234/Huntley/domain"
)

const openAIName = "openai"

// OpenAIConfig configures the OpenAI chat completions fallback.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	// SystemPrompt is sent as the system message ahead of the full prompt.
	SystemPrompt string
}

// OpenAIClient calls the chat completions endpoint with a system reminder
// and the assembled prompt as a single user message.
type OpenAIClient struct {
	client openai.Client
	model  string
	system string
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key must be provided")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo"
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		system: cfg.SystemPrompt,
	}, nil
}

func (o *OpenAIClient) Name() string { return openAIName }

func (o *OpenAIClient) Generate(ctx context.Context, prompt string, cfg domain.GenerationConfig) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if o.system != "" {
		messages = append(messages, openai.SystemMessage(o.system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: messages,
	}
	if cfg.Temperature > 0 {
		params.Temperature = openai.Float(float64(cfg.Temperature))
	}
	if cfg.MaxOutputTokens > 0 {
		params.MaxTokens = openai.Int(int64(cfg.MaxOutputTokens))
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		perr := &domain.ProviderError{Provider: openAIName, Err: fmt.Errorf("chat completion: %w", err)}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			perr.StatusCode = apiErr.StatusCode
			perr.Body = apiErr.Message
		}
		return "", perr
	}

	if completion == nil || len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return domain.NoReply, nil
	}
	return completion.Choices[0].Message.Content, nil
}

var _ domain.Llm = (*OpenAIClient)(nil)
