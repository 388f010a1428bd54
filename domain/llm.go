package domain

import "context"

// NoReply is returned in place of a reply when a provider answered
// successfully but the payload carried no text.
const NoReply = "[No reply]"

// Llm abstracts any text generation provider.
type Llm interface {
	// Name identifies the provider in logs and errors.
	Name() string
	// Generate takes a complete prompt and returns the model's reply.
	Generate(ctx context.Context, prompt string, cfg GenerationConfig) (string, error)
}

// GenerationConfig carries the sampling knobs sent with every request.
// Zero values are omitted by providers that support omission.
type GenerationConfig struct {
	Temperature     float32
	TopP            float32
	TopK            float32
	MaxOutputTokens int32
}

// DefaultGenerationConfig is the fixed configuration used for chat replies.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.7,
		TopP:            0.95,
		TopK:            40,
		MaxOutputTokens: 1024,
	}
}
