package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/xak1234/Huntley/domain"
)

const geminiName = "gemini"

type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key must be provided")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(
		ctx,
		&genai.ClientConfig{
			APIKey:      cfg.APIKey,
			Backend:     genai.BackendGeminiAPI,
			HTTPClient:  cfg.HTTPClient,
			HTTPOptions: genai.HTTPOptions{APIVersion: "v1beta", BaseURL: cfg.BaseURL},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GeminiClient{client: client, model: cfg.Model}, nil
}

func (g *GeminiClient) Name() string { return geminiName }

// Generate sends prompt as a single user content and returns the text of
// the first part of the first candidate.
func (g *GeminiClient) Generate(ctx context.Context, prompt string, cfg domain.GenerationConfig) (string, error) {
	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(prompt),
		geminiConfig(cfg),
	)
	if err != nil {
		return "", geminiError(err)
	}

	return geminiReply(resp), nil
}

func geminiError(err error) error {
	perr := &domain.ProviderError{Provider: geminiName, Err: fmt.Errorf("generate content: %w", err)}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		perr.StatusCode = apiErr.Code
		perr.Body = apiErr.Message
		if apiErr.Status != "" {
			perr.Body = apiErr.Status + ": " + apiErr.Message
		}
	}
	return perr
}

func geminiConfig(cfg domain.GenerationConfig) *genai.GenerateContentConfig {
	out := &genai.GenerateContentConfig{MaxOutputTokens: cfg.MaxOutputTokens}
	if cfg.Temperature > 0 {
		out.Temperature = genai.Ptr(cfg.Temperature)
	}
	if cfg.TopP > 0 {
		out.TopP = genai.Ptr(cfg.TopP)
	}
	if cfg.TopK > 0 {
		out.TopK = genai.Ptr(cfg.TopK)
	}
	return out
}

func geminiReply(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return domain.NoReply
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return domain.NoReply
	}
	part := candidate.Content.Parts[0]
	if part == nil || part.Text == "" {
		return domain.NoReply
	}
	return part.Text
}

var _ domain.Llm = (*GeminiClient)(nil)
