// Package optimizer rewrites extracted articles into platform-ready captions
// using an LLM provider, and appends topic and seasonal hashtags.
package optimizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/emitto/internal/common"
	"github.com/ternarybob/emitto/internal/retry"
	"google.golang.org/genai"
)

// ContentRequest is a provider-agnostic generation request
type ContentRequest struct {
	Prompt            string
	SystemInstruction string
	MaxTokens         int
	Temperature       float32
	JSONOutput        bool // Request a JSON object response where the provider supports it
}

// ContentResponse is a provider-agnostic generation response
type ContentResponse struct {
	Text     string
	Provider common.LLMProvider
	Model    string
}

// Provider generates text content from a prompt
type Provider interface {
	GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error)
	Close() error
}

// ProviderFactory creates the configured LLM provider. Clients are created
// lazily and cached.
type ProviderFactory struct {
	config       *common.OptimizerConfig
	logger       arbor.ILogger
	geminiClient *genai.Client
	claudeClient anthropic.Client
	claudeReady  bool
}

// NewProviderFactory creates a provider factory
func NewProviderFactory(config *common.OptimizerConfig, logger arbor.ILogger) *ProviderFactory {
	return &ProviderFactory{
		config: config,
		logger: logger,
	}
}

// GenerateContent generates content using the configured provider
func (f *ProviderFactory) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	f.logger.Debug().
		Str("provider", string(f.config.Provider)).
		Int("prompt_length", len(request.Prompt)).
		Msg("Generating content with provider")

	switch f.config.Provider {
	case common.LLMProviderClaude:
		return f.generateWithClaude(ctx, request)
	case common.LLMProviderGemini:
		return f.generateWithGemini(ctx, request)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", f.config.Provider)
	}
}

func (f *ProviderFactory) getGeminiClient(ctx context.Context) (*genai.Client, error) {
	if f.geminiClient != nil {
		return f.geminiClient, nil
	}

	if f.config.GeminiKey == "" {
		return nil, fmt.Errorf("gemini API key not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  f.config.GeminiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	f.geminiClient = client
	return client, nil
}

func (f *ProviderFactory) getClaudeClient() (anthropic.Client, error) {
	if f.claudeReady {
		return f.claudeClient, nil
	}

	if f.config.ClaudeKey == "" {
		return anthropic.Client{}, fmt.Errorf("anthropic API key not configured")
	}

	f.claudeClient = anthropic.NewClient(
		option.WithAPIKey(f.config.ClaudeKey),
	)
	f.claudeReady = true
	return f.claudeClient, nil
}

func (f *ProviderFactory) generateWithClaude(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	client, err := f.getClaudeClient()
	if err != nil {
		return nil, err
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = f.config.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(f.config.ClaudeModel),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(request.Prompt)),
		},
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = f.config.Temperature
	}
	if temp > 0 {
		params.Temperature = anthropic.Float(float64(temp))
	}

	if request.SystemInstruction != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: request.SystemInstruction},
		}
	}

	resp, err := retry.DoTransient(ctx, f.logger, retry.APIPreset, "claude generation", func(ctx context.Context) (*anthropic.Message, error) {
		return client.Messages.New(ctx, params)
	})
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from Claude API")
	}

	return &ContentResponse{
		Text:     text.String(),
		Provider: common.LLMProviderClaude,
		Model:    f.config.ClaudeModel,
	}, nil
}

func (f *ProviderFactory) generateWithGemini(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	client, err := f.getGeminiClient(ctx)
	if err != nil {
		return nil, err
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = f.config.Temperature
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temp),
	}
	if request.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(request.SystemInstruction, genai.RoleUser)
	}
	if request.JSONOutput {
		config.ResponseMIMEType = "application/json"
	}

	contents := []*genai.Content{
		genai.NewContentFromText(request.Prompt, genai.RoleUser),
	}

	resp, err := retry.DoTransient(ctx, f.logger, retry.APIPreset, "gemini generation", func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return client.Models.GenerateContent(ctx, f.config.GeminiModel, contents, config)
	})
	if err != nil {
		return nil, err
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini API")
	}
	responseText := resp.Text()
	if responseText == "" {
		return nil, fmt.Errorf("empty text in Gemini response")
	}

	return &ContentResponse{
		Text:     responseText,
		Provider: common.LLMProviderGemini,
		Model:    f.config.GeminiModel,
	}, nil
}

// Close releases cached provider clients
func (f *ProviderFactory) Close() error {
	f.geminiClient = nil
	f.claudeClient = anthropic.Client{}
	f.claudeReady = false
	return nil
}
