package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/emitto/internal/common"
	"github.com/ternarybob/emitto/internal/models"
)

const systemInstruction = `You are a social media editor. Rewrite article content into an engaging post caption.
Respond with a JSON object: {"caption": string, "hashtags": [string], "alt_text": string}.
The caption is plain conversational text, no markdown, with a hook in the first sentence.
Suggest 3-8 relevant hashtags without the # prefix. alt_text describes a fitting cover image in one sentence.`

// optimizerOutput is the JSON shape requested from the LLM
type optimizerOutput struct {
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
	AltText  string   `json:"alt_text"`
}

// Service turns extracted articles into platform-ready content
type Service struct {
	config     *common.OptimizerConfig
	provider   Provider
	hashtagger *Hashtagger
	logger     arbor.ILogger
	now        func() time.Time
}

// NewService creates an optimizer service
func NewService(config *common.OptimizerConfig, provider Provider, hashtagger *Hashtagger, logger arbor.ILogger) *Service {
	if hashtagger == nil {
		hashtagger = NewDefaultHashtagger()
	}
	return &Service{
		config:     config,
		provider:   provider,
		hashtagger: hashtagger,
		logger:     logger,
		now:        time.Now,
	}
}

// Optimize rewrites an article into a caption with hashtags and an image
// alt-text suggestion
func (s *Service) Optimize(ctx context.Context, article *models.Article) (*models.OptimizedContent, error) {
	plainText := MarkdownToPlainText(article.Markdown)
	if plainText == "" {
		return nil, fmt.Errorf("article %s has no text content", article.URL)
	}

	prompt := s.buildPrompt(article, plainText)

	resp, err := s.provider.GenerateContent(ctx, &ContentRequest{
		Prompt:            prompt,
		SystemInstruction: systemInstruction,
		MaxTokens:         s.config.MaxTokens,
		Temperature:       s.config.Temperature,
		JSONOutput:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("content optimization failed for %s: %w", article.URL, err)
	}

	output, err := parseOutput(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse optimizer output for %s: %w", article.URL, err)
	}

	caption := truncateCaption(output.Caption, s.config.MaxLength)
	derived := s.hashtagger.Derive(article.Title+" "+plainText, s.now())
	hashtags := s.hashtagger.Merge(output.Hashtags, derived)

	s.logger.Info().
		Str("url", article.URL).
		Str("provider", string(resp.Provider)).
		Int("caption_length", utf8.RuneCountInString(caption)).
		Int("hashtags", len(hashtags)).
		Msg("Optimized article content")

	return &models.OptimizedContent{
		Caption:  caption,
		Hashtags: hashtags,
		AltText:  strings.TrimSpace(output.AltText),
	}, nil
}

func (s *Service) buildPrompt(article *models.Article, plainText string) string {
	// Keep the prompt bounded; the opening of an article carries the hook.
	// Cut on a rune boundary so multi-byte text stays valid UTF-8.
	const maxSourceChars = 6000
	if utf8.RuneCountInString(plainText) > maxSourceChars {
		plainText = string([]rune(plainText)[:maxSourceChars])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", article.Title)
	if article.Description != "" {
		fmt.Fprintf(&b, "Summary: %s\n", article.Description)
	}
	fmt.Fprintf(&b, "Source URL: %s\n\n", article.URL)
	fmt.Fprintf(&b, "Article:\n%s\n", plainText)
	fmt.Fprintf(&b, "\nTarget caption length: at most %d characters.\n", s.config.MaxLength)
	return b.String()
}

// parseOutput decodes the LLM response, tolerating markdown code fences
// around the JSON object
func parseOutput(text string) (*optimizerOutput, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var output optimizerOutput
	if err := json.Unmarshal([]byte(cleaned), &output); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if strings.TrimSpace(output.Caption) == "" {
		return nil, fmt.Errorf("missing caption")
	}
	output.Caption = strings.TrimSpace(output.Caption)
	return &output, nil
}

// truncateCaption cuts a caption to maxLength runes at a word boundary
func truncateCaption(caption string, maxLength int) string {
	if maxLength <= 0 || utf8.RuneCountInString(caption) <= maxLength {
		return caption
	}

	runes := []rune(caption)
	cut := string(runes[:maxLength])
	if idx := strings.LastIndexAny(cut, " \n\t"); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " \n\t.,;:")
}
