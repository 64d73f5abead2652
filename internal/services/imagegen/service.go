package imagegen

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/emitto/internal/common"
	"github.com/ternarybob/emitto/internal/retry"
	"google.golang.org/genai"
)

// GeneratedImage is the result of one image generation call
type GeneratedImage struct {
	Data     []byte
	MIMEType string
	Model    string
	Prompt   string
}

// Service generates cover images through the Gemini image API
type Service struct {
	config   *common.ImageGenConfig
	selector *Selector
	logger   arbor.ILogger
	client   *genai.Client
}

// NewService creates an image generation service
func NewService(config *common.ImageGenConfig, selector *Selector, logger arbor.ILogger) *Service {
	if selector == nil {
		selector = NewSelector(nil, nil)
	}
	return &Service{
		config:   config,
		selector: selector,
		logger:   logger,
	}
}

// Enabled reports whether image generation is turned on in config
func (s *Service) Enabled() bool {
	return s.config.Generate
}

// Generate produces one image for the prompt. Retries are limited because
// each call is billed.
func (s *Service) Generate(ctx context.Context, prompt string) (*GeneratedImage, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	model := s.selector.Select(prompt)

	genConfig := &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	}
	if ratio := aspectRatioFromSize(s.config.ImageSize); ratio != "" {
		genConfig.AspectRatio = ratio
	}

	s.logger.Debug().
		Str("model", model).
		Int("prompt_length", len(prompt)).
		Msg("Generating image")

	resp, err := retry.DoTransient(ctx, s.logger, retry.ImageGenPreset, "image generation", func(ctx context.Context) (*genai.GenerateImagesResponse, error) {
		return client.Models.GenerateImages(ctx, model, prompt, genConfig)
	})
	if err != nil {
		return nil, err
	}

	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, fmt.Errorf("image API returned no image for model %s", model)
	}

	image := resp.GeneratedImages[0].Image

	s.logger.Info().
		Str("model", model).
		Int("bytes", len(image.ImageBytes)).
		Msg("Generated image")

	return &GeneratedImage{
		Data:     image.ImageBytes,
		MIMEType: image.MIMEType,
		Model:    model,
		Prompt:   prompt,
	}, nil
}

func (s *Service) getClient(ctx context.Context) (*genai.Client, error) {
	if s.client != nil {
		return s.client, nil
	}

	if s.config.APIKey == "" {
		return nil, fmt.Errorf("image generation API key not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create image client: %w", err)
	}

	s.client = client
	return client, nil
}

// aspectRatioFromSize maps a WxH size string to the API's aspect ratio
// values; unknown shapes fall back to square
func aspectRatioFromSize(size string) string {
	parts := strings.SplitN(strings.ToLower(size), "x", 2)
	if len(parts) != 2 {
		return ""
	}
	width, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
	height, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return ""
	}

	switch {
	case width == height:
		return "1:1"
	case width*9 == height*16:
		return "16:9"
	case width*16 == height*9:
		return "9:16"
	case width*3 == height*4:
		return "4:3"
	case width*4 == height*3:
		return "3:4"
	case width > height:
		return "16:9"
	default:
		return "9:16"
	}
}
