package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Duration wraps time.Duration so config files can use "30s" style values;
// go-toml/v2 only decodes strings through encoding.TextUnmarshaler.
type Duration time.Duration

// UnmarshalText parses a Go duration string
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText renders the duration in Go duration syntax
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
	Sitemap     SitemapConfig   `toml:"sitemap"`
	Scraper     ScraperConfig   `toml:"scraper"`
	Optimizer   OptimizerConfig `toml:"optimizer"`
	ImageGen    ImageGenConfig  `toml:"imagegen"`
	Publisher   PublisherConfig `toml:"publisher"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host" validate:"required"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=debug info warn error"` // "debug", "info", "warn", "error"
	Output []string `toml:"output"`                                      // "stdout", "file"
}

// PipelineConfig controls the end-to-end content run
type PipelineConfig struct {
	Schedule    string        `toml:"schedule"`                  // Cron schedule for automatic runs
	MaxItems    int           `toml:"max_items" validate:"gt=0"` // Max URLs processed per run
	ItemDelay   Duration      `toml:"item_delay"`                // Fixed pause between sequential items
	CacheTTL    Duration      `toml:"cache_ttl"`                 // How long a processed URL stays cached
	SourcesFile string        `toml:"sources_file" validate:"required"`
	DryRun      bool          `toml:"dry_run"` // Run everything except the final post call
}

// SitemapConfig controls sitemap fetching
type SitemapConfig struct {
	RequestTimeout Duration `toml:"request_timeout"`
	MaxURLs        int      `toml:"max_urls" validate:"gt=0"` // Hard cap on URLs read from one sitemap
}

// ScraperConfig contains the content-extraction API configuration
type ScraperConfig struct {
	BaseURL        string   `toml:"base_url" validate:"required,url"`
	APIKey         string   `toml:"api_key"`
	RequestTimeout Duration `toml:"request_timeout"`
	RateLimit      int      `toml:"rate_limit" validate:"gt=0"` // Requests per second
	BatchSize      int      `toml:"batch_size" validate:"gt=0"` // Concurrent requests per batch group
	BatchPause     Duration `toml:"batch_pause"`                // Pause between batch groups
	EnableFallback bool     `toml:"enable_fallback"`            // Local extraction when the API fails
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// OptimizerConfig contains LLM configuration for content optimization
type OptimizerConfig struct {
	Provider    LLMProvider `toml:"provider" validate:"oneof=gemini claude"`
	GeminiKey   string      `toml:"gemini_api_key"`
	GeminiModel string      `toml:"gemini_model"`
	ClaudeKey   string      `toml:"claude_api_key"`
	ClaudeModel string      `toml:"claude_model"`
	MaxTokens   int         `toml:"max_tokens" validate:"gt=0"`
	Temperature float32     `toml:"temperature"`
	MaxLength   int         `toml:"max_length" validate:"gt=0"` // Target caption length in characters
}

// ImageGenConfig contains image generation configuration
type ImageGenConfig struct {
	APIKey    string `toml:"api_key"`
	Generate  bool   `toml:"generate"`   // Disable to skip image generation entirely
	ImageSize string `toml:"image_size"` // e.g. "1024x1024"
}

// PublisherConfig contains the social-scheduling API configuration
type PublisherConfig struct {
	BaseURL        string   `toml:"base_url" validate:"required,url"`
	AccessToken    string   `toml:"access_token"`
	Platform       string   `toml:"platform" validate:"required"`
	RequestTimeout Duration `toml:"request_timeout"`
	RateLimit      int      `toml:"rate_limit" validate:"gt=0"`
	OptimalHours   string   `toml:"optimal_hours"`                    // Comma-separated hours of day, e.g. "9,12,15,18,21"
	PostsPerDay    int      `toml:"posts_per_day" validate:"gte=0"`   // Soft target, reported but not enforced
	MinGapMinutes  int      `toml:"min_gap_minutes" validate:"gte=0"` // Reported minimum gap between posts
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability;
// only user-facing settings should be exposed in emitto.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Pipeline: PipelineConfig{
			Schedule:    "0 */6 * * *", // Every 6 hours
			MaxItems:    10,
			ItemDelay:   Duration(5 * time.Second),
			CacheTTL:    Duration(7 * 24 * time.Hour),
			SourcesFile: "./sources.yaml",
		},
		Sitemap: SitemapConfig{
			RequestTimeout: Duration(30 * time.Second),
			MaxURLs:        500,
		},
		Scraper: ScraperConfig{
			BaseURL:        "https://api.firecrawl.dev",
			RequestTimeout: Duration(60 * time.Second),
			RateLimit:      2,
			BatchSize:      3,
			BatchPause:     Duration(2 * time.Second),
			EnableFallback: true,
		},
		Optimizer: OptimizerConfig{
			Provider:    LLMProviderGemini,
			GeminiModel: "gemini-3-flash-preview",
			ClaudeModel: "claude-haiku-3-5-20241022",
			MaxTokens:   1024,
			Temperature: 0.7,
			MaxLength:   2200,
		},
		ImageGen: ImageGenConfig{
			Generate:  true,
			ImageSize: "1024x1024",
		},
		Publisher: PublisherConfig{
			BaseURL:        "https://api.postiz.com",
			Platform:       "instagram",
			RequestTimeout: Duration(30 * time.Second),
			RateLimit:      1,
			OptimalHours:   "9,12,15,18,21",
			PostsPerDay:    3,
			MinGapMinutes:  120,
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration shape with the validator library
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("EMITTO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("EMITTO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("EMITTO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("EMITTO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("EMITTO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("EMITTO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Pipeline configuration
	if schedule := os.Getenv("EMITTO_PIPELINE_SCHEDULE"); schedule != "" {
		config.Pipeline.Schedule = schedule
	}
	if maxItems := os.Getenv("EMITTO_PIPELINE_MAX_ITEMS"); maxItems != "" {
		if mi, err := strconv.Atoi(maxItems); err == nil {
			config.Pipeline.MaxItems = mi
		}
	}
	if itemDelay := os.Getenv("EMITTO_PIPELINE_ITEM_DELAY"); itemDelay != "" {
		if d, err := time.ParseDuration(itemDelay); err == nil {
			config.Pipeline.ItemDelay = Duration(d)
		}
	}
	if sourcesFile := os.Getenv("EMITTO_PIPELINE_SOURCES_FILE"); sourcesFile != "" {
		config.Pipeline.SourcesFile = sourcesFile
	}
	if dryRun := os.Getenv("EMITTO_PIPELINE_DRY_RUN"); dryRun != "" {
		if d, err := strconv.ParseBool(dryRun); err == nil {
			config.Pipeline.DryRun = d
		}
	}

	// Scraper configuration
	if apiKey := os.Getenv("EMITTO_SCRAPER_API_KEY"); apiKey != "" {
		config.Scraper.APIKey = apiKey
	}
	if baseURL := os.Getenv("EMITTO_SCRAPER_BASE_URL"); baseURL != "" {
		config.Scraper.BaseURL = baseURL
	}
	if batchSize := os.Getenv("EMITTO_SCRAPER_BATCH_SIZE"); batchSize != "" {
		if bs, err := strconv.Atoi(batchSize); err == nil {
			config.Scraper.BatchSize = bs
		}
	}

	// Optimizer configuration
	if provider := os.Getenv("EMITTO_LLM_PROVIDER"); provider != "" {
		config.Optimizer.Provider = LLMProvider(provider)
	}
	if apiKey := os.Getenv("EMITTO_GEMINI_API_KEY"); apiKey != "" {
		config.Optimizer.GeminiKey = apiKey
	}
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Optimizer.ClaudeKey = apiKey
	}
	if apiKey := os.Getenv("EMITTO_CLAUDE_API_KEY"); apiKey != "" {
		config.Optimizer.ClaudeKey = apiKey // EMITTO_ prefix takes priority
	}
	if model := os.Getenv("EMITTO_GEMINI_MODEL"); model != "" {
		config.Optimizer.GeminiModel = model
	}
	if model := os.Getenv("EMITTO_CLAUDE_MODEL"); model != "" {
		config.Optimizer.ClaudeModel = model
	}

	// Image generation configuration
	if apiKey := os.Getenv("EMITTO_IMAGEGEN_API_KEY"); apiKey != "" {
		config.ImageGen.APIKey = apiKey
	}
	if generate := os.Getenv("EMITTO_IMAGEGEN_GENERATE"); generate != "" {
		if g, err := strconv.ParseBool(generate); err == nil {
			config.ImageGen.Generate = g
		}
	}

	// Publisher configuration
	if baseURL := os.Getenv("EMITTO_PUBLISHER_BASE_URL"); baseURL != "" {
		config.Publisher.BaseURL = baseURL
	}
	if token := os.Getenv("EMITTO_PUBLISHER_ACCESS_TOKEN"); token != "" {
		config.Publisher.AccessToken = token
	}
	if platform := os.Getenv("EMITTO_PUBLISHER_PLATFORM"); platform != "" {
		config.Publisher.Platform = platform
	}
	if hours := os.Getenv("EMITTO_PUBLISHER_OPTIMAL_HOURS"); hours != "" {
		config.Publisher.OptimalHours = hours
	}
	if postsPerDay := os.Getenv("EMITTO_PUBLISHER_POSTS_PER_DAY"); postsPerDay != "" {
		if ppd, err := strconv.Atoi(postsPerDay); err == nil {
			config.Publisher.PostsPerDay = ppd
		}
	}
	if minGap := os.Getenv("EMITTO_PUBLISHER_MIN_GAP_MINUTES"); minGap != "" {
		if mg, err := strconv.Atoi(minGap); err == nil {
			config.Publisher.MinGapMinutes = mg
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
