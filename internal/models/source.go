package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Source defines one sitemap-backed content source
type Source struct {
	Name       string   `yaml:"name"`
	SitemapURL string   `yaml:"sitemap_url"`
	Include    []string `yaml:"include,omitempty"` // URL substring filters, any match keeps the URL
	Exclude    []string `yaml:"exclude,omitempty"` // URL substring filters, any match drops the URL
	Enabled    *bool    `yaml:"enabled,omitempty"` // Default true
}

// IsEnabled returns true unless the source is explicitly disabled
func (s *Source) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Validate validates the source definition
func (s *Source) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("source name is required")
	}
	if s.SitemapURL == "" {
		return fmt.Errorf("source %s: sitemap_url is required", s.Name)
	}
	return nil
}

// sourcesFile is the on-disk shape of the sources definition file
type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources reads source definitions from a YAML file
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file %s: %w", path, err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources file %s: %w", path, err)
	}

	for i := range file.Sources {
		if err := file.Sources[i].Validate(); err != nil {
			return nil, err
		}
	}

	return file.Sources, nil
}
