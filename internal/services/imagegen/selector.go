// Package imagegen generates cover images for posts via the Gemini image
// API, choosing the model per prompt.
package imagegen

import (
	"math/rand"
	"strings"
)

// ModelProfile describes an image model: the prompt keywords it is strong
// at, and its weight for random selection when no keyword matches
type ModelProfile struct {
	Model     string
	Strengths []string
	Weight    float64
}

// DefaultModelProfiles is the built-in model table. Weights need not sum
// to 1; they are normalized at selection time.
var DefaultModelProfiles = []ModelProfile{
	{
		Model:     "imagen-4.0-generate-001",
		Strengths: []string{"photo", "food", "portrait", "landscape", "realistic", "kitchen", "garden"},
		Weight:    0.5,
	},
	{
		Model:     "imagen-4.0-fast-generate-001",
		Strengths: []string{"simple", "minimal", "flat", "icon", "diagram"},
		Weight:    0.3,
	},
	{
		Model:     "imagen-4.0-ultra-generate-001",
		Strengths: []string{"detailed", "dramatic", "artistic", "cinematic", "intricate"},
		Weight:    0.2,
	},
}

// RandSource returns a uniform value in [0,1); injectable for tests
type RandSource func() float64

// Selector picks an image model for a prompt: first model whose strength
// keyword appears in the prompt wins; otherwise weighted random.
type Selector struct {
	profiles []ModelProfile
	random   RandSource
}

// NewSelector creates a selector over the given profiles. A nil random
// source uses math/rand.
func NewSelector(profiles []ModelProfile, random RandSource) *Selector {
	if len(profiles) == 0 {
		profiles = DefaultModelProfiles
	}
	if random == nil {
		random = rand.Float64
	}
	return &Selector{profiles: profiles, random: random}
}

// Select returns the model identifier to use for the prompt
func (s *Selector) Select(prompt string) string {
	lower := strings.ToLower(prompt)

	for _, profile := range s.profiles {
		for _, keyword := range profile.Strengths {
			if strings.Contains(lower, keyword) {
				return profile.Model
			}
		}
	}

	return s.weightedRandom()
}

func (s *Selector) weightedRandom() string {
	total := 0.0
	for _, profile := range s.profiles {
		total += profile.Weight
	}
	if total <= 0 {
		return s.profiles[0].Model
	}

	target := s.random() * total
	for _, profile := range s.profiles {
		target -= profile.Weight
		if target < 0 {
			return profile.Model
		}
	}
	return s.profiles[len(s.profiles)-1].Model
}
