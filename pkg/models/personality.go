package models

import (
	"time"
)

// Personality is the one-to-one psychological profile for a character.
type Personality struct {
	ID                   string         `json:"id"`
	CharacterID          string         `json:"character_id"`
	DominantTraits       []string       `json:"dominant_traits,omitempty"`
	SecondaryTraits      []string       `json:"secondary_traits,omitempty"`
	Motivations          []string       `json:"motivations,omitempty"`
	Fears                []string       `json:"fears,omitempty"`
	Values               []string       `json:"values,omitempty"`
	BehavioralPatterns   []string       `json:"behavioral_patterns,omitempty"`
	GrowthArc            map[string]any `json:"growth_arc,omitempty"`
	PsychologicalProfile *string        `json:"psychological_profile,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}
