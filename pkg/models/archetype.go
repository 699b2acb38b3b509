package models

import (
	"time"
)

// Archetype is a reusable character template.
type Archetype struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	Description          *string        `json:"description,omitempty"`
	DefaultTraits        []string       `json:"default_traits,omitempty"`
	NarrativeFunction    *string        `json:"narrative_function,omitempty"`
	CommonMotivations    []string       `json:"common_motivations,omitempty"`
	RelationshipPatterns map[string]any `json:"relationship_patterns,omitempty"`
	GrowthPatterns       map[string]any `json:"growth_patterns,omitempty"`
	Examples             []string       `json:"examples,omitempty"`
	IsActive             bool           `json:"is_active"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// CreateArchetypeRequest is the write model for archetype creation.
type CreateArchetypeRequest struct {
	Name                 string         `json:"name" validate:"required"`
	Description          *string        `json:"description,omitempty"`
	DefaultTraits        []string       `json:"default_traits,omitempty"`
	NarrativeFunction    *string        `json:"narrative_function,omitempty"`
	CommonMotivations    []string       `json:"common_motivations,omitempty"`
	RelationshipPatterns map[string]any `json:"relationship_patterns,omitempty"`
	GrowthPatterns       map[string]any `json:"growth_patterns,omitempty"`
	Examples             []string       `json:"examples,omitempty"`
}

// UpdateArchetypeRequest carries the updatable archetype fields.
type UpdateArchetypeRequest struct {
	Description          *string         `json:"description,omitempty"`
	DefaultTraits        *[]string       `json:"default_traits,omitempty"`
	NarrativeFunction    *string         `json:"narrative_function,omitempty"`
	CommonMotivations    *[]string       `json:"common_motivations,omitempty"`
	RelationshipPatterns *map[string]any `json:"relationship_patterns,omitempty"`
	GrowthPatterns       *map[string]any `json:"growth_patterns,omitempty"`
	Examples             *[]string       `json:"examples,omitempty"`
	IsActive             *bool           `json:"is_active,omitempty"`
}
