package models

import (
	"time"
)

// Character is the canonical character entity.
type Character struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Nickname            *string        `json:"nickname,omitempty"`
	Age                 *int           `json:"age,omitempty"`
	Gender              *string        `json:"gender,omitempty"`
	Occupation          *string        `json:"occupation,omitempty"`
	Backstory           *string        `json:"backstory,omitempty"`
	PhysicalDescription *string        `json:"physical_description,omitempty"`
	PersonalityTraits   []string       `json:"personality_traits,omitempty"`
	EmotionalState      map[string]any `json:"emotional_state,omitempty"`
	NarrativeRole       *string        `json:"narrative_role,omitempty"`
	ArchetypeID         *string        `json:"archetype_id,omitempty"`
	Version             int            `json:"version"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// CharacterDetail is the read model for a single character fetch.
type CharacterDetail struct {
	Character
	Personality   *Personality   `json:"personality,omitempty"`
	Archetype     *Archetype     `json:"archetype,omitempty"`
	Relationships []Relationship `json:"relationships,omitempty"`
}

// CreateCharacterRequest is the write model for character creation.
type CreateCharacterRequest struct {
	Name                string         `json:"name" validate:"required"`
	Nickname            *string        `json:"nickname,omitempty"`
	Age                 *int           `json:"age,omitempty"`
	Gender              *string        `json:"gender,omitempty"`
	Occupation          *string        `json:"occupation,omitempty"`
	Backstory           *string        `json:"backstory,omitempty"`
	PhysicalDescription *string        `json:"physical_description,omitempty"`
	PersonalityTraits   []string       `json:"personality_traits,omitempty"`
	EmotionalState      map[string]any `json:"emotional_state,omitempty"`
	NarrativeRole       *string        `json:"narrative_role,omitempty"`
	ArchetypeID         *string        `json:"archetype_id,omitempty"`
}

// UpdateCharacterRequest carries the allow-listed updatable fields. Nil means
// "leave unchanged"; identity fields (id, version, timestamps) are not here on
// purpose.
type UpdateCharacterRequest struct {
	Name                *string         `json:"name,omitempty"`
	Nickname            *string         `json:"nickname,omitempty"`
	Age                 *int            `json:"age,omitempty"`
	Gender              *string         `json:"gender,omitempty"`
	Occupation          *string         `json:"occupation,omitempty"`
	Backstory           *string         `json:"backstory,omitempty"`
	PhysicalDescription *string         `json:"physical_description,omitempty"`
	PersonalityTraits   *[]string       `json:"personality_traits,omitempty"`
	EmotionalState      *map[string]any `json:"emotional_state,omitempty"`
	NarrativeRole       *string         `json:"narrative_role,omitempty"`
}

// IsEmpty reports whether the update carries no fields at all.
func (r *UpdateCharacterRequest) IsEmpty() bool {
	return len(r.UpdatedFields()) == 0
}

// UpdatedFields lists the JSON names of the fields the update carries, in
// declaration order.
func (r *UpdateCharacterRequest) UpdatedFields() []string {
	fields := []string{}
	if r.Name != nil {
		fields = append(fields, "name")
	}
	if r.Nickname != nil {
		fields = append(fields, "nickname")
	}
	if r.Age != nil {
		fields = append(fields, "age")
	}
	if r.Gender != nil {
		fields = append(fields, "gender")
	}
	if r.Occupation != nil {
		fields = append(fields, "occupation")
	}
	if r.Backstory != nil {
		fields = append(fields, "backstory")
	}
	if r.PhysicalDescription != nil {
		fields = append(fields, "physical_description")
	}
	if r.PersonalityTraits != nil {
		fields = append(fields, "personality_traits")
	}
	if r.EmotionalState != nil {
		fields = append(fields, "emotional_state")
	}
	if r.NarrativeRole != nil {
		fields = append(fields, "narrative_role")
	}
	return fields
}

// SearchCharactersRequest is the query model for character search.
type SearchCharactersRequest struct {
	Query         string   `json:"query,omitempty"`
	NarrativeRole *string  `json:"narrative_role,omitempty"`
	ArchetypeID   *string  `json:"archetype_id,omitempty"`
	MinAge        *int     `json:"min_age,omitempty"`
	MaxAge        *int     `json:"max_age,omitempty"`
	Traits        []string `json:"traits,omitempty"`
	Limit         int      `json:"limit,omitempty"`
	Offset        int      `json:"offset,omitempty"`
}

// SearchCharactersResult pairs a result page with the total match count.
type SearchCharactersResult struct {
	Characters []Character `json:"characters"`
	Total      int         `json:"total"`
	Limit      int         `json:"limit"`
	Offset     int         `json:"offset"`
}
