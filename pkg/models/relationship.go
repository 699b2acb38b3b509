package models

import (
	"time"
)

// Relationship is one directed row. A mutual relationship is stored twice,
// once in each direction, with both rows written in the same transaction. A
// one-sided relationship (is_mutual false) is a single row with no mirror.
type Relationship struct {
	ID               string         `json:"id"`
	CharacterAID     string         `json:"character_a_id"`
	CharacterBID     string         `json:"character_b_id"`
	RelationshipType string         `json:"relationship_type"`
	Strength         *int           `json:"strength,omitempty"`
	Status           string         `json:"status"`
	History          *string        `json:"history,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	IsMutual         bool           `json:"is_mutual"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// OtherCharacterID returns the id on the far side of the edge from characterID.
func (r *Relationship) OtherCharacterID(characterID string) string {
	if r.CharacterAID == characterID {
		return r.CharacterBID
	}
	return r.CharacterAID
}

// CreateRelationshipRequest is the write model for relationship creation.
type CreateRelationshipRequest struct {
	CharacterAID     string         `json:"character_a_id" validate:"required"`
	CharacterBID     string         `json:"character_b_id" validate:"required"`
	RelationshipType string         `json:"relationship_type" validate:"required"`
	Strength         *int           `json:"strength,omitempty"`
	Status           *string        `json:"status,omitempty"`
	History          *string        `json:"history,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	IsMutual         *bool          `json:"is_mutual,omitempty"`
}

// Mutual resolves the is_mutual flag, defaulting to true when omitted.
func (r *CreateRelationshipRequest) Mutual() bool {
	return r.IsMutual == nil || *r.IsMutual
}

// UpdateRelationshipRequest carries the content fields of a relationship.
// Identity fields (participants, type) are immutable once created.
type UpdateRelationshipRequest struct {
	Strength *int            `json:"strength,omitempty"`
	Status   *string         `json:"status,omitempty"`
	History  *string         `json:"history,omitempty"`
	Metadata *map[string]any `json:"metadata,omitempty"`
}

// IsEmpty reports whether the update carries no fields at all.
func (r *UpdateRelationshipRequest) IsEmpty() bool {
	return r.Strength == nil && r.Status == nil && r.History == nil && r.Metadata == nil
}

// CharacterRef identifies the character on the far side of a relationship.
type CharacterRef struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Nickname *string `json:"nickname,omitempty"`
}

// RelationshipWithCharacter pairs a relationship row with a reference to the
// character on its far side.
type RelationshipWithCharacter struct {
	Relationship
	RelatedCharacter CharacterRef `json:"related_character"`
}

// ListRelationshipsRequest filters a character's relationship list.
type ListRelationshipsRequest struct {
	CharacterID      string  `json:"character_id" validate:"required"`
	RelationshipType *string `json:"relationship_type,omitempty"`
	Status           *string `json:"status,omitempty"`
}
