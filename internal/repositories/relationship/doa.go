package relationship

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/bramble/pkg/database"
	"github.com/Ramsey-B/bramble/pkg/models"
)

const relationshipsTable = "relationships"

type RelationshipRow struct {
	ID               string                         `db:"id"`
	CharacterAID     string                         `db:"character_a_id"`
	CharacterBID     string                         `db:"character_b_id"`
	RelationshipType string                         `db:"relationship_type"`
	Strength         sql.NullInt64                  `db:"strength"`
	Status           string                         `db:"status"`
	History          sql.NullString                 `db:"history"`
	Metadata         database.JSONB[map[string]any] `db:"metadata"`
	IsMutual         bool                           `db:"is_mutual"`
	CreatedAt        time.Time                      `db:"created_at"`
	UpdatedAt        time.Time                      `db:"updated_at"`
}

var relationshipColumns = []string{
	"id", "character_a_id", "character_b_id", "relationship_type", "strength",
	"status", "history", "metadata", "is_mutual", "created_at", "updated_at",
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func intPtr(i sql.NullInt64) *int {
	if !i.Valid {
		return nil
	}
	v := int(i.Int64)
	return &v
}

func FromRelationship(rel *models.Relationship) *RelationshipRow {
	return &RelationshipRow{
		ID:               rel.ID,
		CharacterAID:     rel.CharacterAID,
		CharacterBID:     rel.CharacterBID,
		RelationshipType: rel.RelationshipType,
		Strength:         nullInt(rel.Strength),
		Status:           rel.Status,
		History:          nullString(rel.History),
		Metadata:         database.JSONB[map[string]any]{Data: rel.Metadata},
		IsMutual:         rel.IsMutual,
		CreatedAt:        rel.CreatedAt,
		UpdatedAt:        rel.UpdatedAt,
	}
}

func (r *RelationshipRow) ToRelationship() *models.Relationship {
	return &models.Relationship{
		ID:               r.ID,
		CharacterAID:     r.CharacterAID,
		CharacterBID:     r.CharacterBID,
		RelationshipType: r.RelationshipType,
		Strength:         intPtr(r.Strength),
		Status:           r.Status,
		History:          stringPtr(r.History),
		Metadata:         r.Metadata.Data,
		IsMutual:         r.IsMutual,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}
