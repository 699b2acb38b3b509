package character

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/bramble/pkg/database"
	"github.com/Ramsey-B/bramble/pkg/models"
)

const (
	charactersTable    = "characters"
	personalitiesTable = "personalities"
)

type CharacterRow struct {
	ID                  string                         `db:"id"`
	Name                string                         `db:"name"`
	Nickname            sql.NullString                 `db:"nickname"`
	Age                 sql.NullInt64                  `db:"age"`
	Gender              sql.NullString                 `db:"gender"`
	Occupation          sql.NullString                 `db:"occupation"`
	Backstory           sql.NullString                 `db:"backstory"`
	PhysicalDescription sql.NullString                 `db:"physical_description"`
	PersonalityTraits   database.JSONB[[]string]       `db:"personality_traits"`
	EmotionalState      database.JSONB[map[string]any] `db:"emotional_state"`
	NarrativeRole       sql.NullString                 `db:"narrative_role"`
	ArchetypeID         sql.NullString                 `db:"archetype_id"`
	Version             int                            `db:"version"`
	CreatedAt           time.Time                      `db:"created_at"`
	UpdatedAt           time.Time                      `db:"updated_at"`
}

type PersonalityRow struct {
	ID                   string                         `db:"id"`
	CharacterID          string                         `db:"character_id"`
	DominantTraits       database.JSONB[[]string]       `db:"dominant_traits"`
	SecondaryTraits      database.JSONB[[]string]       `db:"secondary_traits"`
	Motivations          database.JSONB[[]string]       `db:"motivations"`
	Fears                database.JSONB[[]string]       `db:"fears"`
	Values               database.JSONB[[]string]       `db:"values"`
	BehavioralPatterns   database.JSONB[[]string]       `db:"behavioral_patterns"`
	GrowthArc            database.JSONB[map[string]any] `db:"growth_arc"`
	PsychologicalProfile sql.NullString                 `db:"psychological_profile"`
	CreatedAt            time.Time                      `db:"created_at"`
	UpdatedAt            time.Time                      `db:"updated_at"`
}

var characterColumns = []string{
	"id", "name", "nickname", "age", "gender", "occupation", "backstory",
	"physical_description", "personality_traits", "emotional_state",
	"narrative_role", "archetype_id", "version", "created_at", "updated_at",
}

var personalityColumns = []string{
	"id", "character_id", "dominant_traits", "secondary_traits", "motivations",
	"fears", "values", "behavioral_patterns", "growth_arc",
	"psychological_profile", "created_at", "updated_at",
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

func FromCharacter(ch *models.Character) *CharacterRow {
	return &CharacterRow{
		ID:                  ch.ID,
		Name:                ch.Name,
		Nickname:            nullString(ch.Nickname),
		Age:                 nullInt(ch.Age),
		Gender:              nullString(ch.Gender),
		Occupation:          nullString(ch.Occupation),
		Backstory:           nullString(ch.Backstory),
		PhysicalDescription: nullString(ch.PhysicalDescription),
		PersonalityTraits:   database.JSONB[[]string]{Data: ch.PersonalityTraits},
		EmotionalState:      database.JSONB[map[string]any]{Data: ch.EmotionalState},
		NarrativeRole:       nullString(ch.NarrativeRole),
		ArchetypeID:         nullString(ch.ArchetypeID),
		Version:             ch.Version,
		CreatedAt:           ch.CreatedAt,
		UpdatedAt:           ch.UpdatedAt,
	}
}

func (r *CharacterRow) ToCharacter() *models.Character {
	return &models.Character{
		ID:                  r.ID,
		Name:                r.Name,
		Nickname:            stringPtr(r.Nickname),
		Age:                 intPtr(r.Age),
		Gender:              stringPtr(r.Gender),
		Occupation:          stringPtr(r.Occupation),
		Backstory:           stringPtr(r.Backstory),
		PhysicalDescription: stringPtr(r.PhysicalDescription),
		PersonalityTraits:   r.PersonalityTraits.Data,
		EmotionalState:      r.EmotionalState.Data,
		NarrativeRole:       stringPtr(r.NarrativeRole),
		ArchetypeID:         stringPtr(r.ArchetypeID),
		Version:             r.Version,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func FromPersonality(p *models.Personality) *PersonalityRow {
	return &PersonalityRow{
		ID:                   p.ID,
		CharacterID:          p.CharacterID,
		DominantTraits:       database.JSONB[[]string]{Data: p.DominantTraits},
		SecondaryTraits:      database.JSONB[[]string]{Data: p.SecondaryTraits},
		Motivations:          database.JSONB[[]string]{Data: p.Motivations},
		Fears:                database.JSONB[[]string]{Data: p.Fears},
		Values:               database.JSONB[[]string]{Data: p.Values},
		BehavioralPatterns:   database.JSONB[[]string]{Data: p.BehavioralPatterns},
		GrowthArc:            database.JSONB[map[string]any]{Data: p.GrowthArc},
		PsychologicalProfile: nullString(p.PsychologicalProfile),
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

func (r *PersonalityRow) ToPersonality() *models.Personality {
	return &models.Personality{
		ID:                   r.ID,
		CharacterID:          r.CharacterID,
		DominantTraits:       r.DominantTraits.Data,
		SecondaryTraits:      r.SecondaryTraits.Data,
		Motivations:          r.Motivations.Data,
		Fears:                r.Fears.Data,
		Values:               r.Values.Data,
		BehavioralPatterns:   r.BehavioralPatterns.Data,
		GrowthArc:            r.GrowthArc.Data,
		PsychologicalProfile: stringPtr(r.PsychologicalProfile),
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}
