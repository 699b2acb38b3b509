package character

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"

	"github.com/Ramsey-B/bramble/pkg/database"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

// Repository handles character and personality persistence. Both tables are
// written inside one transaction for operations that touch them together.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Create inserts a character and, when provided, its personality row in one
// transaction.
func (r *Repository) Create(ctx context.Context, ch *models.Character, pers *models.Personality) error {
	ctx, span := tracing.StartSpan(ctx, "character.Repository.Create")
	defer span.End()

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)
	ctx = txCtx

	row := FromCharacter(ch)

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(charactersTable)
	ib.Cols("id", "name", "nickname", "age", "gender", "occupation", "backstory",
		"physical_description", "personality_traits", "emotional_state",
		"narrative_role", "archetype_id", "version", "created_at", "updated_at")
	ib.Values(row.ID, row.Name, row.Nickname, row.Age, row.Gender, row.Occupation, row.Backstory,
		row.PhysicalDescription, row.PersonalityTraits, row.EmotionalState,
		row.NarrativeRole, row.ArchetypeID, row.Version, row.CreatedAt, row.UpdatedAt)
	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("character_id", ch.ID).Error("Failed to insert character")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert character")
	}

	if pers != nil {
		if err := r.insertPersonality(ctx, tx, pers); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("character_id", ch.ID).Error("Failed to commit character create")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}
	return nil
}

func (r *Repository) insertPersonality(ctx context.Context, tx database.Tx, pers *models.Personality) error {
	row := FromPersonality(pers)

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(personalitiesTable)
	ib.Cols("id", "character_id", "dominant_traits", "secondary_traits", "motivations",
		"fears", "values", "behavioral_patterns", "growth_arc", "psychological_profile",
		"created_at", "updated_at")
	ib.Values(row.ID, row.CharacterID, row.DominantTraits, row.SecondaryTraits, row.Motivations,
		row.Fears, row.Values, row.BehavioralPatterns, row.GrowthArc, row.PsychologicalProfile,
		row.CreatedAt, row.UpdatedAt)
	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("character_id", pers.CharacterID).Error("Failed to insert personality")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert personality")
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Character, error) {
	ctx, span := tracing.StartSpan(ctx, "character.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(characterColumns...)
	sb.From(charactersTable)
	sb.Where(sb.Equal("id", id))
	query, args := sb.Build()

	var row CharacterRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("character_id", id).Error("Failed to get character")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get character")
	}
	return row.ToCharacter(), nil
}

func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("1")
	sb.From(charactersTable)
	sb.Where(sb.Equal("id", id))
	query, args := sb.Build()

	var one int
	if err := r.db.GetContext(ctx, &one, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return false, nil
		}
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to check character existence")
	}
	return true, nil
}

func (r *Repository) GetPersonality(ctx context.Context, characterID string) (*models.Personality, error) {
	ctx, span := tracing.StartSpan(ctx, "character.Repository.GetPersonality")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(personalityColumns...)
	sb.From(personalitiesTable)
	sb.Where(sb.Equal("character_id", characterID))
	query, args := sb.Build()

	var row PersonalityRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get personality")
	}
	return row.ToPersonality(), nil
}

// Update applies the allow-listed fields, bumps version by exactly one and
// upserts the personality's dominant traits when personality_traits changed.
// Returns nil when the character does not exist.
func (r *Repository) Update(ctx context.Context, id string, req *models.UpdateCharacterRequest) (*models.Character, error) {
	ctx, span := tracing.StartSpan(ctx, "character.Repository.Update")
	defer span.End()

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)
	ctx = txCtx

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(charactersTable)

	assignments := []string{}
	if req.Name != nil {
		assignments = append(assignments, ub.Assign("name", *req.Name))
	}
	if req.Nickname != nil {
		assignments = append(assignments, ub.Assign("nickname", *req.Nickname))
	}
	if req.Age != nil {
		assignments = append(assignments, ub.Assign("age", *req.Age))
	}
	if req.Gender != nil {
		assignments = append(assignments, ub.Assign("gender", *req.Gender))
	}
	if req.Occupation != nil {
		assignments = append(assignments, ub.Assign("occupation", *req.Occupation))
	}
	if req.Backstory != nil {
		assignments = append(assignments, ub.Assign("backstory", *req.Backstory))
	}
	if req.PhysicalDescription != nil {
		assignments = append(assignments, ub.Assign("physical_description", *req.PhysicalDescription))
	}
	if req.PersonalityTraits != nil {
		assignments = append(assignments, ub.Assign("personality_traits", database.JSONB[[]string]{Data: *req.PersonalityTraits}))
	}
	if req.EmotionalState != nil {
		assignments = append(assignments, ub.Assign("emotional_state", database.JSONB[map[string]any]{Data: *req.EmotionalState}))
	}
	if req.NarrativeRole != nil {
		assignments = append(assignments, ub.Assign("narrative_role", *req.NarrativeRole))
	}

	now := time.Now().UTC()
	assignments = append(assignments,
		"version = version + 1",
		ub.Assign("updated_at", now),
	)

	ub.Set(assignments...)
	ub.Where(ub.Equal("id", id))
	ub.SQL("RETURNING " + strings.Join(characterColumns, ", "))
	query, args := ub.Build()

	var row CharacterRow
	if err := tx.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("character_id", id).Error("Failed to update character")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update character")
	}

	if req.PersonalityTraits != nil {
		if err := r.upsertDominantTraits(ctx, tx, id, *req.PersonalityTraits, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("character_id", id).Error("Failed to commit character update")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}
	return row.ToCharacter(), nil
}

func (r *Repository) upsertDominantTraits(ctx context.Context, tx database.Tx, characterID string, traits []string, now time.Time) error {
	ib := database.NewInsertBuilder()
	ib = ib.InsertInto(personalitiesTable)
	ib = ib.Cols("id", "character_id", "dominant_traits", "created_at", "updated_at")
	ib = ib.Values(uuid.New().String(), characterID, database.JSONB[[]string]{Data: traits}, now, now)
	ub := ib.OnConflict("character_id")
	ub.Set(
		ub.Assign("dominant_traits", database.Excluded("dominant_traits")),
		ub.Assign("updated_at", database.Excluded("updated_at")),
	)
	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("character_id", characterID).Error("Failed to upsert dominant traits")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert personality traits")
	}
	return nil
}

// Delete removes a character. Relationships and the personality row cascade at
// the database level. Returns false when no row was deleted.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "character.Repository.Delete")
	defer span.End()

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom(charactersTable)
	db.Where(db.Equal("id", id))
	query, args := db.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("character_id", id).Error("Failed to delete character")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete character")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete character")
	}
	return affected > 0, nil
}

// Search runs the filtered character search and returns a page plus the total
// match count.
func (r *Repository) Search(ctx context.Context, req *models.SearchCharactersRequest) ([]models.Character, int, error) {
	ctx, span := tracing.StartSpan(ctx, "character.Repository.Search")
	defer span.End()

	build := func(sb *sqlbuilder.SelectBuilder) {
		sb.From(charactersTable)
		if req.Query != "" {
			pattern := "%" + req.Query + "%"
			sb.Where(sb.Or(
				sb.ILike("name", pattern),
				sb.ILike("nickname", pattern),
				sb.ILike("occupation", pattern),
				sb.ILike("backstory", pattern),
			))
		}
		if req.NarrativeRole != nil {
			sb.Where(sb.Equal("narrative_role", *req.NarrativeRole))
		}
		if req.ArchetypeID != nil {
			sb.Where(sb.Equal("archetype_id", *req.ArchetypeID))
		}
		if req.MinAge != nil {
			sb.Where(sb.GTE("age", *req.MinAge))
		}
		if req.MaxAge != nil {
			sb.Where(sb.LTE("age", *req.MaxAge))
		}
		if len(req.Traits) > 0 {
			traitsJSON, _ := json.Marshal(req.Traits)
			sb.Where(fmt.Sprintf("personality_traits @> %s::jsonb", sb.Var(string(traitsJSON))))
		}
	}

	countSB := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSB.Select("COUNT(*)")
	build(countSB)
	query, args := countSB.Build()

	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count characters")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search characters")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(characterColumns...)
	build(sb)
	sb.OrderBy("created_at DESC")
	if req.Limit > 0 {
		sb.Limit(req.Limit)
	}
	if req.Offset > 0 {
		sb.Offset(req.Offset)
	}
	query, args = sb.Build()

	var rows []CharacterRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to search characters")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search characters")
	}

	characters := make([]models.Character, 0, len(rows))
	for i := range rows {
		characters = append(characters, *rows[i].ToCharacter())
	}
	return characters, total, nil
}

// GetBrief loads the node view (id, name, nickname, narrative_role) for a set
// of character ids.
func (r *Repository) GetBrief(ctx context.Context, ids []string) ([]models.NetworkCharacter, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, span := tracing.StartSpan(ctx, "character.Repository.GetBrief")
	defer span.End()

	query, args, err := sqlx.In(`
	  SELECT id, name, nickname, narrative_role
	  FROM characters
	  WHERE id IN (?)
	`, ids)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load characters")
	}
	query = r.db.Unsafe().Rebind(query)

	type briefRow struct {
		ID            string         `db:"id"`
		Name          string         `db:"name"`
		Nickname      sql.NullString `db:"nickname"`
		NarrativeRole sql.NullString `db:"narrative_role"`
	}
	var rows []briefRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load character briefs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load characters")
	}

	out := make([]models.NetworkCharacter, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.NetworkCharacter{
			ID:            row.ID,
			Name:          row.Name,
			Nickname:      stringPtr(row.Nickname),
			NarrativeRole: stringPtr(row.NarrativeRole),
		})
	}
	return out, nil
}
