package archetype

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ramsey-B/bramble/pkg/database"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

const archetypesTable = "archetypes"

const uniqueViolation = pq.ErrorCode("23505")

type ArchetypeRow struct {
	ID                   string                         `db:"id"`
	Name                 string                         `db:"name"`
	Description          sql.NullString                 `db:"description"`
	DefaultTraits        database.JSONB[[]string]       `db:"default_traits"`
	NarrativeFunction    sql.NullString                 `db:"narrative_function"`
	CommonMotivations    database.JSONB[[]string]       `db:"common_motivations"`
	RelationshipPatterns database.JSONB[map[string]any] `db:"relationship_patterns"`
	GrowthPatterns       database.JSONB[map[string]any] `db:"growth_patterns"`
	Examples             database.JSONB[[]string]       `db:"examples"`
	IsActive             bool                           `db:"is_active"`
	CreatedAt            time.Time                      `db:"created_at"`
	UpdatedAt            time.Time                      `db:"updated_at"`
}

var archetypeColumns = []string{
	"id", "name", "description", "default_traits", "narrative_function",
	"common_motivations", "relationship_patterns", "growth_patterns",
	"examples", "is_active", "created_at", "updated_at",
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

func FromArchetype(a *models.Archetype) *ArchetypeRow {
	return &ArchetypeRow{
		ID:                   a.ID,
		Name:                 a.Name,
		Description:          nullString(a.Description),
		DefaultTraits:        database.JSONB[[]string]{Data: a.DefaultTraits},
		NarrativeFunction:    nullString(a.NarrativeFunction),
		CommonMotivations:    database.JSONB[[]string]{Data: a.CommonMotivations},
		RelationshipPatterns: database.JSONB[map[string]any]{Data: a.RelationshipPatterns},
		GrowthPatterns:       database.JSONB[map[string]any]{Data: a.GrowthPatterns},
		Examples:             database.JSONB[[]string]{Data: a.Examples},
		IsActive:             a.IsActive,
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
	}
}

func (r *ArchetypeRow) ToArchetype() *models.Archetype {
	return &models.Archetype{
		ID:                   r.ID,
		Name:                 r.Name,
		Description:          stringPtr(r.Description),
		DefaultTraits:        r.DefaultTraits.Data,
		NarrativeFunction:    stringPtr(r.NarrativeFunction),
		CommonMotivations:    r.CommonMotivations.Data,
		RelationshipPatterns: r.RelationshipPatterns.Data,
		GrowthPatterns:       r.GrowthPatterns.Data,
		Examples:             r.Examples.Data,
		IsActive:             r.IsActive,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

// Repository persists archetype templates.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

func (r *Repository) Create(ctx context.Context, a *models.Archetype) error {
	ctx, span := tracing.StartSpan(ctx, "archetype.Repository.Create")
	defer span.End()

	row := FromArchetype(a)

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(archetypesTable)
	ib.Cols(archetypeColumns...)
	ib.Values(row.ID, row.Name, row.Description, row.DefaultTraits, row.NarrativeFunction,
		row.CommonMotivations, row.RelationshipPatterns, row.GrowthPatterns,
		row.Examples, row.IsActive, row.CreatedAt, row.UpdatedAt)
	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return httperror.NewHTTPError(http.StatusConflict, "archetype name already exists")
		}
		r.logger.WithContext(ctx).WithError(err).WithField("archetype_name", a.Name).Error("Failed to insert archetype")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert archetype")
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Archetype, error) {
	ctx, span := tracing.StartSpan(ctx, "archetype.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(archetypeColumns...)
	sb.From(archetypesTable)
	sb.Where(sb.Equal("id", id))
	query, args := sb.Build()

	var row ArchetypeRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("archetype_id", id).Error("Failed to get archetype")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get archetype")
	}
	return row.ToArchetype(), nil
}

func (r *Repository) GetByName(ctx context.Context, name string) (*models.Archetype, error) {
	ctx, span := tracing.StartSpan(ctx, "archetype.Repository.GetByName")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(archetypeColumns...)
	sb.From(archetypesTable)
	sb.Where(sb.Equal("name", name))
	query, args := sb.Build()

	var row ArchetypeRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get archetype")
	}
	return row.ToArchetype(), nil
}

func (r *Repository) List(ctx context.Context, activeOnly bool) ([]models.Archetype, error) {
	ctx, span := tracing.StartSpan(ctx, "archetype.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(archetypeColumns...)
	sb.From(archetypesTable)
	if activeOnly {
		sb.Where(sb.Equal("is_active", true))
	}
	sb.OrderBy("name ASC")
	query, args := sb.Build()

	var rows []ArchetypeRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list archetypes")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list archetypes")
	}

	out := make([]models.Archetype, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToArchetype())
	}
	return out, nil
}

func (r *Repository) Update(ctx context.Context, id string, req *models.UpdateArchetypeRequest) (*models.Archetype, error) {
	ctx, span := tracing.StartSpan(ctx, "archetype.Repository.Update")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(archetypesTable)

	assignments := []string{}
	if req.Description != nil {
		assignments = append(assignments, ub.Assign("description", *req.Description))
	}
	if req.DefaultTraits != nil {
		assignments = append(assignments, ub.Assign("default_traits", database.JSONB[[]string]{Data: *req.DefaultTraits}))
	}
	if req.NarrativeFunction != nil {
		assignments = append(assignments, ub.Assign("narrative_function", *req.NarrativeFunction))
	}
	if req.CommonMotivations != nil {
		assignments = append(assignments, ub.Assign("common_motivations", database.JSONB[[]string]{Data: *req.CommonMotivations}))
	}
	if req.RelationshipPatterns != nil {
		assignments = append(assignments, ub.Assign("relationship_patterns", database.JSONB[map[string]any]{Data: *req.RelationshipPatterns}))
	}
	if req.GrowthPatterns != nil {
		assignments = append(assignments, ub.Assign("growth_patterns", database.JSONB[map[string]any]{Data: *req.GrowthPatterns}))
	}
	if req.Examples != nil {
		assignments = append(assignments, ub.Assign("examples", database.JSONB[[]string]{Data: *req.Examples}))
	}
	if req.IsActive != nil {
		assignments = append(assignments, ub.Assign("is_active", *req.IsActive))
	}
	assignments = append(assignments, ub.Assign("updated_at", time.Now().UTC()))

	ub.Set(assignments...)
	ub.Where(ub.Equal("id", id))
	ub.SQL("RETURNING id, name, description, default_traits, narrative_function, common_motivations, relationship_patterns, growth_patterns, examples, is_active, created_at, updated_at")
	query, args := ub.Build()

	var row ArchetypeRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("archetype_id", id).Error("Failed to update archetype")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update archetype")
	}
	return row.ToArchetype(), nil
}

// Delete removes an archetype. Characters pointing at it get archetype_id set
// to NULL at the database level.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "archetype.Repository.Delete")
	defer span.End()

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom(archetypesTable)
	db.Where(db.Equal("id", id))
	query, args := db.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("archetype_id", id).Error("Failed to delete archetype")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete archetype")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete archetype")
	}
	return affected > 0, nil
}
