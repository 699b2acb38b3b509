package relationship

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Ramsey-B/bramble/pkg/database"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

const uniqueViolation = pq.ErrorCode("23505")

// Repository persists relationship rows. A logical relationship is a pair of
// directed rows; pair-writing methods keep both rows in one transaction.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Relationship, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(relationshipColumns...)
	sb.From(relationshipsTable)
	sb.Where(sb.Equal("id", id))
	query, args := sb.Build()

	var row RelationshipRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("relationship_id", id).Error("Failed to get relationship")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get relationship")
	}
	return row.ToRelationship(), nil
}

// GetBetween returns the relationships between the two characters, optionally
// narrowed to one type. Mutual pairs are matched by the row facing
// characterAID; one-sided rows have no mirror, so the reverse orientation is
// matched as well to keep the lookup symmetric.
func (r *Repository) GetBetween(ctx context.Context, characterAID, characterBID string, relationshipType *string) ([]models.Relationship, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.GetBetween")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(relationshipColumns...)
	sb.From(relationshipsTable)
	sb.Where(sb.Or(
		sb.And(sb.Equal("character_a_id", characterAID), sb.Equal("character_b_id", characterBID)),
		sb.And(sb.Equal("character_a_id", characterBID), sb.Equal("character_b_id", characterAID), sb.Equal("is_mutual", false)),
	))
	if relationshipType != nil {
		sb.Where(sb.Equal("relationship_type", *relationshipType))
	}
	sb.OrderBy("created_at DESC")
	query, args := sb.Build()

	var rows []RelationshipRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get relationships between characters")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get relationships")
	}
	return toRelationships(rows), nil
}

// ExistsPair reports whether a relationship of the given type exists between
// the two characters in either direction. Both directions are checked so a
// half-written pair still counts as existing.
func (r *Repository) ExistsPair(ctx context.Context, characterAID, characterBID, relationshipType string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.ExistsPair")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("1")
	sb.From(relationshipsTable)
	sb.Where(
		sb.Equal("relationship_type", relationshipType),
		sb.Or(
			sb.And(sb.Equal("character_a_id", characterAID), sb.Equal("character_b_id", characterBID)),
			sb.And(sb.Equal("character_a_id", characterBID), sb.Equal("character_b_id", characterAID)),
		),
	)
	sb.Limit(1)
	query, args := sb.Build()

	var one int
	if err := r.db.GetContext(ctx, &one, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return false, nil
		}
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to check relationship existence")
	}
	return true, nil
}

// CreatePair inserts the canonical row and, when mirror is non-nil, its mirror
// in one transaction. A unique violation from either insert means the pair
// already exists.
func (r *Repository) CreatePair(ctx context.Context, canonical, mirror *models.Relationship) error {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.CreatePair")
	defer span.End()

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)
	ctx = txCtx

	rows := []*models.Relationship{canonical}
	if mirror != nil {
		rows = append(rows, mirror)
	}
	for _, rel := range rows {
		row := FromRelationship(rel)
		ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
		ib.InsertInto(relationshipsTable)
		ib.Cols(relationshipColumns...)
		ib.Values(row.ID, row.CharacterAID, row.CharacterBID, row.RelationshipType, row.Strength,
			row.Status, row.History, row.Metadata, row.IsMutual, row.CreatedAt, row.UpdatedAt)
		query, args := ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
				return httperror.NewHTTPError(http.StatusConflict, "relationship already exists between these characters")
			}
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"character_a_id": rel.CharacterAID,
				"character_b_id": rel.CharacterBID,
			}).Error("Failed to insert relationship")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert relationship")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to commit relationship create")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}
	return nil
}

// UpdatePair applies content fields to the row and, for mutual relationships,
// propagates the same change to the mirror row in the same transaction. A
// missing mirror is logged and tolerated. One-sided rows are never given a
// mirror. Returns nil when the relationship does not exist.
func (r *Repository) UpdatePair(ctx context.Context, id string, req *models.UpdateRelationshipRequest) (*models.Relationship, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.UpdatePair")
	defer span.End()

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)
	ctx = txCtx

	now := time.Now().UTC()

	assign := func(ub *sqlbuilder.UpdateBuilder) []string {
		assignments := []string{}
		if req.Strength != nil {
			assignments = append(assignments, ub.Assign("strength", *req.Strength))
		}
		if req.Status != nil {
			assignments = append(assignments, ub.Assign("status", *req.Status))
		}
		if req.History != nil {
			assignments = append(assignments, ub.Assign("history", *req.History))
		}
		if req.Metadata != nil {
			assignments = append(assignments, ub.Assign("metadata", database.JSONB[map[string]any]{Data: *req.Metadata}))
		}
		assignments = append(assignments, ub.Assign("updated_at", now))
		return assignments
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(relationshipsTable)
	ub.Set(assign(ub)...)
	ub.Where(ub.Equal("id", id))
	ub.SQL("RETURNING id, character_a_id, character_b_id, relationship_type, strength, status, history, metadata, is_mutual, created_at, updated_at")
	query, args := ub.Build()

	var row RelationshipRow
	if err := tx.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("relationship_id", id).Error("Failed to update relationship")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update relationship")
	}

	if row.IsMutual {
		mirrorUB := sqlbuilder.PostgreSQL.NewUpdateBuilder()
		mirrorUB.Update(relationshipsTable)
		mirrorUB.Set(assign(mirrorUB)...)
		mirrorUB.Where(
			mirrorUB.Equal("character_a_id", row.CharacterBID),
			mirrorUB.Equal("character_b_id", row.CharacterAID),
			mirrorUB.Equal("relationship_type", row.RelationshipType),
		)
		query, args = mirrorUB.Build()

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).WithField("relationship_id", id).Error("Failed to update mirror relationship")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update relationship")
		}
		if affected, err := result.RowsAffected(); err == nil && affected == 0 {
			r.logger.WithContext(ctx).WithFields(map[string]any{
				"relationship_id": id,
				"character_a_id":  row.CharacterAID,
				"character_b_id":  row.CharacterBID,
			}).Warnf("Mirror relationship row missing during update, continuing")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to commit relationship update")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}
	return row.ToRelationship(), nil
}

// DeletePair removes the row and, for mutual relationships, its mirror in one
// transaction. Returns false when the relationship was already gone, making
// deletes idempotent.
func (r *Repository) DeletePair(ctx context.Context, id string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.DeletePair")
	defer span.End()

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)
	ctx = txCtx

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("character_a_id", "character_b_id", "relationship_type", "is_mutual")
	sb.From(relationshipsTable)
	sb.Where(sb.Equal("id", id))
	query, args := sb.Build()

	var row RelationshipRow
	if err := tx.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return false, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("relationship_id", id).Error("Failed to load relationship for delete")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete relationship")
	}

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom(relationshipsTable)
	if row.IsMutual {
		db.Where(
			db.Equal("relationship_type", row.RelationshipType),
			db.Or(
				db.And(db.Equal("character_a_id", row.CharacterAID), db.Equal("character_b_id", row.CharacterBID)),
				db.And(db.Equal("character_a_id", row.CharacterBID), db.Equal("character_b_id", row.CharacterAID)),
			),
		)
	} else {
		db.Where(db.Equal("id", id))
	}
	query, args = db.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("relationship_id", id).Error("Failed to delete relationship pair")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete relationship")
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to commit relationship delete")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}
	return true, nil
}

// ListForCharacter returns the character's relationships, newest first. Mutual
// relationships surface through the character's own row; one-sided rows are
// also matched from the far side so they stay visible to both participants.
func (r *Repository) ListForCharacter(ctx context.Context, req *models.ListRelationshipsRequest) ([]models.Relationship, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.ListForCharacter")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(relationshipColumns...)
	sb.From(relationshipsTable)
	sb.Where(sb.Or(
		sb.Equal("character_a_id", req.CharacterID),
		sb.And(sb.Equal("character_b_id", req.CharacterID), sb.Equal("is_mutual", false)),
	))
	if req.RelationshipType != nil {
		sb.Where(sb.Equal("relationship_type", *req.RelationshipType))
	}
	if req.Status != nil {
		sb.Where(sb.Equal("status", *req.Status))
	}
	sb.OrderBy("created_at DESC")
	query, args := sb.Build()

	var rows []RelationshipRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("character_id", req.CharacterID).Error("Failed to list relationships")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list relationships")
	}
	return toRelationships(rows), nil
}

// ListForCharacters loads the edges touching a traversal frontier in one
// query. One-sided rows are matched from either column since they have no
// mirror.
func (r *Repository) ListForCharacters(ctx context.Context, characterIDs []string) ([]models.Relationship, error) {
	if len(characterIDs) == 0 {
		return nil, nil
	}

	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.ListForCharacters")
	defer span.End()

	query, args, err := sqlx.In(`
	  SELECT id, character_a_id, character_b_id, relationship_type, strength,
			 status, history, metadata, is_mutual, created_at, updated_at
	  FROM relationships
	  WHERE character_a_id IN (?)
		 OR (character_b_id IN (?) AND is_mutual = FALSE)
	`, characterIDs, characterIDs)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load relationships")
	}
	query = r.db.Unsafe().Rebind(query)

	var rows []RelationshipRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load frontier relationships")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load relationships")
	}
	return toRelationships(rows), nil
}

func toRelationships(rows []RelationshipRow) []models.Relationship {
	out := make([]models.Relationship, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToRelationship())
	}
	return out
}
