package relationships

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/bramble/config"
	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/tracing"
	"github.com/Ramsey-B/bramble/pkg/validation"
)

type relationshipStore interface {
	GetByID(ctx context.Context, id string) (*models.Relationship, error)
	GetBetween(ctx context.Context, characterAID, characterBID string, relationshipType *string) ([]models.Relationship, error)
	ExistsPair(ctx context.Context, characterAID, characterBID, relationshipType string) (bool, error)
	CreatePair(ctx context.Context, canonical, mirror *models.Relationship) error
	UpdatePair(ctx context.Context, id string, req *models.UpdateRelationshipRequest) (*models.Relationship, error)
	DeletePair(ctx context.Context, id string) (bool, error)
	ListForCharacter(ctx context.Context, req *models.ListRelationshipsRequest) ([]models.Relationship, error)
	ListForCharacters(ctx context.Context, characterIDs []string) ([]models.Relationship, error)
}

type characterStore interface {
	Exists(ctx context.Context, id string) (bool, error)
	GetBrief(ctx context.Context, ids []string) ([]models.NetworkCharacter, error)
}

type eventEmitter interface {
	RelationshipCreated(ctx context.Context, rel *models.Relationship)
	RelationshipUpdated(ctx context.Context, rel *models.Relationship)
	RelationshipDeleted(ctx context.Context, relationshipID string)
}

type graphProjector interface {
	UpsertRelationship(ctx context.Context, rel *models.Relationship)
	DeleteRelationship(ctx context.Context, rel *models.Relationship)
}

// Engine owns the relationship model. A mutual relationship is a pair of
// directed rows written together, so either character's listing sees the
// relationship from its own side without joins. A one-sided relationship is a
// single row and never gains a mirror.
type Engine struct {
	relationships relationshipStore
	characters    characterStore
	events        eventEmitter
	graph         graphProjector
	cfg           *config.Config
	logger        ectologger.Logger
}

func NewEngine(relationshipRepo relationshipStore, characterRepo characterStore, events eventEmitter, graph graphProjector, cfg *config.Config, logger ectologger.Logger) *Engine {
	return &Engine{
		relationships: relationshipRepo,
		characters:    characterRepo,
		events:        events,
		graph:         graph,
		cfg:           cfg,
		logger:        logger,
	}
}

// Create validates the request and writes the canonical row, plus its mirror
// when the relationship is mutual, in one transaction. Returns the
// relationship from the requesting character's perspective.
func (e *Engine) Create(ctx context.Context, req *models.CreateRelationshipRequest) (*models.Relationship, error) {
	ctx, span := tracing.StartSpan(ctx, "relationships.Engine.Create")
	defer span.End()

	if req.CharacterAID == req.CharacterBID {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "a character cannot have a relationship with itself")
	}
	if err := validation.CheckRelationshipType(req.RelationshipType); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Strength != nil {
		if err := validation.CheckStrength(*req.Strength); err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	status := "active"
	if req.Status != nil {
		if err := validation.CheckRelationshipStatus(*req.Status); err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		status = *req.Status
	}

	for _, id := range []string{req.CharacterAID, req.CharacterBID} {
		exists, err := e.characters.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, "one or both characters do not exist: "+id)
		}
	}

	exists, err := e.relationships.ExistsPair(ctx, req.CharacterAID, req.CharacterBID, req.RelationshipType)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, httperror.NewHTTPError(http.StatusConflict, "relationship of this type already exists between these characters")
	}

	now := time.Now().UTC()
	mutual := req.Mutual()
	canonical := &models.Relationship{
		ID:               uuid.NewString(),
		CharacterAID:     req.CharacterAID,
		CharacterBID:     req.CharacterBID,
		RelationshipType: req.RelationshipType,
		Strength:         req.Strength,
		Status:           status,
		History:          req.History,
		Metadata:         req.Metadata,
		IsMutual:         mutual,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	var mirror *models.Relationship
	if mutual {
		mirror = &models.Relationship{
			ID:               uuid.NewString(),
			CharacterAID:     req.CharacterBID,
			CharacterBID:     req.CharacterAID,
			RelationshipType: req.RelationshipType,
			Strength:         req.Strength,
			Status:           status,
			History:          req.History,
			Metadata:         req.Metadata,
			IsMutual:         true,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
	}

	if err := e.relationships.CreatePair(ctx, canonical, mirror); err != nil {
		metrics.RecordRelationshipOperation("create", "error")
		return nil, err
	}
	metrics.RecordRelationshipOperation("create", "success")

	e.events.RelationshipCreated(ctx, canonical)
	e.graph.UpsertRelationship(ctx, canonical)
	return canonical, nil
}

// Update applies content fields to the relationship and its mirror. Identity
// fields are immutable; an empty update is rejected rather than silently
// succeeding.
func (e *Engine) Update(ctx context.Context, id string, req *models.UpdateRelationshipRequest) (*models.Relationship, error) {
	ctx, span := tracing.StartSpan(ctx, "relationships.Engine.Update")
	defer span.End()

	if req.IsEmpty() {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "update must include at least one field")
	}
	if req.Strength != nil {
		if err := validation.CheckStrength(*req.Strength); err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if req.Status != nil {
		if err := validation.CheckRelationshipStatus(*req.Status); err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	rel, err := e.relationships.UpdatePair(ctx, id, req)
	if err != nil {
		metrics.RecordRelationshipOperation("update", "error")
		return nil, err
	}
	if rel == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "relationship not found: "+id)
	}
	metrics.RecordRelationshipOperation("update", "success")

	e.events.RelationshipUpdated(ctx, rel)
	e.graph.UpsertRelationship(ctx, rel)
	return rel, nil
}

// Delete removes the relationship pair. Returns false without error when the
// relationship was already gone.
func (e *Engine) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "relationships.Engine.Delete")
	defer span.End()

	rel, err := e.relationships.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if rel == nil {
		return false, nil
	}

	deleted, err := e.relationships.DeletePair(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		metrics.RecordRelationshipOperation("delete", "success")
		e.events.RelationshipDeleted(ctx, id)
		e.graph.DeleteRelationship(ctx, rel)
	}
	return deleted, nil
}

func (e *Engine) GetByID(ctx context.Context, id string) (*models.Relationship, error) {
	ctx, span := tracing.StartSpan(ctx, "relationships.Engine.GetByID")
	defer span.End()

	rel, err := e.relationships.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rel == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "relationship not found: "+id)
	}
	return rel, nil
}

// GetBetween returns the relationships between two characters from the first
// character's perspective.
func (e *Engine) GetBetween(ctx context.Context, characterAID, characterBID string, relationshipType *string) ([]models.Relationship, error) {
	ctx, span := tracing.StartSpan(ctx, "relationships.Engine.GetBetween")
	defer span.End()

	if relationshipType != nil {
		if err := validation.CheckRelationshipType(*relationshipType); err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return e.relationships.GetBetween(ctx, characterAID, characterBID, relationshipType)
}

// ListForCharacter returns a character's relationships, newest first.
func (e *Engine) ListForCharacter(ctx context.Context, req *models.ListRelationshipsRequest) ([]models.Relationship, error) {
	ctx, span := tracing.StartSpan(ctx, "relationships.Engine.ListForCharacter")
	defer span.End()

	if req.RelationshipType != nil {
		if err := validation.CheckRelationshipType(*req.RelationshipType); err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if req.Status != nil {
		if err := validation.CheckRelationshipStatus(*req.Status); err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	exists, err := e.characters.Exists(ctx, req.CharacterID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "character not found: "+req.CharacterID)
	}
	return e.relationships.ListForCharacter(ctx, req)
}

// ListForCharacterWithRelated returns a character's relationships with the
// far-side character resolved to an id/name/nickname reference, so callers can
// render the list without a lookup per row.
func (e *Engine) ListForCharacterWithRelated(ctx context.Context, req *models.ListRelationshipsRequest) ([]models.RelationshipWithCharacter, error) {
	ctx, span := tracing.StartSpan(ctx, "relationships.Engine.ListForCharacterWithRelated")
	defer span.End()

	rels, err := e.ListForCharacter(ctx, req)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	otherIDs := []string{}
	for i := range rels {
		other := rels[i].OtherCharacterID(req.CharacterID)
		if !seen[other] {
			seen[other] = true
			otherIDs = append(otherIDs, other)
		}
	}

	briefs, err := e.characters.GetBrief(ctx, otherIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.NetworkCharacter, len(briefs))
	for _, brief := range briefs {
		byID[brief.ID] = brief
	}

	out := make([]models.RelationshipWithCharacter, 0, len(rels))
	for i := range rels {
		other := rels[i].OtherCharacterID(req.CharacterID)
		ref := models.CharacterRef{ID: other}
		if brief, ok := byID[other]; ok {
			ref.Name = brief.Name
			ref.Nickname = brief.Nickname
		}
		out = append(out, models.RelationshipWithCharacter{
			Relationship:     rels[i],
			RelatedCharacter: ref,
		})
	}
	return out, nil
}
