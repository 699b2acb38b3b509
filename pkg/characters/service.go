package characters

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/tracing"
	"github.com/Ramsey-B/bramble/pkg/validation"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type characterStore interface {
	Create(ctx context.Context, ch *models.Character, pers *models.Personality) error
	GetByID(ctx context.Context, id string) (*models.Character, error)
	Exists(ctx context.Context, id string) (bool, error)
	GetPersonality(ctx context.Context, characterID string) (*models.Personality, error)
	Update(ctx context.Context, id string, req *models.UpdateCharacterRequest) (*models.Character, error)
	Delete(ctx context.Context, id string) (bool, error)
	Search(ctx context.Context, req *models.SearchCharactersRequest) ([]models.Character, int, error)
}

type archetypeStore interface {
	GetByID(ctx context.Context, id string) (*models.Archetype, error)
}

type relationshipLister interface {
	ListForCharacter(ctx context.Context, req *models.ListRelationshipsRequest) ([]models.Relationship, error)
}

type eventEmitter interface {
	CharacterCreated(ctx context.Context, ch *models.Character)
	CharacterUpdated(ctx context.Context, ch *models.Character)
	CharacterDeleted(ctx context.Context, characterID string)
}

type graphProjector interface {
	UpsertCharacter(ctx context.Context, ch *models.Character)
	DeleteCharacter(ctx context.Context, characterID string)
}

// Service owns character lifecycle and search.
type Service struct {
	characters    characterStore
	archetypes    archetypeStore
	relationships relationshipLister
	events        eventEmitter
	graph         graphProjector
	logger        ectologger.Logger
}

func NewService(characterRepo characterStore, archetypeRepo archetypeStore, relationshipRepo relationshipLister, events eventEmitter, graph graphProjector, logger ectologger.Logger) *Service {
	return &Service{
		characters:    characterRepo,
		archetypes:    archetypeRepo,
		relationships: relationshipRepo,
		events:        events,
		graph:         graph,
		logger:        logger,
	}
}

// Create validates the request and inserts the character, plus a personality
// row when traits are present. An archetype reference fills in traits the
// request left blank; explicit request values always win.
func (s *Service) Create(ctx context.Context, req *models.CreateCharacterRequest) (*models.Character, error) {
	ctx, span := tracing.StartSpan(ctx, "characters.Service.Create")
	defer span.End()

	name, err := validation.NormalizeName(req.Name)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Nickname != nil {
		if err := validation.CheckNickname(*req.Nickname); err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if req.Age != nil {
		if err := validation.CheckAge(*req.Age); err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if req.NarrativeRole != nil {
		if err := validation.CheckNarrativeRole(*req.NarrativeRole); err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	var archetype *models.Archetype
	if req.ArchetypeID != nil {
		archetype, err = s.archetypes.GetByID(ctx, *req.ArchetypeID)
		if err != nil {
			return nil, err
		}
		if archetype == nil {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "archetype not found: "+*req.ArchetypeID)
		}
	}

	traits := req.PersonalityTraits
	if len(traits) == 0 && archetype != nil {
		traits = archetype.DefaultTraits
	}

	now := time.Now().UTC()
	ch := &models.Character{
		ID:                  uuid.NewString(),
		Name:                name,
		Nickname:            req.Nickname,
		Age:                 req.Age,
		Gender:              req.Gender,
		Occupation:          req.Occupation,
		Backstory:           req.Backstory,
		PhysicalDescription: req.PhysicalDescription,
		PersonalityTraits:   traits,
		EmotionalState:      req.EmotionalState,
		NarrativeRole:       req.NarrativeRole,
		ArchetypeID:         req.ArchetypeID,
		Version:             1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	var pers *models.Personality
	if len(traits) > 0 {
		pers = &models.Personality{
			ID:             uuid.NewString(),
			CharacterID:    ch.ID,
			DominantTraits: traits,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if archetype != nil {
			pers.Motivations = archetype.CommonMotivations
		}
	}

	if err := s.characters.Create(ctx, ch, pers); err != nil {
		metrics.RecordCharacterOperation("create", "error")
		return nil, err
	}
	metrics.RecordCharacterOperation("create", "success")

	s.events.CharacterCreated(ctx, ch)
	s.graph.UpsertCharacter(ctx, ch)
	return ch, nil
}

// Get loads the character with its personality and archetype. Relationships
// are included on request since the list can be large.
func (s *Service) Get(ctx context.Context, id string, includeRelationships bool) (*models.CharacterDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "characters.Service.Get")
	defer span.End()

	ch, err := s.characters.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "character not found: "+id)
	}

	detail := &models.CharacterDetail{Character: *ch}

	pers, err := s.characters.GetPersonality(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Personality = pers

	if ch.ArchetypeID != nil {
		archetype, err := s.archetypes.GetByID(ctx, *ch.ArchetypeID)
		if err != nil {
			return nil, err
		}
		detail.Archetype = archetype
	}

	if includeRelationships {
		rels, err := s.relationships.ListForCharacter(ctx, &models.ListRelationshipsRequest{CharacterID: id})
		if err != nil {
			return nil, err
		}
		detail.Relationships = rels
	}
	return detail, nil
}

// Update applies the allow-listed fields and bumps the version counter. The
// version increments on every successful write, so readers can tell whether a
// character changed between fetches.
func (s *Service) Update(ctx context.Context, id string, req *models.UpdateCharacterRequest) (*models.Character, error) {
	ctx, span := tracing.StartSpan(ctx, "characters.Service.Update")
	defer span.End()

	if req.IsEmpty() {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "update must include at least one field")
	}
	if req.Name != nil {
		name, err := validation.NormalizeName(*req.Name)
		if err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		req.Name = &name
	}
	if req.Nickname != nil {
		if err := validation.CheckNickname(*req.Nickname); err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if req.Age != nil {
		if err := validation.CheckAge(*req.Age); err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if req.NarrativeRole != nil {
		if err := validation.CheckNarrativeRole(*req.NarrativeRole); err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	ch, err := s.characters.Update(ctx, id, req)
	if err != nil {
		metrics.RecordCharacterOperation("update", "error")
		return nil, err
	}
	if ch == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "character not found: "+id)
	}
	metrics.RecordCharacterOperation("update", "success")

	s.events.CharacterUpdated(ctx, ch)
	s.graph.UpsertCharacter(ctx, ch)
	return ch, nil
}

// Delete removes the character. Dependent rows (personality, relationships)
// cascade in the database. Returns false when the character was already gone.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "characters.Service.Delete")
	defer span.End()

	deleted, err := s.characters.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		metrics.RecordCharacterOperation("delete", "success")
		s.events.CharacterDeleted(ctx, id)
		s.graph.DeleteCharacter(ctx, id)
	}
	return deleted, nil
}

// Search runs a filtered, paginated character search.
func (s *Service) Search(ctx context.Context, req *models.SearchCharactersRequest) (*models.SearchCharactersResult, error) {
	ctx, span := tracing.StartSpan(ctx, "characters.Service.Search")
	defer span.End()

	if req.NarrativeRole != nil {
		if err := validation.CheckNarrativeRole(*req.NarrativeRole); err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if req.MinAge != nil {
		if err := validation.CheckAge(*req.MinAge); err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if req.MaxAge != nil {
		if err := validation.CheckAge(*req.MaxAge); err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if req.MinAge != nil && req.MaxAge != nil && *req.MinAge > *req.MaxAge {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "min_age cannot exceed max_age")
	}

	if req.Limit <= 0 {
		req.Limit = defaultSearchLimit
	}
	if req.Limit > maxSearchLimit {
		req.Limit = maxSearchLimit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	characters, total, err := s.characters.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	return &models.SearchCharactersResult{
		Characters: characters,
		Total:      total,
		Limit:      req.Limit,
		Offset:     req.Offset,
	}, nil
}
