package characters

import (
	"context"
	"strings"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/bramble/pkg/models"
)

type fakeCharacterStore struct {
	characters    map[string]*models.Character
	personalities map[string]*models.Personality
}

func newFakeCharacterStore() *fakeCharacterStore {
	return &fakeCharacterStore{
		characters:    map[string]*models.Character{},
		personalities: map[string]*models.Personality{},
	}
}

func (f *fakeCharacterStore) Create(ctx context.Context, ch *models.Character, pers *models.Personality) error {
	f.characters[ch.ID] = ch
	if pers != nil {
		f.personalities[ch.ID] = pers
	}
	return nil
}

func (f *fakeCharacterStore) GetByID(ctx context.Context, id string) (*models.Character, error) {
	return f.characters[id], nil
}

func (f *fakeCharacterStore) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := f.characters[id]
	return ok, nil
}

func (f *fakeCharacterStore) GetPersonality(ctx context.Context, characterID string) (*models.Personality, error) {
	return f.personalities[characterID], nil
}

func (f *fakeCharacterStore) Update(ctx context.Context, id string, req *models.UpdateCharacterRequest) (*models.Character, error) {
	ch, ok := f.characters[id]
	if !ok {
		return nil, nil
	}
	if req.Name != nil {
		ch.Name = *req.Name
	}
	if req.Nickname != nil {
		ch.Nickname = req.Nickname
	}
	if req.Age != nil {
		ch.Age = req.Age
	}
	if req.Backstory != nil {
		ch.Backstory = req.Backstory
	}
	if req.NarrativeRole != nil {
		ch.NarrativeRole = req.NarrativeRole
	}
	ch.Version++
	return ch, nil
}

func (f *fakeCharacterStore) Delete(ctx context.Context, id string) (bool, error) {
	if _, ok := f.characters[id]; !ok {
		return false, nil
	}
	delete(f.characters, id)
	delete(f.personalities, id)
	return true, nil
}

func (f *fakeCharacterStore) Search(ctx context.Context, req *models.SearchCharactersRequest) ([]models.Character, int, error) {
	matches := []models.Character{}
	for _, ch := range f.characters {
		if req.Query != "" && !strings.Contains(strings.ToLower(ch.Name), strings.ToLower(req.Query)) {
			continue
		}
		if req.NarrativeRole != nil && (ch.NarrativeRole == nil || *ch.NarrativeRole != *req.NarrativeRole) {
			continue
		}
		matches = append(matches, *ch)
	}
	total := len(matches)
	if req.Offset >= len(matches) {
		return []models.Character{}, total, nil
	}
	matches = matches[req.Offset:]
	if len(matches) > req.Limit {
		matches = matches[:req.Limit]
	}
	return matches, total, nil
}

type fakeArchetypeStore struct {
	archetypes map[string]*models.Archetype
}

func (f *fakeArchetypeStore) GetByID(ctx context.Context, id string) (*models.Archetype, error) {
	return f.archetypes[id], nil
}

type fakeRelationshipLister struct {
	relationships []models.Relationship
}

func (f *fakeRelationshipLister) ListForCharacter(ctx context.Context, req *models.ListRelationshipsRequest) ([]models.Relationship, error) {
	out := []models.Relationship{}
	for _, rel := range f.relationships {
		if rel.CharacterAID == req.CharacterID {
			out = append(out, rel)
		}
	}
	return out, nil
}

type fakeEmitter struct {
	created, updated, deleted int
}

func (f *fakeEmitter) CharacterCreated(ctx context.Context, ch *models.Character) { f.created++ }
func (f *fakeEmitter) CharacterUpdated(ctx context.Context, ch *models.Character) { f.updated++ }
func (f *fakeEmitter) CharacterDeleted(ctx context.Context, id string)            { f.deleted++ }

type fakeProjector struct {
	upserts, deletes int
}

func (f *fakeProjector) UpsertCharacter(ctx context.Context, ch *models.Character) { f.upserts++ }
func (f *fakeProjector) DeleteCharacter(ctx context.Context, id string)            { f.deletes++ }

type testDeps struct {
	store     *fakeCharacterStore
	archetype *fakeArchetypeStore
	rels      *fakeRelationshipLister
	emitter   *fakeEmitter
	projector *fakeProjector
}

func newTestService(t *testing.T) (*Service, *testDeps) {
	t.Helper()
	deps := &testDeps{
		store:     newFakeCharacterStore(),
		archetype: &fakeArchetypeStore{archetypes: map[string]*models.Archetype{}},
		rels:      &fakeRelationshipLister{},
		emitter:   &fakeEmitter{},
		projector: &fakeProjector{},
	}
	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {})
	svc := NewService(deps.store, deps.archetype, deps.rels, deps.emitter, deps.projector, logger)
	return svc, deps
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a character and emits events", func(t *testing.T) {
		svc, deps := newTestService(t)

		ch, err := svc.Create(ctx, &models.CreateCharacterRequest{
			Name:          "  Elara Voss  ",
			Age:           intPtr(34),
			NarrativeRole: strPtr("protagonist"),
		})
		require.NoError(t, err)

		assert.Equal(t, "Elara Voss", ch.Name, "name is trimmed")
		assert.Equal(t, 1, ch.Version)
		assert.NotEmpty(t, ch.ID)
		assert.Equal(t, 1, deps.emitter.created)
		assert.Equal(t, 1, deps.projector.upserts)
		assert.Nil(t, deps.store.personalities[ch.ID], "no traits means no personality row")
	})

	t.Run("traits create a personality row", func(t *testing.T) {
		svc, deps := newTestService(t)

		ch, err := svc.Create(ctx, &models.CreateCharacterRequest{
			Name:              "Bran",
			PersonalityTraits: []string{"stoic", "loyal"},
		})
		require.NoError(t, err)

		pers := deps.store.personalities[ch.ID]
		require.NotNil(t, pers)
		assert.Equal(t, []string{"stoic", "loyal"}, pers.DominantTraits)
	})

	t.Run("archetype defaults fill blank traits", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.archetype.archetypes["arch-1"] = &models.Archetype{
			ID:                "arch-1",
			Name:              "the mentor",
			DefaultTraits:     []string{"wise", "patient"},
			CommonMotivations: []string{"guide the hero"},
		}

		ch, err := svc.Create(ctx, &models.CreateCharacterRequest{
			Name:        "Aldric",
			ArchetypeID: strPtr("arch-1"),
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"wise", "patient"}, ch.PersonalityTraits)
		pers := deps.store.personalities[ch.ID]
		require.NotNil(t, pers)
		assert.Equal(t, []string{"guide the hero"}, pers.Motivations)
	})

	t.Run("explicit traits win over archetype defaults", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.archetype.archetypes["arch-1"] = &models.Archetype{
			ID:            "arch-1",
			Name:          "the mentor",
			DefaultTraits: []string{"wise"},
		}

		ch, err := svc.Create(ctx, &models.CreateCharacterRequest{
			Name:              "Aldric",
			ArchetypeID:       strPtr("arch-1"),
			PersonalityTraits: []string{"grumpy"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"grumpy"}, ch.PersonalityTraits)
	})

	t.Run("unknown archetype returns not found", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.Create(ctx, &models.CreateCharacterRequest{
			Name:        "Aldric",
			ArchetypeID: strPtr("missing"),
		})
		require.Error(t, err)
		assert.Equal(t, 404, httperror.GetStatusCode(err))
	})

	t.Run("validation failures", func(t *testing.T) {
		svc, deps := newTestService(t)

		cases := []struct {
			name string
			req  *models.CreateCharacterRequest
		}{
			{"blank name", &models.CreateCharacterRequest{Name: "   "}},
			{"name too long", &models.CreateCharacterRequest{Name: strings.Repeat("x", 101)}},
			{"nickname too long", &models.CreateCharacterRequest{Name: "ok", Nickname: strPtr(strings.Repeat("x", 51))}},
			{"age out of range", &models.CreateCharacterRequest{Name: "ok", Age: intPtr(201)}},
			{"negative age", &models.CreateCharacterRequest{Name: "ok", Age: intPtr(-1)}},
			{"bad narrative role", &models.CreateCharacterRequest{Name: "ok", NarrativeRole: strPtr("villain")}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := svc.Create(ctx, tc.req)
				require.Error(t, err)
				assert.Equal(t, 400, httperror.GetStatusCode(err))
			})
		}
		assert.Zero(t, deps.emitter.created)
	})
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("returns detail with personality and archetype", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.archetype.archetypes["arch-1"] = &models.Archetype{ID: "arch-1", Name: "the trickster"}

		ch, err := svc.Create(ctx, &models.CreateCharacterRequest{
			Name:              "Puck",
			ArchetypeID:       strPtr("arch-1"),
			PersonalityTraits: []string{"mischievous"},
		})
		require.NoError(t, err)

		detail, err := svc.Get(ctx, ch.ID, false)
		require.NoError(t, err)
		assert.Equal(t, ch.Name, detail.Name)
		require.NotNil(t, detail.Personality)
		require.NotNil(t, detail.Archetype)
		assert.Equal(t, "the trickster", detail.Archetype.Name)
		assert.Nil(t, detail.Relationships)
	})

	t.Run("includes relationships on request", func(t *testing.T) {
		svc, deps := newTestService(t)

		ch, err := svc.Create(ctx, &models.CreateCharacterRequest{Name: "Puck"})
		require.NoError(t, err)
		deps.rels.relationships = []models.Relationship{
			{ID: "rel-1", CharacterAID: ch.ID, CharacterBID: "other", RelationshipType: "friendship"},
		}

		detail, err := svc.Get(ctx, ch.ID, true)
		require.NoError(t, err)
		require.Len(t, detail.Relationships, 1)
	})

	t.Run("unknown id returns not found", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.Get(ctx, "missing", false)
		require.Error(t, err)
		assert.Equal(t, 404, httperror.GetStatusCode(err))
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("updates fields and bumps the version", func(t *testing.T) {
		svc, deps := newTestService(t)

		ch, err := svc.Create(ctx, &models.CreateCharacterRequest{Name: "Bran"})
		require.NoError(t, err)

		updated, err := svc.Update(ctx, ch.ID, &models.UpdateCharacterRequest{
			Name: strPtr("  Brandon  "),
			Age:  intPtr(20),
		})
		require.NoError(t, err)
		assert.Equal(t, "Brandon", updated.Name)
		assert.Equal(t, 2, updated.Version)
		assert.Equal(t, 1, deps.emitter.updated)
	})

	t.Run("empty update is rejected", func(t *testing.T) {
		svc, _ := newTestService(t)

		ch, err := svc.Create(ctx, &models.CreateCharacterRequest{Name: "Bran"})
		require.NoError(t, err)

		_, err = svc.Update(ctx, ch.ID, &models.UpdateCharacterRequest{})
		require.Error(t, err)
		assert.Equal(t, 400, httperror.GetStatusCode(err))
	})

	t.Run("sequential updates increment the version each time", func(t *testing.T) {
		svc, _ := newTestService(t)

		ch, err := svc.Create(ctx, &models.CreateCharacterRequest{Name: "Elena", Age: intPtr(28)})
		require.NoError(t, err)
		assert.Equal(t, 1, ch.Version)

		first, err := svc.Update(ctx, ch.ID, &models.UpdateCharacterRequest{Age: intPtr(29)})
		require.NoError(t, err)
		assert.Equal(t, 2, first.Version)
		assert.Equal(t, []string{"age"}, (&models.UpdateCharacterRequest{Age: intPtr(29)}).UpdatedFields())

		second, err := svc.Update(ctx, ch.ID, &models.UpdateCharacterRequest{Age: intPtr(29)})
		require.NoError(t, err)
		assert.Equal(t, 3, second.Version, "version grows by one per write, even when the value repeats")
	})

	t.Run("unknown character returns not found", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.Update(ctx, "missing", &models.UpdateCharacterRequest{Age: intPtr(30)})
		require.Error(t, err)
		assert.Equal(t, 404, httperror.GetStatusCode(err))
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, deps := newTestService(t)

	ch, err := svc.Create(ctx, &models.CreateCharacterRequest{Name: "Bran"})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, ch.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 1, deps.emitter.deleted)
	assert.Equal(t, 1, deps.projector.deletes)

	deleted, err = svc.Delete(ctx, ch.ID)
	require.NoError(t, err)
	assert.False(t, deleted, "second delete is a no-op")
	assert.Equal(t, 1, deps.emitter.deleted)
}

func TestService_Search(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) (*Service, *testDeps) {
		svc, deps := newTestService(t)
		names := []string{"Elara Voss", "Elias Thorn", "Mara Quinn"}
		for _, name := range names {
			_, err := svc.Create(ctx, &models.CreateCharacterRequest{Name: name})
			require.NoError(t, err)
		}
		return svc, deps
	}

	t.Run("query matches by name", func(t *testing.T) {
		svc, _ := seed(t)

		result, err := svc.Search(ctx, &models.SearchCharactersRequest{Query: "el"})
		require.NoError(t, err)
		assert.Equal(t, 2, result.Total)
		assert.Len(t, result.Characters, 2)
	})

	t.Run("limit defaults and clamps", func(t *testing.T) {
		svc, _ := seed(t)

		result, err := svc.Search(ctx, &models.SearchCharactersRequest{})
		require.NoError(t, err)
		assert.Equal(t, defaultSearchLimit, result.Limit)

		result, err = svc.Search(ctx, &models.SearchCharactersRequest{Limit: 10_000})
		require.NoError(t, err)
		assert.Equal(t, maxSearchLimit, result.Limit)
	})

	t.Run("invalid age range is rejected", func(t *testing.T) {
		svc, _ := seed(t)

		_, err := svc.Search(ctx, &models.SearchCharactersRequest{MinAge: intPtr(50), MaxAge: intPtr(20)})
		require.Error(t, err)
		assert.Equal(t, 400, httperror.GetStatusCode(err))
	})

	t.Run("invalid narrative role filter is rejected", func(t *testing.T) {
		svc, _ := seed(t)

		_, err := svc.Search(ctx, &models.SearchCharactersRequest{NarrativeRole: strPtr("villain")})
		require.Error(t, err)
		assert.Equal(t, 400, httperror.GetStatusCode(err))
	})
}
