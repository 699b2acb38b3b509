package relationships

import (
	"context"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/bramble/config"
	"github.com/Ramsey-B/bramble/pkg/models"
)

// fakeRelationshipStore keeps directed rows in memory, mimicking the
// mirror-row layout of the real table: mutual relationships hold two rows,
// one-sided relationships hold one.
type fakeRelationshipStore struct {
	rows       map[string]*models.Relationship
	createErr  error
	updateCall *models.UpdateRelationshipRequest
}

func newFakeRelationshipStore() *fakeRelationshipStore {
	return &fakeRelationshipStore{rows: map[string]*models.Relationship{}}
}

func (f *fakeRelationshipStore) GetByID(ctx context.Context, id string) (*models.Relationship, error) {
	return f.rows[id], nil
}

func (f *fakeRelationshipStore) GetBetween(ctx context.Context, aID, bID string, relType *string) ([]models.Relationship, error) {
	out := []models.Relationship{}
	for _, rel := range f.rows {
		forward := rel.CharacterAID == aID && rel.CharacterBID == bID
		reverse := rel.CharacterAID == bID && rel.CharacterBID == aID && !rel.IsMutual
		if !forward && !reverse {
			continue
		}
		if relType != nil && rel.RelationshipType != *relType {
			continue
		}
		out = append(out, *rel)
	}
	return out, nil
}

func (f *fakeRelationshipStore) ExistsPair(ctx context.Context, aID, bID, relType string) (bool, error) {
	for _, rel := range f.rows {
		if rel.RelationshipType != relType {
			continue
		}
		if (rel.CharacterAID == aID && rel.CharacterBID == bID) ||
			(rel.CharacterAID == bID && rel.CharacterBID == aID) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRelationshipStore) CreatePair(ctx context.Context, canonical, mirror *models.Relationship) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.rows[canonical.ID] = canonical
	if mirror != nil {
		f.rows[mirror.ID] = mirror
	}
	return nil
}

func (f *fakeRelationshipStore) UpdatePair(ctx context.Context, id string, req *models.UpdateRelationshipRequest) (*models.Relationship, error) {
	f.updateCall = req
	rel, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	apply := func(r *models.Relationship) {
		if req.Strength != nil {
			r.Strength = req.Strength
		}
		if req.Status != nil {
			r.Status = *req.Status
		}
		if req.History != nil {
			r.History = req.History
		}
		if req.Metadata != nil {
			r.Metadata = *req.Metadata
		}
	}
	apply(rel)
	if rel.IsMutual {
		for _, other := range f.rows {
			if other.ID != id && other.CharacterAID == rel.CharacterBID &&
				other.CharacterBID == rel.CharacterAID && other.RelationshipType == rel.RelationshipType {
				apply(other)
			}
		}
	}
	return rel, nil
}

func (f *fakeRelationshipStore) DeletePair(ctx context.Context, id string) (bool, error) {
	rel, ok := f.rows[id]
	if !ok {
		return false, nil
	}
	if !rel.IsMutual {
		delete(f.rows, id)
		return true, nil
	}
	for key, other := range f.rows {
		if other.RelationshipType == rel.RelationshipType &&
			((other.CharacterAID == rel.CharacterAID && other.CharacterBID == rel.CharacterBID) ||
				(other.CharacterAID == rel.CharacterBID && other.CharacterBID == rel.CharacterAID)) {
			delete(f.rows, key)
		}
	}
	return true, nil
}

func (f *fakeRelationshipStore) ListForCharacter(ctx context.Context, req *models.ListRelationshipsRequest) ([]models.Relationship, error) {
	out := []models.Relationship{}
	for _, rel := range f.rows {
		if rel.CharacterAID != req.CharacterID &&
			!(rel.CharacterBID == req.CharacterID && !rel.IsMutual) {
			continue
		}
		if req.RelationshipType != nil && rel.RelationshipType != *req.RelationshipType {
			continue
		}
		if req.Status != nil && rel.Status != *req.Status {
			continue
		}
		out = append(out, *rel)
	}
	return out, nil
}

func (f *fakeRelationshipStore) ListForCharacters(ctx context.Context, ids []string) ([]models.Relationship, error) {
	idSet := map[string]bool{}
	for _, id := range ids {
		idSet[id] = true
	}
	out := []models.Relationship{}
	for _, rel := range f.rows {
		if idSet[rel.CharacterAID] || (idSet[rel.CharacterBID] && !rel.IsMutual) {
			out = append(out, *rel)
		}
	}
	return out, nil
}

type fakeCharacterStore struct {
	characters map[string]models.NetworkCharacter
}

func newFakeCharacterStore(ids ...string) *fakeCharacterStore {
	f := &fakeCharacterStore{characters: map[string]models.NetworkCharacter{}}
	for _, id := range ids {
		f.characters[id] = models.NetworkCharacter{ID: id, Name: "character " + id}
	}
	return f
}

func (f *fakeCharacterStore) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := f.characters[id]
	return ok, nil
}

func (f *fakeCharacterStore) GetBrief(ctx context.Context, ids []string) ([]models.NetworkCharacter, error) {
	out := []models.NetworkCharacter{}
	for _, id := range ids {
		if ch, ok := f.characters[id]; ok {
			out = append(out, ch)
		}
	}
	return out, nil
}

type fakeEmitter struct {
	created, updated, deleted int
}

func (f *fakeEmitter) RelationshipCreated(ctx context.Context, rel *models.Relationship) { f.created++ }
func (f *fakeEmitter) RelationshipUpdated(ctx context.Context, rel *models.Relationship) { f.updated++ }
func (f *fakeEmitter) RelationshipDeleted(ctx context.Context, id string)                { f.deleted++ }

type fakeProjector struct {
	upserts, deletes int
}

func (f *fakeProjector) UpsertRelationship(ctx context.Context, rel *models.Relationship) {
	f.upserts++
}

func (f *fakeProjector) DeleteRelationship(ctx context.Context, rel *models.Relationship) {
	f.deletes++
}

func testConfig() *config.Config {
	return &config.Config{
		NetworkDefaultDepth: 2,
		NetworkMaxDepth:     5,
	}
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {})
}

func newTestEngine(rels *fakeRelationshipStore, chars *fakeCharacterStore) (*Engine, *fakeEmitter, *fakeProjector) {
	emitter := &fakeEmitter{}
	projector := &fakeProjector{}
	engine := NewEngine(rels, chars, emitter, projector, testConfig(), testLogger())
	return engine, emitter, projector
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func TestEngine_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates both rows and emits events", func(t *testing.T) {
		rels := newFakeRelationshipStore()
		chars := newFakeCharacterStore("alice", "bob")
		engine, emitter, projector := newTestEngine(rels, chars)

		rel, err := engine.Create(ctx, &models.CreateRelationshipRequest{
			CharacterAID:     "alice",
			CharacterBID:     "bob",
			RelationshipType: "friendship",
			Strength:         intPtr(7),
		})
		require.NoError(t, err)
		require.NotNil(t, rel)

		assert.Equal(t, "alice", rel.CharacterAID)
		assert.Equal(t, "bob", rel.CharacterBID)
		assert.Equal(t, "active", rel.Status)
		assert.True(t, rel.IsMutual)
		assert.Len(t, rels.rows, 2)
		assert.Equal(t, 1, emitter.created)
		assert.Equal(t, 1, projector.upserts)

		// the mirror row faces the other way with the same content
		var mirror *models.Relationship
		for _, row := range rels.rows {
			if row.ID != rel.ID {
				mirror = row
			}
		}
		require.NotNil(t, mirror)
		assert.Equal(t, "bob", mirror.CharacterAID)
		assert.Equal(t, "alice", mirror.CharacterBID)
		assert.Equal(t, rel.RelationshipType, mirror.RelationshipType)
		assert.Equal(t, rel.Strength, mirror.Strength)
		assert.NotEqual(t, rel.ID, mirror.ID)
	})

	t.Run("rejects self relationship", func(t *testing.T) {
		engine, _, _ := newTestEngine(newFakeRelationshipStore(), newFakeCharacterStore("alice"))

		_, err := engine.Create(ctx, &models.CreateRelationshipRequest{
			CharacterAID:     "alice",
			CharacterBID:     "alice",
			RelationshipType: "friendship",
		})
		require.Error(t, err)
		assert.Equal(t, 400, httperror.GetStatusCode(err))
	})

	t.Run("rejects unknown relationship type", func(t *testing.T) {
		engine, _, _ := newTestEngine(newFakeRelationshipStore(), newFakeCharacterStore("alice", "bob"))

		_, err := engine.Create(ctx, &models.CreateRelationshipRequest{
			CharacterAID:     "alice",
			CharacterBID:     "bob",
			RelationshipType: "nemesis",
		})
		require.Error(t, err)
		assert.Equal(t, 400, httperror.GetStatusCode(err))
	})

	t.Run("rejects out of range strength", func(t *testing.T) {
		engine, _, _ := newTestEngine(newFakeRelationshipStore(), newFakeCharacterStore("alice", "bob"))

		_, err := engine.Create(ctx, &models.CreateRelationshipRequest{
			CharacterAID:     "alice",
			CharacterBID:     "bob",
			RelationshipType: "friendship",
			Strength:         intPtr(11),
		})
		require.Error(t, err)
		assert.Equal(t, 400, httperror.GetStatusCode(err))
	})

	t.Run("missing character is a validation failure", func(t *testing.T) {
		engine, _, _ := newTestEngine(newFakeRelationshipStore(), newFakeCharacterStore("alice"))

		_, err := engine.Create(ctx, &models.CreateRelationshipRequest{
			CharacterAID:     "alice",
			CharacterBID:     "ghost",
			RelationshipType: "friendship",
		})
		require.Error(t, err)
		assert.Equal(t, 400, httperror.GetStatusCode(err))
		assert.Contains(t, err.Error(), "do not exist")
	})

	t.Run("one-sided relationship stores a single row", func(t *testing.T) {
		rels := newFakeRelationshipStore()
		chars := newFakeCharacterStore("alice", "bob")
		engine, emitter, _ := newTestEngine(rels, chars)

		rel, err := engine.Create(ctx, &models.CreateRelationshipRequest{
			CharacterAID:     "alice",
			CharacterBID:     "bob",
			RelationshipType: "adversarial",
			IsMutual:         boolPtr(false),
		})
		require.NoError(t, err)
		assert.False(t, rel.IsMutual)
		assert.Len(t, rels.rows, 1, "no mirror row for a one-sided relationship")
		assert.Equal(t, 1, emitter.created)
	})

	t.Run("is_mutual defaults to true when omitted", func(t *testing.T) {
		rels := newFakeRelationshipStore()
		chars := newFakeCharacterStore("alice", "bob")
		engine, _, _ := newTestEngine(rels, chars)

		rel, err := engine.Create(ctx, &models.CreateRelationshipRequest{
			CharacterAID:     "alice",
			CharacterBID:     "bob",
			RelationshipType: "friendship",
		})
		require.NoError(t, err)
		assert.True(t, rel.IsMutual)
		assert.Len(t, rels.rows, 2)
	})

	t.Run("duplicate pair returns conflict regardless of direction", func(t *testing.T) {
		rels := newFakeRelationshipStore()
		chars := newFakeCharacterStore("alice", "bob")
		engine, _, _ := newTestEngine(rels, chars)

		_, err := engine.Create(ctx, &models.CreateRelationshipRequest{
			CharacterAID:     "alice",
			CharacterBID:     "bob",
			RelationshipType: "friendship",
		})
		require.NoError(t, err)

		_, err = engine.Create(ctx, &models.CreateRelationshipRequest{
			CharacterAID:     "bob",
			CharacterBID:     "alice",
			RelationshipType: "friendship",
		})
		require.Error(t, err)
		assert.Equal(t, 409, httperror.GetStatusCode(err))
	})

	t.Run("same pair with a different type is allowed", func(t *testing.T) {
		rels := newFakeRelationshipStore()
		chars := newFakeCharacterStore("alice", "bob")
		engine, _, _ := newTestEngine(rels, chars)

		_, err := engine.Create(ctx, &models.CreateRelationshipRequest{
			CharacterAID:     "alice",
			CharacterBID:     "bob",
			RelationshipType: "friendship",
		})
		require.NoError(t, err)

		_, err = engine.Create(ctx, &models.CreateRelationshipRequest{
			CharacterAID:     "alice",
			CharacterBID:     "bob",
			RelationshipType: "professional",
		})
		require.NoError(t, err)
		assert.Len(t, rels.rows, 4)
	})
}

func TestEngine_Update(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) (*Engine, *fakeRelationshipStore, *fakeEmitter, *fakeProjector, string) {
		rels := newFakeRelationshipStore()
		chars := newFakeCharacterStore("alice", "bob")
		engine, emitter, projector := newTestEngine(rels, chars)
		rel, err := engine.Create(ctx, &models.CreateRelationshipRequest{
			CharacterAID:     "alice",
			CharacterBID:     "bob",
			RelationshipType: "friendship",
			Strength:         intPtr(5),
		})
		require.NoError(t, err)
		return engine, rels, emitter, projector, rel.ID
	}

	t.Run("updates content on both rows", func(t *testing.T) {
		engine, rels, emitter, _, id := seed(t)

		updated, err := engine.Update(ctx, id, &models.UpdateRelationshipRequest{
			Strength: intPtr(9),
			Status:   strPtr("complicated"),
		})
		require.NoError(t, err)
		assert.Equal(t, 9, *updated.Strength)
		assert.Equal(t, "complicated", updated.Status)
		assert.Equal(t, 1, emitter.updated)

		for _, row := range rels.rows {
			assert.Equal(t, 9, *row.Strength)
			assert.Equal(t, "complicated", row.Status)
		}
	})

	t.Run("empty update is rejected", func(t *testing.T) {
		engine, rels, _, _, id := seed(t)

		_, err := engine.Update(ctx, id, &models.UpdateRelationshipRequest{})
		require.Error(t, err)
		assert.Equal(t, 400, httperror.GetStatusCode(err))
		assert.Nil(t, rels.updateCall)
	})

	t.Run("invalid status is rejected", func(t *testing.T) {
		engine, _, _, _, id := seed(t)

		_, err := engine.Update(ctx, id, &models.UpdateRelationshipRequest{Status: strPtr("frenemies")})
		require.Error(t, err)
		assert.Equal(t, 400, httperror.GetStatusCode(err))
	})

	t.Run("unknown id returns not found", func(t *testing.T) {
		engine, _, _, _, _ := seed(t)

		_, err := engine.Update(ctx, "missing", &models.UpdateRelationshipRequest{Strength: intPtr(3)})
		require.Error(t, err)
		assert.Equal(t, 404, httperror.GetStatusCode(err))
	})

	t.Run("one-sided update never creates a mirror", func(t *testing.T) {
		rels := newFakeRelationshipStore()
		chars := newFakeCharacterStore("alice", "bob")
		engine, _, _ := newTestEngine(rels, chars)

		rel, err := engine.Create(ctx, &models.CreateRelationshipRequest{
			CharacterAID:     "alice",
			CharacterBID:     "bob",
			RelationshipType: "adversarial",
			IsMutual:         boolPtr(false),
		})
		require.NoError(t, err)

		updated, err := engine.Update(ctx, rel.ID, &models.UpdateRelationshipRequest{
			Strength: intPtr(8),
		})
		require.NoError(t, err)
		assert.Equal(t, 8, *updated.Strength)
		assert.False(t, updated.IsMutual)
		assert.Len(t, rels.rows, 1, "still a single row after the update")
	})
}

func TestEngine_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes both rows and is idempotent", func(t *testing.T) {
		rels := newFakeRelationshipStore()
		chars := newFakeCharacterStore("alice", "bob")
		engine, emitter, projector := newTestEngine(rels, chars)

		rel, err := engine.Create(ctx, &models.CreateRelationshipRequest{
			CharacterAID:     "alice",
			CharacterBID:     "bob",
			RelationshipType: "friendship",
		})
		require.NoError(t, err)

		deleted, err := engine.Delete(ctx, rel.ID)
		require.NoError(t, err)
		assert.True(t, deleted)
		assert.Empty(t, rels.rows)
		assert.Equal(t, 1, emitter.deleted)
		assert.Equal(t, 1, projector.deletes)

		deleted, err = engine.Delete(ctx, rel.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
		assert.Equal(t, 1, emitter.deleted)
	})

	t.Run("one-sided delete removes only its own row", func(t *testing.T) {
		rels := newFakeRelationshipStore()
		chars := newFakeCharacterStore("alice", "bob")
		engine, _, _ := newTestEngine(rels, chars)

		mutual, err := engine.Create(ctx, &models.CreateRelationshipRequest{
			CharacterAID:     "alice",
			CharacterBID:     "bob",
			RelationshipType: "friendship",
		})
		require.NoError(t, err)
		oneSided, err := engine.Create(ctx, &models.CreateRelationshipRequest{
			CharacterAID:     "alice",
			CharacterBID:     "bob",
			RelationshipType: "adversarial",
			IsMutual:         boolPtr(false),
		})
		require.NoError(t, err)
		require.Len(t, rels.rows, 3)

		deleted, err := engine.Delete(ctx, oneSided.ID)
		require.NoError(t, err)
		assert.True(t, deleted)
		assert.Len(t, rels.rows, 2, "the mutual pair is untouched")
		assert.NotNil(t, rels.rows[mutual.ID])
	})
}

func TestEngine_ListForCharacter(t *testing.T) {
	ctx := context.Background()
	rels := newFakeRelationshipStore()
	chars := newFakeCharacterStore("alice", "bob", "carol")
	engine, _, _ := newTestEngine(rels, chars)

	_, err := engine.Create(ctx, &models.CreateRelationshipRequest{
		CharacterAID:     "alice",
		CharacterBID:     "bob",
		RelationshipType: "friendship",
	})
	require.NoError(t, err)
	_, err = engine.Create(ctx, &models.CreateRelationshipRequest{
		CharacterAID:     "carol",
		CharacterBID:     "alice",
		RelationshipType: "mentor",
	})
	require.NoError(t, err)

	t.Run("each side sees its own perspective", func(t *testing.T) {
		list, err := engine.ListForCharacter(ctx, &models.ListRelationshipsRequest{CharacterID: "alice"})
		require.NoError(t, err)
		require.Len(t, list, 2)
		for _, rel := range list {
			assert.Equal(t, "alice", rel.CharacterAID)
		}

		list, err = engine.ListForCharacter(ctx, &models.ListRelationshipsRequest{CharacterID: "bob"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "bob", list[0].CharacterAID)
		assert.Equal(t, "alice", list[0].CharacterBID)
	})

	t.Run("type filter narrows the list", func(t *testing.T) {
		list, err := engine.ListForCharacter(ctx, &models.ListRelationshipsRequest{
			CharacterID:      "alice",
			RelationshipType: strPtr("mentor"),
		})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "carol", list[0].CharacterBID)
	})

	t.Run("unknown character returns not found", func(t *testing.T) {
		_, err := engine.ListForCharacter(ctx, &models.ListRelationshipsRequest{CharacterID: "ghost"})
		require.Error(t, err)
		assert.Equal(t, 404, httperror.GetStatusCode(err))
	})

	t.Run("one-sided relationships are visible from both sides", func(t *testing.T) {
		rels := newFakeRelationshipStore()
		chars := newFakeCharacterStore("alice", "bob")
		engine, _, _ := newTestEngine(rels, chars)

		_, err := engine.Create(ctx, &models.CreateRelationshipRequest{
			CharacterAID:     "alice",
			CharacterBID:     "bob",
			RelationshipType: "adversarial",
			IsMutual:         boolPtr(false),
		})
		require.NoError(t, err)

		for _, id := range []string{"alice", "bob"} {
			list, err := engine.ListForCharacter(ctx, &models.ListRelationshipsRequest{CharacterID: id})
			require.NoError(t, err)
			require.Len(t, list, 1, "listing for %s", id)
			assert.False(t, list[0].IsMutual)
		}
	})
}

func TestEngine_ListForCharacterWithRelated(t *testing.T) {
	ctx := context.Background()
	rels := newFakeRelationshipStore()
	chars := newFakeCharacterStore("alice", "bob")
	nickname := "Bobby"
	ch := chars.characters["bob"]
	ch.Nickname = &nickname
	chars.characters["bob"] = ch
	engine, _, _ := newTestEngine(rels, chars)

	_, err := engine.Create(ctx, &models.CreateRelationshipRequest{
		CharacterAID:     "alice",
		CharacterBID:     "bob",
		RelationshipType: "friendship",
	})
	require.NoError(t, err)

	list, err := engine.ListForCharacterWithRelated(ctx, &models.ListRelationshipsRequest{CharacterID: "alice"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	related := list[0].RelatedCharacter
	assert.Equal(t, "bob", related.ID)
	assert.Equal(t, "character bob", related.Name)
	require.NotNil(t, related.Nickname)
	assert.Equal(t, "Bobby", *related.Nickname)
}
