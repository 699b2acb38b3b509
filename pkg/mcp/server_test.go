package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/bramble/pkg/models"
)

type fakeCharacterService struct {
	characters map[string]*models.Character
	created    []*models.CreateCharacterRequest
	updated    map[string]*models.UpdateCharacterRequest
}

func newFakeCharacterService() *fakeCharacterService {
	return &fakeCharacterService{
		characters: map[string]*models.Character{},
		updated:    map[string]*models.UpdateCharacterRequest{},
	}
}

func (f *fakeCharacterService) Create(_ context.Context, req *models.CreateCharacterRequest) (*models.Character, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	f.created = append(f.created, req)
	ch := &models.Character{
		ID:                "char-" + req.Name,
		Name:              req.Name,
		Age:               req.Age,
		PersonalityTraits: req.PersonalityTraits,
		NarrativeRole:     req.NarrativeRole,
		Version:           1,
	}
	f.characters[ch.ID] = ch
	return ch, nil
}

func (f *fakeCharacterService) Get(_ context.Context, id string, includeRelationships bool) (*models.CharacterDetail, error) {
	ch, ok := f.characters[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "character not found: "+id)
	}
	detail := &models.CharacterDetail{Character: *ch}
	if includeRelationships {
		detail.Relationships = []models.Relationship{{ID: "rel-1", CharacterAID: id, CharacterBID: "other"}}
	}
	return detail, nil
}

func (f *fakeCharacterService) Update(_ context.Context, id string, req *models.UpdateCharacterRequest) (*models.Character, error) {
	ch, ok := f.characters[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "character not found: "+id)
	}
	f.updated[id] = req
	if req.Name != nil {
		ch.Name = *req.Name
	}
	ch.Version++
	return ch, nil
}

func (f *fakeCharacterService) Search(_ context.Context, req *models.SearchCharactersRequest) (*models.SearchCharactersResult, error) {
	result := &models.SearchCharactersResult{Limit: req.Limit, Offset: req.Offset}
	for _, ch := range f.characters {
		if req.Query != "" && !strings.Contains(strings.ToLower(ch.Name), strings.ToLower(req.Query)) {
			continue
		}
		result.Characters = append(result.Characters, *ch)
	}
	result.Total = len(result.Characters)
	return result, nil
}

type fakeRelationshipEngine struct {
	relationships map[string]*models.Relationship
	lastCreate    *models.CreateRelationshipRequest
	networkDepth  int
}

func newFakeRelationshipEngine() *fakeRelationshipEngine {
	return &fakeRelationshipEngine{relationships: map[string]*models.Relationship{}}
}

func (f *fakeRelationshipEngine) Create(_ context.Context, req *models.CreateRelationshipRequest) (*models.Relationship, error) {
	if req.CharacterAID == req.CharacterBID {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "a character cannot have a relationship with itself")
	}
	f.lastCreate = req
	rel := &models.Relationship{
		ID:               "rel-" + req.RelationshipType,
		CharacterAID:     req.CharacterAID,
		CharacterBID:     req.CharacterBID,
		RelationshipType: req.RelationshipType,
		Strength:         req.Strength,
		Status:           "active",
		IsMutual:         req.Mutual(),
	}
	f.relationships[rel.ID] = rel
	return rel, nil
}

func (f *fakeRelationshipEngine) Update(_ context.Context, id string, req *models.UpdateRelationshipRequest) (*models.Relationship, error) {
	rel, ok := f.relationships[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "relationship not found: "+id)
	}
	if req.Strength != nil {
		rel.Strength = req.Strength
	}
	if req.Status != nil {
		rel.Status = *req.Status
	}
	return rel, nil
}

func (f *fakeRelationshipEngine) Delete(_ context.Context, id string) (bool, error) {
	if _, ok := f.relationships[id]; !ok {
		return false, nil
	}
	delete(f.relationships, id)
	return true, nil
}

func (f *fakeRelationshipEngine) ListForCharacterWithRelated(_ context.Context, req *models.ListRelationshipsRequest) ([]models.RelationshipWithCharacter, error) {
	var out []models.RelationshipWithCharacter
	for _, rel := range f.relationships {
		if rel.CharacterAID != req.CharacterID {
			continue
		}
		if req.RelationshipType != nil && rel.RelationshipType != *req.RelationshipType {
			continue
		}
		out = append(out, models.RelationshipWithCharacter{
			Relationship:     *rel,
			RelatedCharacter: models.CharacterRef{ID: rel.CharacterBID, Name: "character " + rel.CharacterBID},
		})
	}
	return out, nil
}

func (f *fakeRelationshipEngine) Network(_ context.Context, centerID string, maxDepth int) (*models.RelationshipNetwork, error) {
	if centerID == "missing" {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "character not found: "+centerID)
	}
	f.networkDepth = maxDepth
	return &models.RelationshipNetwork{
		CenterID:   centerID,
		MaxDepth:   maxDepth,
		Characters: []models.NetworkCharacter{{ID: centerID}},
	}, nil
}

type fakeProfileGenerator struct {
	result *models.GenerateProfilesResult
	err    error
	last   *models.GenerateProfilesRequest
}

func (f *fakeProfileGenerator) Generate(_ context.Context, req *models.GenerateProfilesRequest) (*models.GenerateProfilesResult, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type serverFixture struct {
	server        *Server
	characters    *fakeCharacterService
	relationships *fakeRelationshipEngine
	profiles      *fakeProfileGenerator
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	f := &serverFixture{
		characters:    newFakeCharacterService(),
		relationships: newFakeRelationshipEngine(),
		profiles: &fakeProfileGenerator{
			result: &models.GenerateProfilesResult{Success: true},
		},
	}
	logger := ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
	f.server = NewServer(f.characters, f.relationships, f.profiles, logger)
	return f
}

// makeReq builds a CallToolRequest with the given arguments.
func makeReq(toolName string, args map[string]any) mcpgo.CallToolRequest {
	req := mcpgo.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args
	return req
}

// textContent extracts the first TextContent string from a CallToolResult.
func textContent(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected at least one content item")
	tc, ok := result.Content[0].(mcpgo.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

// decodeResult unmarshals the tool's JSON text payload.
func decodeResult(t *testing.T, result *mcpgo.CallToolResult) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	return out
}

func requireToolError(t *testing.T, result *mcpgo.CallToolResult, kind string) map[string]any {
	t.Helper()
	require.True(t, result.IsError, "expected an error result")
	out := decodeResult(t, result)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, kind, out["kind"])
	assert.NotEmpty(t, out["error"])
	return out
}

func TestCreateCharacterTool(t *testing.T) {
	f := newServerFixture(t)
	ctx := context.Background()

	result, err := f.server.HandleCreateCharacter(ctx, makeReq("create_character", map[string]any{
		"name":               "Elara Voss",
		"age":                34,
		"narrative_role":     "protagonist",
		"personality_traits": []any{"curious", "stubborn"},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "unexpected error: %s", textContent(t, result))

	out := decodeResult(t, result)
	assert.Equal(t, "Elara Voss", out["name"])
	assert.Equal(t, float64(1), out["version"])

	require.Len(t, f.characters.created, 1)
	created := f.characters.created[0]
	assert.Equal(t, []string{"curious", "stubborn"}, created.PersonalityTraits)
	require.NotNil(t, created.Age)
	assert.Equal(t, 34, *created.Age)
}

func TestCreateCharacterTool_ValidationError(t *testing.T) {
	f := newServerFixture(t)

	result, err := f.server.HandleCreateCharacter(context.Background(), makeReq("create_character", map[string]any{
		"name": "   ",
	}))
	require.NoError(t, err)
	requireToolError(t, result, "validation_error")
}

func TestGetCharacterTool(t *testing.T) {
	f := newServerFixture(t)
	ctx := context.Background()
	f.characters.characters["char-1"] = &models.Character{ID: "char-1", Name: "Elara", Version: 3}

	result, err := f.server.HandleGetCharacter(ctx, makeReq("get_character", map[string]any{
		"character_id": "char-1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	out := decodeResult(t, result)
	assert.Equal(t, "Elara", out["name"])
	assert.Nil(t, out["relationships"])

	result, err = f.server.HandleGetCharacter(ctx, makeReq("get_character", map[string]any{
		"character_id":          "char-1",
		"include_relationships": true,
	}))
	require.NoError(t, err)
	out = decodeResult(t, result)
	assert.NotNil(t, out["relationships"])
}

func TestGetCharacterTool_NotFound(t *testing.T) {
	f := newServerFixture(t)

	result, err := f.server.HandleGetCharacter(context.Background(), makeReq("get_character", map[string]any{
		"character_id": "missing",
	}))
	require.NoError(t, err)
	requireToolError(t, result, "not_found")
}

func TestGetCharacterTool_MissingID(t *testing.T) {
	f := newServerFixture(t)

	result, err := f.server.HandleGetCharacter(context.Background(), makeReq("get_character", map[string]any{}))
	require.NoError(t, err)
	requireToolError(t, result, "validation_error")
}

func TestUpdateCharacterTool(t *testing.T) {
	f := newServerFixture(t)
	f.characters.characters["char-1"] = &models.Character{ID: "char-1", Name: "Elara", Version: 1}

	result, err := f.server.HandleUpdateCharacter(context.Background(), makeReq("update_character", map[string]any{
		"character_id": "char-1",
		"name":         "Elara Voss",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "unexpected error: %s", textContent(t, result))

	out := decodeResult(t, result)
	assert.Equal(t, "char-1", out["character_id"])
	assert.Equal(t, []any{"name"}, out["updated_fields"])
	assert.NotNil(t, out["updated_at"])

	req := f.characters.updated["char-1"]
	require.NotNil(t, req)
	assert.Nil(t, req.Age, "unset fields should stay nil")
}

func TestUpdateCharacterTool_RejectsUnknownFields(t *testing.T) {
	f := newServerFixture(t)
	f.characters.characters["char-1"] = &models.Character{ID: "char-1", Name: "Elara", Version: 1}

	for _, field := range []string{"archetype_id", "alignment"} {
		result, err := f.server.HandleUpdateCharacter(context.Background(), makeReq("update_character", map[string]any{
			"character_id": "char-1",
			field:          "whatever",
		}))
		require.NoError(t, err)
		out := requireToolError(t, result, "validation_error")
		assert.Contains(t, out["error"], field)
	}
	assert.Empty(t, f.characters.updated, "rejected updates never reach the service")
}

func TestSearchCharactersTool(t *testing.T) {
	f := newServerFixture(t)
	f.characters.characters["char-1"] = &models.Character{ID: "char-1", Name: "Elara"}
	f.characters.characters["char-2"] = &models.Character{ID: "char-2", Name: "Brom"}

	result, err := f.server.HandleSearchCharacters(context.Background(), makeReq("search_characters", map[string]any{
		"query": "ela",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	out := decodeResult(t, result)
	assert.Equal(t, float64(1), out["total"])
}

func TestCreateRelationshipTool(t *testing.T) {
	f := newServerFixture(t)

	result, err := f.server.HandleCreateRelationship(context.Background(), makeReq("create_relationship", map[string]any{
		"character_a_id":    "char-1",
		"character_b_id":    "char-2",
		"relationship_type": "friendship",
		"strength":          7,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "unexpected error: %s", textContent(t, result))

	out := decodeResult(t, result)
	assert.Equal(t, "friendship", out["relationship_type"])
	assert.Equal(t, true, out["is_mutual"])
	assert.Equal(t, float64(7), out["strength"])
}

func TestCreateRelationshipTool_OneSided(t *testing.T) {
	f := newServerFixture(t)

	result, err := f.server.HandleCreateRelationship(context.Background(), makeReq("create_relationship", map[string]any{
		"character_a_id":    "char-1",
		"character_b_id":    "char-2",
		"relationship_type": "adversarial",
		"is_mutual":         false,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "unexpected error: %s", textContent(t, result))

	out := decodeResult(t, result)
	assert.Equal(t, false, out["is_mutual"])

	require.NotNil(t, f.relationships.lastCreate)
	require.NotNil(t, f.relationships.lastCreate.IsMutual, "the flag must reach the engine, not be dropped")
	assert.False(t, *f.relationships.lastCreate.IsMutual)
}

func TestCreateRelationshipTool_MissingParticipant(t *testing.T) {
	f := newServerFixture(t)

	result, err := f.server.HandleCreateRelationship(context.Background(), makeReq("create_relationship", map[string]any{
		"character_a_id":    "char-1",
		"relationship_type": "friendship",
	}))
	require.NoError(t, err)
	requireToolError(t, result, "validation_error")
}

func TestUpdateRelationshipTool(t *testing.T) {
	f := newServerFixture(t)
	f.relationships.relationships["rel-1"] = &models.Relationship{ID: "rel-1", Status: "active"}

	result, err := f.server.HandleUpdateRelationship(context.Background(), makeReq("update_relationship", map[string]any{
		"relationship_id": "rel-1",
		"status":          "complicated",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	out := decodeResult(t, result)
	assert.Equal(t, "complicated", out["status"])
}

func TestUpdateRelationshipTool_NotFound(t *testing.T) {
	f := newServerFixture(t)

	result, err := f.server.HandleUpdateRelationship(context.Background(), makeReq("update_relationship", map[string]any{
		"relationship_id": "missing",
		"status":          "complicated",
	}))
	require.NoError(t, err)
	requireToolError(t, result, "not_found")
}

func TestDeleteRelationshipTool(t *testing.T) {
	f := newServerFixture(t)
	f.relationships.relationships["rel-1"] = &models.Relationship{ID: "rel-1"}

	result, err := f.server.HandleDeleteRelationship(context.Background(), makeReq("delete_relationship", map[string]any{
		"relationship_id": "rel-1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	out := decodeResult(t, result)
	assert.Equal(t, true, out["deleted"])

	// A second delete reports not_found.
	result, err = f.server.HandleDeleteRelationship(context.Background(), makeReq("delete_relationship", map[string]any{
		"relationship_id": "rel-1",
	}))
	require.NoError(t, err)
	requireToolError(t, result, "not_found")
}

func TestCharacterRelationshipsTool(t *testing.T) {
	f := newServerFixture(t)
	f.relationships.relationships["rel-1"] = &models.Relationship{
		ID: "rel-1", CharacterAID: "char-1", CharacterBID: "char-2", RelationshipType: "friendship",
	}
	f.relationships.relationships["rel-2"] = &models.Relationship{
		ID: "rel-2", CharacterAID: "char-1", CharacterBID: "char-3", RelationshipType: "family",
	}

	result, err := f.server.HandleCharacterRelationships(context.Background(), makeReq("get_character_relationships", map[string]any{
		"character_id":      "char-1",
		"relationship_type": "family",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	out := decodeResult(t, result)
	assert.Equal(t, "char-1", out["character_id"])
	assert.Equal(t, float64(1), out["count"])

	items, ok := out["relationships"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	related, ok := item["related_character"].(map[string]any)
	require.True(t, ok, "each item carries the far-side character reference")
	assert.Equal(t, "char-3", related["id"])
	assert.Equal(t, "character char-3", related["name"])
}

func TestRelationshipNetworkTool(t *testing.T) {
	f := newServerFixture(t)

	result, err := f.server.HandleRelationshipNetwork(context.Background(), makeReq("get_relationship_network", map[string]any{
		"character_id": "char-1",
		"depth":        3,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	out := decodeResult(t, result)
	assert.Equal(t, "char-1", out["center_character_id"])
	assert.Equal(t, 3, f.relationships.networkDepth)
}

func TestRelationshipNetworkTool_NotFound(t *testing.T) {
	f := newServerFixture(t)

	result, err := f.server.HandleRelationshipNetwork(context.Background(), makeReq("get_relationship_network", map[string]any{
		"character_id": "missing",
	}))
	require.NoError(t, err)
	requireToolError(t, result, "not_found")
}

func TestGenerateProfilesTool(t *testing.T) {
	f := newServerFixture(t)
	f.profiles.result = &models.GenerateProfilesResult{
		Success: true,
		CharacterProfiles: []models.CharacterProfile{
			{Name: "Detective Reyes", Role: "protagonist"},
		},
	}

	result, err := f.server.HandleGenerateProfiles(context.Background(), makeReq("generate_character_profiles", map[string]any{
		"scene_list": []any{
			map[string]any{
				"scene_number":       1,
				"primary_characters": []any{"Detective Reyes"},
				"goal":               "find the ledger",
			},
		},
		"concept_brief": map[string]any{
			"genre_tags":    []any{"noir"},
			"core_conflict": "a detective against the syndicate",
		},
		"project_id": "proj-1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "unexpected error: %s", textContent(t, result))

	out := decodeResult(t, result)
	assert.Equal(t, true, out["success"])

	require.NotNil(t, f.profiles.last)
	assert.Equal(t, "proj-1", f.profiles.last.ProjectID)
	require.Len(t, f.profiles.last.SceneList, 1)
	assert.Equal(t, []string{"Detective Reyes"}, f.profiles.last.SceneList[0].PrimaryCharacters)
	assert.Equal(t, "a detective against the syndicate", f.profiles.last.ConceptBrief.CoreConflict)
}

func TestGenerateProfilesTool_Unconfigured(t *testing.T) {
	f := newServerFixture(t)
	logger := ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
	srv := NewServer(f.characters, f.relationships, nil, logger)

	result, err := srv.HandleGenerateProfiles(context.Background(), makeReq("generate_character_profiles", map[string]any{
		"scene_list":    []any{},
		"concept_brief": map[string]any{},
		"project_id":    "proj-1",
	}))
	require.NoError(t, err)
	requireToolError(t, result, "internal_error")
}

func TestGenerateProfilesTool_LackingGuidance(t *testing.T) {
	f := newServerFixture(t)
	f.profiles.result = &models.GenerateProfilesResult{
		Success: false,
		Error:   "lacking_guidance",
		Message: "insufficient guidance for character: The Informant",
	}

	result, err := f.server.HandleGenerateProfiles(context.Background(), makeReq("generate_character_profiles", map[string]any{
		"scene_list": []any{
			map[string]any{"scene_number": 1, "primary_characters": []any{"The Informant"}},
		},
		"concept_brief": map[string]any{"core_conflict": "x"},
		"project_id":    "proj-1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "lacking_guidance is a successful tool call with success=false")

	out := decodeResult(t, result)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "lacking_guidance", out["error"])
}
