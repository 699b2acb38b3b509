// Package mcp exposes the character registry over the Model Context Protocol
// so agent runtimes can manage characters and relationships as tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
)

const serverVersion = "1.0.0"

// characterService is the slice of the character service the tools need.
type characterService interface {
	Create(ctx context.Context, req *models.CreateCharacterRequest) (*models.Character, error)
	Get(ctx context.Context, id string, includeRelationships bool) (*models.CharacterDetail, error)
	Update(ctx context.Context, id string, req *models.UpdateCharacterRequest) (*models.Character, error)
	Search(ctx context.Context, req *models.SearchCharactersRequest) (*models.SearchCharactersResult, error)
}

// relationshipEngine is the slice of the relationship engine the tools need.
type relationshipEngine interface {
	Create(ctx context.Context, req *models.CreateRelationshipRequest) (*models.Relationship, error)
	Update(ctx context.Context, id string, req *models.UpdateRelationshipRequest) (*models.Relationship, error)
	Delete(ctx context.Context, id string) (bool, error)
	ListForCharacterWithRelated(ctx context.Context, req *models.ListRelationshipsRequest) ([]models.RelationshipWithCharacter, error)
	Network(ctx context.Context, centerID string, maxDepth int) (*models.RelationshipNetwork, error)
}

// profileGenerator runs the scene-list to character-profiles workflow.
type profileGenerator interface {
	Generate(ctx context.Context, req *models.GenerateProfilesRequest) (*models.GenerateProfilesResult, error)
}

// Server wraps an MCPServer with the registry's services.
type Server struct {
	mcp           *mcpserver.MCPServer
	characters    characterService
	relationships relationshipEngine
	profiles      profileGenerator
	logger        ectologger.Logger
}

// NewServer creates the MCP server and registers every tool. The profiles
// generator may be nil when no LLM provider is configured; the
// generate_character_profiles tool then returns an error response per call.
func NewServer(characters characterService, relationships relationshipEngine, profiles profileGenerator, logger ectologger.Logger) *Server {
	s := &Server{
		characters:    characters,
		relationships: relationships,
		profiles:      profiles,
		logger:        logger,
	}

	mcpSrv := mcpserver.NewMCPServer(
		"bramble",
		serverVersion,
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildCreateCharacterTool(), s.handleCreateCharacter)
	mcpSrv.AddTool(buildGetCharacterTool(), s.handleGetCharacter)
	mcpSrv.AddTool(buildUpdateCharacterTool(), s.handleUpdateCharacter)
	mcpSrv.AddTool(buildSearchCharactersTool(), s.handleSearchCharacters)
	mcpSrv.AddTool(buildCreateRelationshipTool(), s.handleCreateRelationship)
	mcpSrv.AddTool(buildUpdateRelationshipTool(), s.handleUpdateRelationship)
	mcpSrv.AddTool(buildDeleteRelationshipTool(), s.handleDeleteRelationship)
	mcpSrv.AddTool(buildCharacterRelationshipsTool(), s.handleCharacterRelationships)
	mcpSrv.AddTool(buildRelationshipNetworkTool(), s.handleRelationshipNetwork)
	mcpSrv.AddTool(buildGenerateProfilesTool(), s.handleGenerateProfiles)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// HandleCreateCharacter is exposed for direct testing without the stdio transport.
func (s *Server) HandleCreateCharacter(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleCreateCharacter(ctx, req)
}

// HandleGetCharacter is exposed for direct testing without the stdio transport.
func (s *Server) HandleGetCharacter(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleGetCharacter(ctx, req)
}

// HandleUpdateCharacter is exposed for direct testing without the stdio transport.
func (s *Server) HandleUpdateCharacter(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleUpdateCharacter(ctx, req)
}

// HandleSearchCharacters is exposed for direct testing without the stdio transport.
func (s *Server) HandleSearchCharacters(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleSearchCharacters(ctx, req)
}

// HandleCreateRelationship is exposed for direct testing without the stdio transport.
func (s *Server) HandleCreateRelationship(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleCreateRelationship(ctx, req)
}

// HandleUpdateRelationship is exposed for direct testing without the stdio transport.
func (s *Server) HandleUpdateRelationship(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleUpdateRelationship(ctx, req)
}

// HandleDeleteRelationship is exposed for direct testing without the stdio transport.
func (s *Server) HandleDeleteRelationship(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleDeleteRelationship(ctx, req)
}

// HandleCharacterRelationships is exposed for direct testing without the stdio transport.
func (s *Server) HandleCharacterRelationships(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleCharacterRelationships(ctx, req)
}

// HandleRelationshipNetwork is exposed for direct testing without the stdio transport.
func (s *Server) HandleRelationshipNetwork(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleRelationshipNetwork(ctx, req)
}

// HandleGenerateProfiles is exposed for direct testing without the stdio transport.
func (s *Server) HandleGenerateProfiles(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleGenerateProfiles(ctx, req)
}

// --- helpers ---

// errorKind buckets an error for tool consumers by its HTTP status.
func errorKind(err error) string {
	switch httperror.GetStatusCode(err) {
	case http.StatusBadRequest, http.StatusConflict:
		return "validation_error"
	case http.StatusNotFound:
		return "not_found"
	default:
		return "internal_error"
	}
}

// toolResult marshals v as the tool's JSON text result and records the call.
func (s *Server) toolResult(tool string, start time.Time, v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling %s result: %w", tool, err)
	}
	metrics.RecordMCPToolCall(tool, "success", time.Since(start).Seconds())
	return mcpgo.NewToolResultText(string(b)), nil
}

// toolError maps err onto the uniform error payload and records the failure.
func (s *Server) toolError(ctx context.Context, tool string, start time.Time, err error) *mcpgo.CallToolResult {
	kind := errorKind(err)
	metrics.RecordMCPToolCall(tool, "error", time.Since(start).Seconds())
	if kind == "internal_error" {
		s.logger.WithContext(ctx).WithError(err).WithField("tool", tool).Error("MCP tool call failed")
	}

	payload := map[string]any{
		"success": false,
		"error":   err.Error(),
		"kind":    kind,
	}
	b, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return mcpgo.NewToolResultError(err.Error())
	}
	return mcpgo.NewToolResultError(string(b))
}

func badRequest(msg string) error {
	return httperror.NewHTTPError(http.StatusBadRequest, msg)
}

// --- tool definitions ---

func buildCreateCharacterTool() mcpgo.Tool {
	return mcpgo.NewTool("create_character",
		mcpgo.WithDescription("Create a character. Personality traits default from the archetype when an archetype_id is given and no traits are provided."),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("Character name, 1-100 characters"),
		),
		mcpgo.WithString("nickname",
			mcpgo.Description("Optional nickname, up to 50 characters"),
		),
		mcpgo.WithNumber("age",
			mcpgo.Description("Age in years, 0-200"),
		),
		mcpgo.WithString("gender",
			mcpgo.Description("Free-form gender"),
		),
		mcpgo.WithString("occupation",
			mcpgo.Description("Occupation or role in the world"),
		),
		mcpgo.WithString("backstory",
			mcpgo.Description("Backstory prose"),
		),
		mcpgo.WithString("physical_description",
			mcpgo.Description("Physical description prose"),
		),
		mcpgo.WithArray("personality_traits",
			mcpgo.Description("Personality trait keywords"),
		),
		mcpgo.WithObject("emotional_state",
			mcpgo.Description("Current emotional state as free-form key/value pairs"),
		),
		mcpgo.WithString("narrative_role",
			mcpgo.Description("Narrative role: protagonist, antagonist, mentor, ally, neutral, or comic_relief"),
		),
		mcpgo.WithString("archetype_id",
			mcpgo.Description("Archetype to seed personality defaults from"),
		),
	)
}

func buildGetCharacterTool() mcpgo.Tool {
	return mcpgo.NewTool("get_character",
		mcpgo.WithDescription("Fetch a character by ID, including personality and archetype details."),
		mcpgo.WithString("character_id",
			mcpgo.Required(),
			mcpgo.Description("The character's ID"),
		),
		mcpgo.WithBoolean("include_relationships",
			mcpgo.Description("Include the character's relationships in the response (default: false)"),
		),
	)
}

func buildUpdateCharacterTool() mcpgo.Tool {
	return mcpgo.NewTool("update_character",
		mcpgo.WithDescription("Update a character's fields. Omitted fields are left unchanged. Each update increments the character's version."),
		mcpgo.WithString("character_id",
			mcpgo.Required(),
			mcpgo.Description("The character's ID"),
		),
		mcpgo.WithString("name", mcpgo.Description("New name")),
		mcpgo.WithString("nickname", mcpgo.Description("New nickname")),
		mcpgo.WithNumber("age", mcpgo.Description("New age, 0-200")),
		mcpgo.WithString("gender", mcpgo.Description("New gender")),
		mcpgo.WithString("occupation", mcpgo.Description("New occupation")),
		mcpgo.WithString("backstory", mcpgo.Description("New backstory")),
		mcpgo.WithString("physical_description", mcpgo.Description("New physical description")),
		mcpgo.WithArray("personality_traits", mcpgo.Description("Replacement personality traits")),
		mcpgo.WithObject("emotional_state", mcpgo.Description("Replacement emotional state")),
		mcpgo.WithString("narrative_role", mcpgo.Description("New narrative role")),
	)
}

func buildSearchCharactersTool() mcpgo.Tool {
	return mcpgo.NewTool("search_characters",
		mcpgo.WithDescription("Search characters by name/nickname text and structured filters. Returns a paged result."),
		mcpgo.WithString("query",
			mcpgo.Description("Case-insensitive substring match against name and nickname"),
		),
		mcpgo.WithString("narrative_role",
			mcpgo.Description("Filter by narrative role"),
		),
		mcpgo.WithString("archetype_id",
			mcpgo.Description("Filter by archetype"),
		),
		mcpgo.WithNumber("min_age", mcpgo.Description("Minimum age")),
		mcpgo.WithNumber("max_age", mcpgo.Description("Maximum age")),
		mcpgo.WithArray("traits",
			mcpgo.Description("Personality traits the character must have"),
		),
		mcpgo.WithNumber("limit", mcpgo.Description("Page size, max 100 (default: 20)")),
		mcpgo.WithNumber("offset", mcpgo.Description("Page offset (default: 0)")),
	)
}

func buildCreateRelationshipTool() mcpgo.Tool {
	return mcpgo.NewTool("create_relationship",
		mcpgo.WithDescription("Create a relationship between two characters. Mutual relationships (the default) are visible from both characters' own side."),
		mcpgo.WithString("character_a_id",
			mcpgo.Required(),
			mcpgo.Description("First character's ID"),
		),
		mcpgo.WithString("character_b_id",
			mcpgo.Required(),
			mcpgo.Description("Second character's ID"),
		),
		mcpgo.WithString("relationship_type",
			mcpgo.Required(),
			mcpgo.Description("Relationship type: family, romantic, friendship, professional, adversarial, or mentor"),
		),
		mcpgo.WithNumber("strength",
			mcpgo.Description("Relationship strength 1-10"),
		),
		mcpgo.WithString("status",
			mcpgo.Description("Relationship status: active, inactive, complicated, or developing (default: active)"),
		),
		mcpgo.WithString("history",
			mcpgo.Description("Shared history prose"),
		),
		mcpgo.WithObject("metadata",
			mcpgo.Description("Free-form relationship metadata"),
		),
		mcpgo.WithBoolean("is_mutual",
			mcpgo.Description("Whether both characters share the relationship (default: true). When false, only the one-sided edge is stored and no mirror is maintained."),
		),
	)
}

func buildUpdateRelationshipTool() mcpgo.Tool {
	return mcpgo.NewTool("update_relationship",
		mcpgo.WithDescription("Update a relationship's strength, status, history, or metadata. Participants and type are immutable. Mutual relationships stay in sync on both sides."),
		mcpgo.WithString("relationship_id",
			mcpgo.Required(),
			mcpgo.Description("The relationship's ID (either direction)"),
		),
		mcpgo.WithNumber("strength", mcpgo.Description("New strength 1-10")),
		mcpgo.WithString("status", mcpgo.Description("New status")),
		mcpgo.WithString("history", mcpgo.Description("New shared history")),
		mcpgo.WithObject("metadata", mcpgo.Description("Replacement metadata")),
	)
}

func buildDeleteRelationshipTool() mcpgo.Tool {
	return mcpgo.NewTool("delete_relationship",
		mcpgo.WithDescription("Delete a relationship by ID. Mutual relationships are removed from both sides."),
		mcpgo.WithString("relationship_id",
			mcpgo.Required(),
			mcpgo.Description("The relationship's ID (either direction)"),
		),
	)
}

func buildCharacterRelationshipsTool() mcpgo.Tool {
	return mcpgo.NewTool("get_character_relationships",
		mcpgo.WithDescription("List a character's relationships, each seen from that character's perspective and carrying the related character's id, name, and nickname."),
		mcpgo.WithString("character_id",
			mcpgo.Required(),
			mcpgo.Description("The character's ID"),
		),
		mcpgo.WithString("relationship_type",
			mcpgo.Description("Filter by relationship type"),
		),
		mcpgo.WithString("status",
			mcpgo.Description("Filter by relationship status"),
		),
	)
}

func buildRelationshipNetworkTool() mcpgo.Tool {
	return mcpgo.NewTool("get_relationship_network",
		mcpgo.WithDescription("Traverse the relationship network around a character up to a maximum depth. Returns the reachable characters and the connecting edges."),
		mcpgo.WithString("character_id",
			mcpgo.Required(),
			mcpgo.Description("The center character's ID"),
		),
		mcpgo.WithNumber("depth",
			mcpgo.Description("Maximum traversal depth (default and cap come from server config)"),
		),
	)
}

func buildGenerateProfilesTool() mcpgo.Tool {
	return mcpgo.NewTool("generate_character_profiles",
		mcpgo.WithDescription("Generate character profiles from a scene list and concept brief via the configured LLM provider. Known registry characters are reused instead of duplicated."),
		mcpgo.WithArray("scene_list",
			mcpgo.Required(),
			mcpgo.Description("Scenes with scene_number, primary_characters, secondary_characters, goal, and notes"),
		),
		mcpgo.WithObject("concept_brief",
			mcpgo.Required(),
			mcpgo.Description("Concept brief with genre_tags, tone_keywords, and core_conflict"),
		),
		mcpgo.WithString("project_id",
			mcpgo.Required(),
			mcpgo.Description("Project the characters belong to"),
		),
	)
}

// --- tool handlers ---

func (s *Server) handleCreateCharacter(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	start := time.Now()

	var in models.CreateCharacterRequest
	if err := req.BindArguments(&in); err != nil {
		return s.toolError(ctx, "create_character", start, badRequest("invalid arguments: "+err.Error())), nil
	}

	character, err := s.characters.Create(ctx, &in)
	if err != nil {
		return s.toolError(ctx, "create_character", start, err), nil
	}
	return s.toolResult("create_character", start, character)
}

func (s *Server) handleGetCharacter(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	start := time.Now()

	id := req.GetString("character_id", "")
	if strings.TrimSpace(id) == "" {
		return s.toolError(ctx, "get_character", start, badRequest("character_id is required")), nil
	}
	includeRelationships := req.GetBool("include_relationships", false)

	detail, err := s.characters.Get(ctx, id, includeRelationships)
	if err != nil {
		return s.toolError(ctx, "get_character", start, err), nil
	}
	return s.toolResult("get_character", start, detail)
}

// updatableCharacterFields is the full set of fields update_character accepts.
// Anything else in the arguments is rejected rather than silently dropped.
var updatableCharacterFields = map[string]bool{
	"name":                 true,
	"nickname":             true,
	"age":                  true,
	"gender":               true,
	"occupation":           true,
	"backstory":            true,
	"physical_description": true,
	"personality_traits":   true,
	"emotional_state":      true,
	"narrative_role":       true,
}

func (s *Server) handleUpdateCharacter(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	start := time.Now()

	id := req.GetString("character_id", "")
	if strings.TrimSpace(id) == "" {
		return s.toolError(ctx, "update_character", start, badRequest("character_id is required")), nil
	}
	for key := range req.GetArguments() {
		if key != "character_id" && !updatableCharacterFields[key] {
			return s.toolError(ctx, "update_character", start, badRequest("field cannot be updated: "+key)), nil
		}
	}

	var in models.UpdateCharacterRequest
	if err := req.BindArguments(&in); err != nil {
		return s.toolError(ctx, "update_character", start, badRequest("invalid arguments: "+err.Error())), nil
	}

	character, err := s.characters.Update(ctx, id, &in)
	if err != nil {
		return s.toolError(ctx, "update_character", start, err), nil
	}
	return s.toolResult("update_character", start, map[string]any{
		"character_id":   character.ID,
		"updated_fields": in.UpdatedFields(),
		"updated_at":     character.UpdatedAt,
	})
}

func (s *Server) handleSearchCharacters(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	start := time.Now()

	var in models.SearchCharactersRequest
	if err := req.BindArguments(&in); err != nil {
		return s.toolError(ctx, "search_characters", start, badRequest("invalid arguments: "+err.Error())), nil
	}

	result, err := s.characters.Search(ctx, &in)
	if err != nil {
		return s.toolError(ctx, "search_characters", start, err), nil
	}
	return s.toolResult("search_characters", start, result)
}

func (s *Server) handleCreateRelationship(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	start := time.Now()

	var in models.CreateRelationshipRequest
	if err := req.BindArguments(&in); err != nil {
		return s.toolError(ctx, "create_relationship", start, badRequest("invalid arguments: "+err.Error())), nil
	}
	if strings.TrimSpace(in.CharacterAID) == "" || strings.TrimSpace(in.CharacterBID) == "" {
		return s.toolError(ctx, "create_relationship", start, badRequest("character_a_id and character_b_id are required")), nil
	}

	relationship, err := s.relationships.Create(ctx, &in)
	if err != nil {
		return s.toolError(ctx, "create_relationship", start, err), nil
	}
	return s.toolResult("create_relationship", start, relationship)
}

func (s *Server) handleUpdateRelationship(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	start := time.Now()

	id := req.GetString("relationship_id", "")
	if strings.TrimSpace(id) == "" {
		return s.toolError(ctx, "update_relationship", start, badRequest("relationship_id is required")), nil
	}

	var in models.UpdateRelationshipRequest
	if err := req.BindArguments(&in); err != nil {
		return s.toolError(ctx, "update_relationship", start, badRequest("invalid arguments: "+err.Error())), nil
	}

	relationship, err := s.relationships.Update(ctx, id, &in)
	if err != nil {
		return s.toolError(ctx, "update_relationship", start, err), nil
	}
	return s.toolResult("update_relationship", start, relationship)
}

func (s *Server) handleDeleteRelationship(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	start := time.Now()

	id := req.GetString("relationship_id", "")
	if strings.TrimSpace(id) == "" {
		return s.toolError(ctx, "delete_relationship", start, badRequest("relationship_id is required")), nil
	}

	deleted, err := s.relationships.Delete(ctx, id)
	if err != nil {
		return s.toolError(ctx, "delete_relationship", start, err), nil
	}
	if !deleted {
		return s.toolError(ctx, "delete_relationship", start, httperror.NewHTTPError(http.StatusNotFound, "relationship not found: "+id)), nil
	}
	return s.toolResult("delete_relationship", start, map[string]any{"success": true, "deleted": true})
}

func (s *Server) handleCharacterRelationships(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	start := time.Now()

	id := req.GetString("character_id", "")
	if strings.TrimSpace(id) == "" {
		return s.toolError(ctx, "get_character_relationships", start, badRequest("character_id is required")), nil
	}

	in := models.ListRelationshipsRequest{CharacterID: id}
	if t := req.GetString("relationship_type", ""); t != "" {
		in.RelationshipType = &t
	}
	if st := req.GetString("status", ""); st != "" {
		in.Status = &st
	}

	relationships, err := s.relationships.ListForCharacterWithRelated(ctx, &in)
	if err != nil {
		return s.toolError(ctx, "get_character_relationships", start, err), nil
	}
	return s.toolResult("get_character_relationships", start, map[string]any{
		"character_id":  id,
		"relationships": relationships,
		"count":         len(relationships),
	})
}

func (s *Server) handleRelationshipNetwork(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	start := time.Now()

	id := req.GetString("character_id", "")
	if strings.TrimSpace(id) == "" {
		return s.toolError(ctx, "get_relationship_network", start, badRequest("character_id is required")), nil
	}
	depth := req.GetInt("depth", 0)

	network, err := s.relationships.Network(ctx, id, depth)
	if err != nil {
		return s.toolError(ctx, "get_relationship_network", start, err), nil
	}
	return s.toolResult("get_relationship_network", start, network)
}

func (s *Server) handleGenerateProfiles(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	start := time.Now()

	if s.profiles == nil {
		return s.toolError(ctx, "generate_character_profiles", start, httperror.NewHTTPError(http.StatusServiceUnavailable, "profile generation is not configured")), nil
	}

	var in models.GenerateProfilesRequest
	if err := req.BindArguments(&in); err != nil {
		return s.toolError(ctx, "generate_character_profiles", start, badRequest("invalid arguments: "+err.Error())), nil
	}

	result, err := s.profiles.Generate(ctx, &in)
	if err != nil {
		return s.toolError(ctx, "generate_character_profiles", start, err), nil
	}
	return s.toolResult("generate_character_profiles", start, result)
}
