// Package profiles implements the character profile generation workflow:
// scene lists plus a concept brief in, 2-4 lightweight character profiles out.
package profiles

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/sashabaranov/go-openai"

	"github.com/Ramsey-B/bramble/config"
	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

const lackingGuidance = "lacking_guidance"

const (
	roleProtagonist = "protagonist"
	roleAntagonist  = "antagonist"
	roleSupport     = "support"
)

type llmClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type registryClient interface {
	GetProjectCharacters(ctx context.Context, projectID string) ([]models.RegistryCharacter, error)
	UpsertCharacter(ctx context.Context, projectID string, profile *models.CharacterProfile) error
}

// NewLLMClient builds the chat completion client from config.
func NewLLMClient(cfg *config.Config) *openai.Client {
	apiKey := cfg.LLMAPIKey
	if apiKey == "" {
		apiKey = "sk-xxx"
	}
	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = cfg.LLMProviderURL
	return openai.NewClientWithConfig(clientConfig)
}

// Generator runs the profile generation workflow. The registry client may be
// nil; generation then works purely from the scene list.
type Generator struct {
	llm      llmClient
	registry registryClient
	cfg      *config.Config
	logger   ectologger.Logger
}

func NewGenerator(llm llmClient, registry registryClient, cfg *config.Config, logger ectologger.Logger) *Generator {
	return &Generator{
		llm:      llm,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
	}
}

// characterContext is the per-character working state extracted from scenes.
type characterContext struct {
	Name         string
	RegistryID   string
	SourceScenes []int
	Goals        []string
	CoAppearing  []string
	IsPrimary    bool
}

// Generate extracts the most prominent characters from the scene list,
// generates their motivations and visual signatures, and upserts the results
// into the external registry. A lacking_guidance answer from the model halts
// the run rather than shipping a speculative profile.
func (g *Generator) Generate(ctx context.Context, req *models.GenerateProfilesRequest) (*models.GenerateProfilesResult, error) {
	ctx, span := tracing.StartSpan(ctx, "profiles.Generator.Generate")
	defer span.End()

	if len(req.SceneList) == 0 {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "scene_list cannot be empty")
	}
	if req.ProjectID == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "project_id is required")
	}
	if req.ConceptBrief.CoreConflict == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "concept_brief.core_conflict is required")
	}

	g.logger.WithContext(ctx).WithFields(map[string]any{
		"project_id":  req.ProjectID,
		"scene_count": len(req.SceneList),
	}).Info("Starting character profile generation")

	var registryCharacters []models.RegistryCharacter
	if g.registry != nil {
		registryCharacters, _ = g.registry.GetProjectCharacters(ctx, req.ProjectID)
	}

	candidates := extractCharacters(req.SceneList)
	candidates = dedupeAgainstRegistry(candidates, registryCharacters)

	// most prominent characters first, capped by config
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].SourceScenes) > len(candidates[j].SourceScenes)
	})
	if len(candidates) > g.cfg.MaxProfilesPerRequest {
		candidates = candidates[:g.cfg.MaxProfilesPerRequest]
	}

	result := &models.GenerateProfilesResult{
		CharacterProfiles:    []models.CharacterProfile{},
		UnresolvedReferences: []string{},
	}

	for i := range candidates {
		candidate := &candidates[i]
		role := classifyRole(candidate, len(req.SceneList))

		motivation, visualSignature, err := g.generateAttributes(ctx, candidate, &req.ConceptBrief, role)
		if err != nil {
			g.logger.WithContext(ctx).WithError(err).WithField("character", candidate.Name).Error("Failed to generate profile")
			result.UnresolvedReferences = append(result.UnresolvedReferences, candidate.Name)
			continue
		}

		if motivation == lackingGuidance || visualSignature == lackingGuidance {
			g.logger.WithContext(ctx).WithField("character", candidate.Name).Warnf("Lacking guidance, halting profile generation")
			metrics.ProfileGenerationsTotal.WithLabelValues("lacking_guidance").Inc()
			return &models.GenerateProfilesResult{
				Success:              false,
				Error:                lackingGuidance,
				Message:              "insufficient guidance for character: " + candidate.Name,
				CharacterProfiles:    []models.CharacterProfile{},
				UnresolvedReferences: []string{candidate.Name},
			}, nil
		}

		profile := models.CharacterProfile{
			Name:            candidate.Name,
			Role:            role,
			Motivation:      truncateWords(motivation, g.cfg.MotivationWordLimit),
			VisualSignature: truncateWords(visualSignature, g.cfg.SignatureWordLimit),
			Relationships:   relationshipHints(candidate),
			ContinuityNotes: continuityNotes(candidate),
		}
		result.CharacterProfiles = append(result.CharacterProfiles, profile)

		if g.registry != nil {
			if err := g.registry.UpsertCharacter(ctx, req.ProjectID, &profile); err != nil {
				g.logger.WithContext(ctx).WithError(err).WithField("character", profile.Name).Warnf("Failed to upsert profile to registry, continuing")
			}
		}
	}

	result.Success = true
	metrics.ProfileGenerationsTotal.WithLabelValues("success").Inc()

	g.logger.WithContext(ctx).WithFields(map[string]any{
		"profile_count":    len(result.CharacterProfiles),
		"unresolved_count": len(result.UnresolvedReferences),
	}).Info("Character profile generation completed")
	return result, nil
}

// attributesPrompt is the single prompt producing both fields as JSON.
const attributesPrompt = `You are generating a concise character anchor for storyboard and image teams.
Context: %s, tone %s, conflict %s.
Character: %s, scenes %s, role %s.

Based on the character's appearances and goals: %s

Provide motivation (<=%d words) and visual signature (<=%d words) using neutral, bias-free descriptors.

If you lack sufficient information to generate meaningful content, respond with exactly "lacking_guidance" for the respective field.

Format your response as JSON:
{
    "motivation": "string or 'lacking_guidance'",
    "visual_signature": "string or 'lacking_guidance'"
}`

func (g *Generator) generateAttributes(ctx context.Context, candidate *characterContext, brief *models.ConceptBrief, role string) (string, string, error) {
	sceneNumbers := make([]string, 0, len(candidate.SourceScenes))
	for _, n := range candidate.SourceScenes {
		sceneNumbers = append(sceneNumbers, fmt.Sprintf("%d", n))
	}

	prompt := fmt.Sprintf(attributesPrompt,
		strings.Join(brief.GenreTags, ", "),
		strings.Join(brief.ToneKeywords, ", "),
		brief.CoreConflict,
		candidate.Name,
		strings.Join(sceneNumbers, ", "),
		role,
		strings.Join(candidate.Goals, "; "),
		g.cfg.MotivationWordLimit,
		g.cfg.SignatureWordLimit,
	)

	start := time.Now()
	resp, err := g.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.cfg.LLMModelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   g.cfg.LLMMaxTokens,
		Temperature: float32(g.cfg.LLMTemperature),
	})
	metrics.LLMRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", "", err
	}
	if len(resp.Choices) == 0 {
		return "", "", fmt.Errorf("empty completion response")
	}

	return parseAttributes(resp.Choices[0].Message.Content)
}

type attributesResponse struct {
	Motivation      string `json:"motivation"`
	VisualSignature string `json:"visual_signature"`
}

func parseAttributes(content string) (string, string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var parsed attributesResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &parsed); err != nil {
		return "", "", fmt.Errorf("unparseable completion: %w", err)
	}
	if parsed.Motivation == "" {
		parsed.Motivation = lackingGuidance
	}
	if parsed.VisualSignature == "" {
		parsed.VisualSignature = lackingGuidance
	}
	return parsed.Motivation, parsed.VisualSignature, nil
}

func extractCharacters(scenes []models.Scene) []characterContext {
	byName := map[string]*characterContext{}
	order := []string{}

	record := func(scene *models.Scene, rawName string, primary bool) {
		name := strings.TrimSpace(rawName)
		if name == "" {
			return
		}
		key := strings.ToLower(name)
		candidate, ok := byName[key]
		if !ok {
			candidate = &characterContext{Name: name, IsPrimary: primary}
			byName[key] = candidate
			order = append(order, key)
		}
		if primary {
			candidate.IsPrimary = true
		}
		candidate.SourceScenes = append(candidate.SourceScenes, scene.SceneNumber)
		if goal := strings.TrimSpace(scene.Goal); goal != "" && !contains(candidate.Goals, goal) {
			candidate.Goals = append(candidate.Goals, goal)
		}
		for _, group := range [][]string{scene.PrimaryCharacters, scene.SecondaryCharacters} {
			for _, other := range group {
				other = strings.TrimSpace(other)
				if other == "" || strings.EqualFold(other, name) {
					continue
				}
				if !contains(candidate.CoAppearing, other) {
					candidate.CoAppearing = append(candidate.CoAppearing, other)
				}
			}
		}
	}

	for i := range scenes {
		scene := &scenes[i]
		for _, name := range scene.PrimaryCharacters {
			record(scene, name, true)
		}
		for _, name := range scene.SecondaryCharacters {
			record(scene, name, false)
		}
	}

	out := make([]characterContext, 0, len(order))
	for _, key := range order {
		out = append(out, *byName[key])
	}
	return out
}

// dedupeAgainstRegistry matches extracted characters to existing registry
// records by case-insensitive name, adopting the canonical registry name.
// Colliding new names get alphabetical suffixes.
func dedupeAgainstRegistry(candidates []characterContext, registry []models.RegistryCharacter) []characterContext {
	registryByName := map[string]*models.RegistryCharacter{}
	for i := range registry {
		registryByName[strings.ToLower(registry[i].Name)] = &registry[i]
	}

	counters := map[string]int{}
	out := make([]characterContext, 0, len(candidates))
	for _, candidate := range candidates {
		key := strings.ToLower(candidate.Name)
		if existing, ok := registryByName[key]; ok {
			candidate.RegistryID = existing.ID
			candidate.Name = existing.Name
			out = append(out, candidate)
			continue
		}
		if n, ok := counters[key]; ok {
			candidate.Name = fmt.Sprintf("%s %c", candidate.Name, 'A'+rune(n))
			counters[key] = n + 1
		} else {
			counters[key] = 0
		}
		out = append(out, candidate)
	}
	return out
}

// classifyRole buckets a character by scene prominence.
func classifyRole(candidate *characterContext, totalScenes int) string {
	if totalScenes == 0 {
		return roleSupport
	}
	prominence := float64(len(candidate.SourceScenes)) / float64(totalScenes)
	switch {
	case candidate.IsPrimary && prominence >= 0.5:
		return roleProtagonist
	case prominence >= 0.3:
		return roleAntagonist
	default:
		return roleSupport
	}
}

// relationshipHints derives descriptors from scene co-occurrence only; no
// speculation beyond what the scene list states.
func relationshipHints(candidate *characterContext) []string {
	hints := make([]string, 0, len(candidate.CoAppearing))
	for _, other := range candidate.CoAppearing {
		hints = append(hints, "shares scenes with "+other)
	}
	return hints
}

func continuityNotes(candidate *characterContext) []string {
	notes := []string{}

	if len(candidate.SourceScenes) > 1 {
		sceneNumbers := append([]int(nil), candidate.SourceScenes...)
		sort.Ints(sceneNumbers)
		parts := make([]string, 0, len(sceneNumbers))
		for _, n := range sceneNumbers {
			parts = append(parts, fmt.Sprintf("%d", n))
		}
		notes = append(notes, "Appears in scenes: "+strings.Join(parts, ", "))
	}

	switch len(candidate.Goals) {
	case 0:
	case 1:
		notes = append(notes, "Primary goal: "+candidate.Goals[0])
	default:
		notes = append(notes, fmt.Sprintf("Multiple goals across %d scenes", len(candidate.Goals)))
	}
	return notes
}

func truncateWords(s string, limit int) string {
	words := strings.Fields(s)
	if len(words) <= limit {
		return s
	}
	return strings.Join(words[:limit], " ")
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
