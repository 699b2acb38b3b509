package models

// Scene is one entry of an episode breakdown used for profile generation.
type Scene struct {
	SceneNumber         int      `json:"scene_number" validate:"required"`
	PrimaryCharacters   []string `json:"primary_characters" validate:"required,min=1"`
	SecondaryCharacters []string `json:"secondary_characters,omitempty"`
	Goal                string   `json:"goal" validate:"required"`
	Notes               string   `json:"notes,omitempty"`
}

// ConceptBrief carries the project tone and genre context for profile prompts.
type ConceptBrief struct {
	GenreTags    []string `json:"genre_tags" validate:"required,min=1"`
	ToneKeywords []string `json:"tone_keywords" validate:"required,min=1"`
	CoreConflict string   `json:"core_conflict" validate:"required"`
}

// GenerateProfilesRequest is the input for the profile generation workflow.
type GenerateProfilesRequest struct {
	SceneList    []Scene      `json:"scene_list" validate:"required,min=1,dive"`
	ConceptBrief ConceptBrief `json:"concept_brief" validate:"required"`
	ProjectID    string       `json:"project_id" validate:"required"`
}

// CharacterProfile is one generated profile for downstream agents.
type CharacterProfile struct {
	Name            string   `json:"name"`
	Role            string   `json:"role"`
	Motivation      string   `json:"motivation"`
	VisualSignature string   `json:"visual_signature"`
	Relationships   []string `json:"relationships"`
	ContinuityNotes []string `json:"continuity_notes"`
}

// GenerateProfilesResult is the output of a profile generation run.
type GenerateProfilesResult struct {
	Success              bool               `json:"success"`
	Error                string             `json:"error,omitempty"`
	Message              string             `json:"message,omitempty"`
	CharacterProfiles    []CharacterProfile `json:"character_profiles"`
	UnresolvedReferences []string           `json:"unresolved_references"`
}

// RegistryCharacter is a character record in the external character registry.
type RegistryCharacter struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	ProjectID  string         `json:"project_id"`
	Attributes map[string]any `json:"attributes,omitempty"`
}
