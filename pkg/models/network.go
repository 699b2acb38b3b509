package models

// NetworkCharacter is a node in a relationship network result.
type NetworkCharacter struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Nickname      *string `json:"nickname,omitempty"`
	NarrativeRole *string `json:"narrative_role,omitempty"`
}

// NetworkEdge is one logical relationship discovered during traversal. Depth
// is the traversal depth at which the edge was first reached.
type NetworkEdge struct {
	FromCharacterID  string `json:"from_character_id"`
	ToCharacterID    string `json:"to_character_id"`
	RelationshipType string `json:"relationship_type"`
	Strength         *int   `json:"strength,omitempty"`
	Status           string `json:"status"`
	Depth            int    `json:"depth"`
}

// RelationshipNetwork is the BFS traversal result rooted at CenterID.
type RelationshipNetwork struct {
	CenterID   string             `json:"center_character_id"`
	MaxDepth   int                `json:"max_depth"`
	Characters []NetworkCharacter `json:"characters"`
	Edges      []NetworkEdge      `json:"edges"`
}
