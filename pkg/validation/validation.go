package validation

import (
	"fmt"
	"strings"
)

// Canonical enums shared by the entity layer, the REST routes, and the MCP
// tool layer. The database CHECK constraints mirror these lists.

var RelationshipTypes = []string{
	"family",
	"romantic",
	"friendship",
	"professional",
	"adversarial",
	"mentor",
}

var RelationshipStatuses = []string{
	"active",
	"inactive",
	"complicated",
	"developing",
}

var NarrativeRoles = []string{
	"protagonist",
	"antagonist",
	"mentor",
	"ally",
	"neutral",
	"comic_relief",
}

const (
	MinStrength = 1
	MaxStrength = 10

	MinAge = 0
	MaxAge = 200

	MaxNameLength     = 100
	MaxNicknameLength = 50
)

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

func IsRelationshipType(value string) bool {
	return contains(RelationshipTypes, value)
}

func IsRelationshipStatus(value string) bool {
	return contains(RelationshipStatuses, value)
}

func IsNarrativeRole(value string) bool {
	return contains(NarrativeRoles, value)
}

func CheckRelationshipType(value string) error {
	if !IsRelationshipType(value) {
		return fmt.Errorf("invalid relationship_type %q, must be one of: %s", value, strings.Join(RelationshipTypes, ", "))
	}
	return nil
}

func CheckRelationshipStatus(value string) error {
	if !IsRelationshipStatus(value) {
		return fmt.Errorf("invalid status %q, must be one of: %s", value, strings.Join(RelationshipStatuses, ", "))
	}
	return nil
}

func CheckNarrativeRole(value string) error {
	if !IsNarrativeRole(value) {
		return fmt.Errorf("invalid narrative_role %q, must be one of: %s", value, strings.Join(NarrativeRoles, ", "))
	}
	return nil
}

func CheckStrength(value int) error {
	if value < MinStrength || value > MaxStrength {
		return fmt.Errorf("strength must be between %d and %d, got %d", MinStrength, MaxStrength, value)
	}
	return nil
}

func CheckAge(value int) error {
	if value < MinAge || value > MaxAge {
		return fmt.Errorf("age must be between %d and %d, got %d", MinAge, MaxAge, value)
	}
	return nil
}

// NormalizeName trims surrounding whitespace and enforces the 1..100 length
// rule. Returns the normalized name.
func NormalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("name is required and cannot be blank")
	}
	if len(trimmed) > MaxNameLength {
		return "", fmt.Errorf("name cannot exceed %d characters", MaxNameLength)
	}
	return trimmed, nil
}

func CheckNickname(nickname string) error {
	if len(nickname) > MaxNicknameLength {
		return fmt.Errorf("nickname cannot exceed %d characters", MaxNicknameLength)
	}
	return nil
}
