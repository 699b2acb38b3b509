package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

// Projector mirrors characters and relationships into the graph database for
// downstream cypher consumers. The Postgres store stays authoritative; the
// projection is maintained best-effort after commits.
type Projector struct {
	client *Client
	logger ectologger.Logger
}

// NewProjector creates a new graph projector. A nil client disables projection.
func NewProjector(client *Client, logger ectologger.Logger) *Projector {
	return &Projector{
		client: client,
		logger: logger,
	}
}

func (p *Projector) enabled() bool {
	return p != nil && p.client != nil
}

// UpsertCharacter creates or updates the character node.
func (p *Projector) UpsertCharacter(ctx context.Context, ch *models.Character) {
	if !p.enabled() {
		return
	}
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.UpsertCharacter")
	defer span.End()

	props := map[string]any{
		"id":      ch.ID,
		"name":    ch.Name,
		"version": ch.Version,
	}
	if ch.Nickname != nil {
		props["nickname"] = *ch.Nickname
	}
	if ch.NarrativeRole != nil {
		props["narrative_role"] = *ch.NarrativeRole
	}

	cypher := `
		MERGE (c:Character {id: $id})
		SET c += $props
		RETURN c
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":    ch.ID,
			"props": props,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		metrics.RecordGraphProjection("upsert_character", "error")
		p.logger.WithContext(ctx).WithError(err).WithField("character_id", ch.ID).Error("Failed to project character to graph")
		return
	}
	metrics.RecordGraphProjection("upsert_character", "success")
}

// DeleteCharacter removes the character node and all of its edges.
func (p *Projector) DeleteCharacter(ctx context.Context, characterID string) {
	if !p.enabled() {
		return
	}
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.DeleteCharacter")
	defer span.End()

	cypher := `
		MATCH (c:Character {id: $id})
		DETACH DELETE c
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{"id": characterID})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		metrics.RecordGraphProjection("delete_character", "error")
		p.logger.WithContext(ctx).WithError(err).WithField("character_id", characterID).Error("Failed to remove character from graph")
		return
	}
	metrics.RecordGraphProjection("delete_character", "success")
}

// UpsertRelationship creates or updates one directed edge for the canonical
// row. The mirror row is not projected; the graph edge stands for the logical
// relationship.
func (p *Projector) UpsertRelationship(ctx context.Context, rel *models.Relationship) {
	if !p.enabled() {
		return
	}
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.UpsertRelationship")
	defer span.End()

	props := map[string]any{
		"id":        rel.ID,
		"status":    rel.Status,
		"is_mutual": rel.IsMutual,
	}
	if rel.Strength != nil {
		props["strength"] = *rel.Strength
	}

	cypher := fmt.Sprintf(`
		MATCH (a:Character {id: $a_id})
		MATCH (b:Character {id: $b_id})
		MERGE (a)-[r:%s {pair_key: $pair_key}]->(b)
		SET r += $props
		RETURN r
	`, relationshipLabel(rel.RelationshipType))

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"a_id":     rel.CharacterAID,
			"b_id":     rel.CharacterBID,
			"pair_key": pairKey(rel.CharacterAID, rel.CharacterBID, rel.RelationshipType),
			"props":    props,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		metrics.RecordGraphProjection("upsert_relationship", "error")
		p.logger.WithContext(ctx).WithError(err).WithField("relationship_id", rel.ID).Error("Failed to project relationship to graph")
		return
	}
	metrics.RecordGraphProjection("upsert_relationship", "success")
}

// DeleteRelationship removes the logical edge for a relationship pair.
func (p *Projector) DeleteRelationship(ctx context.Context, rel *models.Relationship) {
	if !p.enabled() {
		return
	}
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.DeleteRelationship")
	defer span.End()

	cypher := `
		MATCH ()-[r {pair_key: $pair_key}]-()
		DELETE r
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"pair_key": pairKey(rel.CharacterAID, rel.CharacterBID, rel.RelationshipType),
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		metrics.RecordGraphProjection("delete_relationship", "error")
		p.logger.WithContext(ctx).WithError(err).WithField("relationship_id", rel.ID).Error("Failed to remove relationship from graph")
		return
	}
	metrics.RecordGraphProjection("delete_relationship", "success")
}

// Neighbors returns the ids of characters connected within the given number of
// hops.
func (p *Projector) Neighbors(ctx context.Context, characterID string, hops int) ([]string, error) {
	if !p.enabled() {
		return nil, nil
	}
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.Neighbors")
	defer span.End()

	if hops <= 0 {
		hops = 1
	}

	cypher := fmt.Sprintf(`
		MATCH (start:Character {id: $id})
		MATCH (start)-[*1..%d]-(neighbor:Character)
		RETURN DISTINCT neighbor.id AS id
	`, hops)

	res, err := p.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{"id": characterID})
		if err != nil {
			return nil, err
		}
		var ids []string
		for result.Next(ctx) {
			record := result.Record()
			if val, ok := record.Get("id"); ok {
				if id, ok := val.(string); ok {
					ids = append(ids, id)
				}
			}
		}
		return ids, nil
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithField("character_id", characterID).Error("Failed to query graph neighbors")
		return nil, err
	}
	return res.([]string), nil
}

// pair_key identifies the logical edge independent of row direction.
func pairKey(aID, bID, relationshipType string) string {
	if bID < aID {
		aID, bID = bID, aID
	}
	return aID + "|" + bID + "|" + relationshipType
}

func relationshipLabel(relationshipType string) string {
	result := ""
	for _, c := range strings.ToUpper(relationshipType) {
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			result += string(c)
		}
	}
	if result == "" {
		return "RELATED_TO"
	}
	return result
}
