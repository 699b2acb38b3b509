package relationships

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

// Network runs a breadth-first traversal of the relationship graph rooted at
// centerID. Each round loads the whole frontier's edges in one query, so the
// database cost is one query per depth level rather than one per node. Mutual
// relationships are reachable through their mirror rows; one-sided rows are
// loaded from either column.
func (e *Engine) Network(ctx context.Context, centerID string, maxDepth int) (*models.RelationshipNetwork, error) {
	ctx, span := tracing.StartSpan(ctx, "relationships.Engine.Network")
	defer span.End()

	if maxDepth <= 0 {
		maxDepth = e.cfg.NetworkDefaultDepth
	}
	if maxDepth > e.cfg.NetworkMaxDepth {
		maxDepth = e.cfg.NetworkMaxDepth
	}

	exists, err := e.characters.Exists(ctx, centerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "character not found: "+centerID)
	}

	start := time.Now()
	visited := map[string]bool{centerID: true}
	seenEdges := map[string]bool{}
	frontier := []string{centerID}
	edges := []models.NetworkEdge{}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		rels, err := e.relationships.ListForCharacters(ctx, frontier)
		if err != nil {
			return nil, err
		}

		inFrontier := map[string]bool{}
		for _, id := range frontier {
			inFrontier[id] = true
		}

		next := []string{}
		for i := range rels {
			rel := &rels[i]
			key := edgeKey(rel.CharacterAID, rel.CharacterBID, rel.RelationshipType)
			if !seenEdges[key] {
				seenEdges[key] = true
				edges = append(edges, models.NetworkEdge{
					FromCharacterID:  rel.CharacterAID,
					ToCharacterID:    rel.CharacterBID,
					RelationshipType: rel.RelationshipType,
					Strength:         rel.Strength,
					Status:           rel.Status,
					Depth:            depth,
				})
			}
			other := rel.CharacterBID
			if !inFrontier[rel.CharacterAID] {
				other = rel.CharacterAID
			}
			if !visited[other] {
				visited[other] = true
				next = append(next, other)
			}
		}
		frontier = next
	}

	ids := make([]string, 0, len(visited))
	for id := range visited {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	characters, err := e.characters.GetBrief(ctx, ids)
	if err != nil {
		return nil, err
	}

	metrics.NetworkTraversalDuration.WithLabelValues(strconv.Itoa(maxDepth)).Observe(time.Since(start).Seconds())
	metrics.NetworkNodesReturned.Observe(float64(len(characters)))

	return &models.RelationshipNetwork{
		CenterID:   centerID,
		MaxDepth:   maxDepth,
		Characters: characters,
		Edges:      edges,
	}, nil
}

// edgeKey identifies a logical relationship independent of row direction, so
// the canonical row and its mirror collapse to one network edge.
func edgeKey(aID, bID, relationshipType string) string {
	if bID < aID {
		aID, bID = bID, aID
	}
	return aID + "|" + bID + "|" + relationshipType
}
