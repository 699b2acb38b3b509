// Package events handles event emission for character lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/pkg/kafka"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes lifecycle events after successful commits. Emission is
// best-effort: failures are logged and never fail the originating operation.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter. A nil producer disables emission.
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

func (e *Emitter) enabled() bool {
	return e != nil && e.producer != nil
}

// CharacterCreated emits a character.created event
func (e *Emitter) CharacterCreated(ctx context.Context, ch *models.Character) {
	e.emitCharacter(ctx, "character.created", ch)
}

// CharacterUpdated emits a character.updated event
func (e *Emitter) CharacterUpdated(ctx context.Context, ch *models.Character) {
	e.emitCharacter(ctx, "character.updated", ch)
}

// CharacterDeleted emits a character.deleted event
func (e *Emitter) CharacterDeleted(ctx context.Context, characterID string) {
	if !e.enabled() {
		return
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.CharacterDeleted")
	defer span.End()

	event := &kafka.CharacterEvent{
		EventType:   "character.deleted",
		CharacterID: characterID,
	}
	if err := e.producer.PublishCharacterEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit character.deleted event")
	}
}

func (e *Emitter) emitCharacter(ctx context.Context, eventType string, ch *models.Character) {
	if !e.enabled() {
		return
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.emitCharacter")
	defer span.End()

	data, _ := json.Marshal(ch)
	event := &kafka.CharacterEvent{
		EventType:   eventType,
		CharacterID: ch.ID,
		Name:        ch.Name,
		Data:        data,
		Version:     ch.Version,
	}
	if err := e.producer.PublishCharacterEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", eventType)
	}
}

// RelationshipCreated emits a relationship.created event
func (e *Emitter) RelationshipCreated(ctx context.Context, rel *models.Relationship) {
	e.emitRelationship(ctx, "relationship.created", rel)
}

// RelationshipUpdated emits a relationship.updated event
func (e *Emitter) RelationshipUpdated(ctx context.Context, rel *models.Relationship) {
	e.emitRelationship(ctx, "relationship.updated", rel)
}

// RelationshipDeleted emits a relationship.deleted event
func (e *Emitter) RelationshipDeleted(ctx context.Context, relationshipID string) {
	if !e.enabled() {
		return
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.RelationshipDeleted")
	defer span.End()

	event := &kafka.RelationshipEvent{
		EventType:      "relationship.deleted",
		RelationshipID: relationshipID,
	}
	if err := e.producer.PublishRelationshipEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit relationship.deleted event")
	}
}

func (e *Emitter) emitRelationship(ctx context.Context, eventType string, rel *models.Relationship) {
	if !e.enabled() {
		return
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.emitRelationship")
	defer span.End()

	data, _ := json.Marshal(rel)
	event := &kafka.RelationshipEvent{
		EventType:        eventType,
		RelationshipID:   rel.ID,
		RelationshipType: rel.RelationshipType,
		CharacterAID:     rel.CharacterAID,
		CharacterBID:     rel.CharacterBID,
		Data:             data,
	}
	if err := e.producer.PublishRelationshipEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", eventType)
	}
}
