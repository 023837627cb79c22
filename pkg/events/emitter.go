// Package events handles event emission for race lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/rowstack/regatta/internal/tracing"
	"github.com/rowstack/regatta/pkg/audit"
	"github.com/rowstack/regatta/pkg/kafka"
	"github.com/rowstack/regatta/pkg/models"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Publisher is the producer surface the emitter writes through.
type Publisher interface {
	PublishRaceEvent(ctx context.Context, event *kafka.RaceEvent) error
	PublishParticipantEvent(ctx context.Context, event *kafka.ParticipantEvent) error
}

// Emitter publishes lifecycle events after records are committed
type Emitter struct {
	producer Publisher
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// RaceCommitted emits a race created or updated event. Emission failures are
// logged, not returned; the record is already committed.
func (e *Emitter) RaceCommitted(ctx context.Context, race *models.Race, datasource string, created bool) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.RaceCommitted")
	defer span.End()

	eventType := EventTypeRaceUpdated
	if created {
		eventType = EventTypeRaceCreated
	}

	payload := RaceCommittedEvent{
		BaseEvent:  NewBaseEvent(eventType),
		RaceID:     race.ID,
		Datasource: datasource,
	}
	var err error
	if payload.Data, err = json.Marshal(race); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to marshal race event payload")
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to marshal race event payload")
		return
	}

	event := &kafka.RaceEvent{
		EventType:  string(eventType),
		RaceID:     race.ID,
		Datasource: datasource,
		Data:       data,
	}

	if err := e.producer.PublishRaceEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"race_id": race.ID,
		}).Error("Failed to emit race event")
	}
}

// ParticipantCommitted emits a participant created or updated event
func (e *Emitter) ParticipantCommitted(ctx context.Context, participant *models.Participant, created bool) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.ParticipantCommitted")
	defer span.End()

	eventType := EventTypeParticipantUpdated
	if created {
		eventType = EventTypeParticipantCreated
	}

	payload := ParticipantCommittedEvent{
		BaseEvent:     NewBaseEvent(eventType),
		ParticipantID: participant.ID,
		RaceID:        participant.RaceID,
		ClubID:        participant.ClubID,
	}
	var err error
	if payload.Data, err = json.Marshal(participant); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to marshal participant event payload")
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to marshal participant event payload")
		return
	}

	event := &kafka.ParticipantEvent{
		EventType:     string(eventType),
		ParticipantID: participant.ID,
		RaceID:        participant.RaceID,
		ClubID:        participant.ClubID,
		Data:          data,
	}

	if err := e.producer.PublishParticipantEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"participant_id": participant.ID,
		}).Error("Failed to emit participant event")
	}
}

// EditionGaps emits one event per hole the edition continuity audit found
func (e *Emitter) EditionGaps(ctx context.Context, gaps []audit.Gap) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EditionGaps")
	defer span.End()

	for _, gap := range gaps {
		payload := EditionGapEvent{
			BaseEvent:       NewBaseEvent(EventTypeEditionGap),
			CompetitionID:   gap.Competition.ID,
			CompetitionName: gap.Competition.Name,
			Kind:            string(gap.Competition.Kind),
			LeagueID:        gap.LeagueID,
			FromEdition:     gap.FromEdition,
			ToEdition:       gap.ToEdition,
		}

		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}

		event := &kafka.RaceEvent{
			EventType: string(EventTypeEditionGap),
			RaceID:    gap.Competition.ID,
			Data:      data,
		}
		if err := e.producer.PublishRaceEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
