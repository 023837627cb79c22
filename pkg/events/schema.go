package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of event
type EventType string

const (
	// Race events
	EventTypeRaceCreated EventType = "race.created"
	EventTypeRaceUpdated EventType = "race.updated"

	// Participant events
	EventTypeParticipantCreated EventType = "participant.created"
	EventTypeParticipantUpdated EventType = "participant.updated"

	// Audit events
	EventTypeEditionGap EventType = "audit.edition_gap"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// RaceCommittedEvent is emitted after a race is created or updated
type RaceCommittedEvent struct {
	BaseEvent
	RaceID     string          `json:"race_id"`
	Datasource string          `json:"datasource"`
	Data       json.RawMessage `json:"data"`
}

// ParticipantCommittedEvent is emitted after a participant is created or
// updated
type ParticipantCommittedEvent struct {
	BaseEvent
	ParticipantID string          `json:"participant_id"`
	RaceID        string          `json:"race_id"`
	ClubID        string          `json:"club_id"`
	Data          json.RawMessage `json:"data"`
}

// EditionGapEvent is emitted for each hole the edition continuity audit finds
type EditionGapEvent struct {
	BaseEvent
	CompetitionID   string  `json:"competition_id"`
	CompetitionName string  `json:"competition_name"`
	Kind            string  `json:"kind"`
	LeagueID        *string `json:"league_id,omitempty"`
	FromEdition     int     `json:"from_edition"`
	ToEdition       int     `json:"to_edition"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
	}
}
