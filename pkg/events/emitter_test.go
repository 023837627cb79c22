package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowstack/regatta/pkg/audit"
	"github.com/rowstack/regatta/pkg/kafka"
	"github.com/rowstack/regatta/pkg/models"
)

type fakePublisher struct {
	raceEvents        []*kafka.RaceEvent
	participantEvents []*kafka.ParticipantEvent
}

func (f *fakePublisher) PublishRaceEvent(_ context.Context, event *kafka.RaceEvent) error {
	f.raceEvents = append(f.raceEvents, event)
	return nil
}

func (f *fakePublisher) PublishParticipantEvent(_ context.Context, event *kafka.ParticipantEvent) error {
	f.participantEvents = append(f.participantEvents, event)
	return nil
}

func newTestEmitter() (*Emitter, *fakePublisher) {
	publisher := &fakePublisher{}
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewEmitter(publisher, logger), publisher
}

func TestRaceCommittedEnvelope(t *testing.T) {
	emitter, publisher := newTestEmitter()
	race := &models.Race{ID: "race-1", Gender: models.GenderMale}

	emitter.RaceCommitted(context.Background(), race, "arc", true)

	require.Len(t, publisher.raceEvents, 1)
	event := publisher.raceEvents[0]
	assert.Equal(t, string(EventTypeRaceCreated), event.EventType)
	assert.Equal(t, "race-1", event.RaceID)
	assert.Equal(t, "arc", event.Datasource)

	var payload RaceCommittedEvent
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, EventTypeRaceCreated, payload.EventType)
	assert.Equal(t, SchemaVersion, payload.SchemaVersion)
	assert.NotEmpty(t, payload.CorrelationID)
	assert.False(t, payload.Timestamp.IsZero())

	var inner models.Race
	require.NoError(t, json.Unmarshal(payload.Data, &inner))
	assert.Equal(t, "race-1", inner.ID)
}

func TestRaceCommittedUpdateType(t *testing.T) {
	emitter, publisher := newTestEmitter()

	emitter.RaceCommitted(context.Background(), &models.Race{ID: "race-1"}, "arc", false)

	require.Len(t, publisher.raceEvents, 1)
	assert.Equal(t, string(EventTypeRaceUpdated), publisher.raceEvents[0].EventType)
}

func TestParticipantCommittedEnvelope(t *testing.T) {
	emitter, publisher := newTestEmitter()
	participant := &models.Participant{ID: "participant-1", RaceID: "race-1", ClubID: "club-1"}

	emitter.ParticipantCommitted(context.Background(), participant, true)

	require.Len(t, publisher.participantEvents, 1)
	event := publisher.participantEvents[0]
	assert.Equal(t, string(EventTypeParticipantCreated), event.EventType)
	assert.Equal(t, "participant-1", event.ParticipantID)
	assert.Equal(t, "club-1", event.ClubID)

	var payload ParticipantCommittedEvent
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, SchemaVersion, payload.SchemaVersion)
	assert.Equal(t, "race-1", payload.RaceID)
}

func TestEditionGaps(t *testing.T) {
	emitter, publisher := newTestEmitter()
	league := "league-1"
	gaps := []audit.Gap{{
		Competition: models.Competition{ID: "flag-1", Kind: models.KindFlag, Name: "BANDERA PETRONOR"},
		LeagueID:    &league,
		FromEdition: 27,
		ToEdition:   29,
	}}

	require.NoError(t, emitter.EditionGaps(context.Background(), gaps))

	require.Len(t, publisher.raceEvents, 1)
	event := publisher.raceEvents[0]
	assert.Equal(t, string(EventTypeEditionGap), event.EventType)

	var payload EditionGapEvent
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, "flag-1", payload.CompetitionID)
	assert.Equal(t, 27, payload.FromEdition)
	assert.Equal(t, 29, payload.ToEdition)
	require.NotNil(t, payload.LeagueID)
	assert.Equal(t, "league-1", *payload.LeagueID)
}
