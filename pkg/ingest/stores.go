package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/rowstack/regatta/pkg/models"
)

// RaceStore is the race persistence surface the engine writes through.
type RaceStore interface {
	// GetByRef returns the race carrying a provenance record for
	// (datasource, refID), or ErrNotFound.
	GetByRef(ctx context.Context, datasource, refID string) (*models.Race, error)
	// SearchByNames returns races matching any of the names on the given
	// date and day, optionally scoped to a league and gender.
	SearchByNames(ctx context.Context, names []string, leagueID *string, gender string, date time.Time, day int) ([]models.Race, error)
	// GetByCompetitions returns the race exactly matching the candidate's
	// (trophy, flag, league, date) key, or ErrNotFound. The authoritative
	// duplicate check.
	GetByCompetitions(ctx context.Context, trophyID, flagID, leagueID *string, date time.Time) (*models.Race, error)
	// GetAssociated returns the opposite-day race of the same competition,
	// edition and league in the same year, or ErrNotFound.
	GetAssociated(ctx context.Context, race *models.Race) (*models.Race, error)
	// FindSiblings returns races sharing the competition, any edition.
	FindSiblings(ctx context.Context, kind models.CompetitionKind, competitionID string) ([]models.Race, error)
	Create(ctx context.Context, race *models.Race) error
	Update(ctx context.Context, race *models.Race) error
	// Associate links two races as day-1/day-2 of one event, both ways, in
	// a single transaction.
	Associate(ctx context.Context, first, second *models.Race) error
}

// LeagueStore resolves league labels.
type LeagueStore interface {
	// GetByName matches a league by name or symbol, case-insensitively.
	GetByName(ctx context.Context, name string) (*models.League, error)
}

// ParticipantStore is the participant persistence surface.
type ParticipantStore interface {
	// FindByRaceAndClub returns the participants a club already has in a
	// race for the gender and category, branch rows included.
	FindByRaceAndClub(ctx context.Context, raceID, clubID, gender, category string) ([]models.Participant, error)
	Create(ctx context.Context, participant *models.Participant) error
	Update(ctx context.Context, participant *models.Participant) error
}

// PenaltyStore persists penalties.
type PenaltyStore interface {
	// FindByParticipant returns the penalties already recorded.
	FindByParticipant(ctx context.Context, participantID string) ([]models.Penalty, error)
	Create(ctx context.Context, penalty *models.Penalty) error
	Update(ctx context.Context, penalty *models.Penalty) error
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// failure.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
