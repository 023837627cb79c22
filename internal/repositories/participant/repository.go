// Package participant persists race participants.
package participant

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/rowstack/regatta/internal/database"
	"github.com/rowstack/regatta/internal/tracing"
	"github.com/rowstack/regatta/pkg/models"
)

const participantColumns = "id, race_id, club_id, club_names, branch, distance, laps, lane, series, handicap, gender, category, guest, absent, retired, metadata, created_at, updated_at"

// Repository handles participant persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new participant repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// FindByRaceAndClub returns a club's crews in a race for the given gender
// and category, branch rows included.
func (r *Repository) FindByRaceAndClub(ctx context.Context, raceID, clubID, gender, category string) ([]models.Participant, error) {
	ctx, span := tracing.StartSpan(ctx, "participant.Repository.FindByRaceAndClub")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(participantColumns)
	sb.From("participants")
	sb.Where(
		sb.Equal("race_id", raceID),
		sb.Equal("club_id", clubID),
		sb.Equal("gender", gender),
		sb.Equal("category", category),
	)
	sb.OrderBy("branch NULLS FIRST")

	query, args := sb.Build()
	var participants []models.Participant
	if err := r.db.SelectContext(ctx, &participants, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to find participants by race and club")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find participants")
	}
	return participants, nil
}

// ListByRace returns every participant of a race
func (r *Repository) ListByRace(ctx context.Context, raceID string) ([]models.Participant, error) {
	ctx, span := tracing.StartSpan(ctx, "participant.Repository.ListByRace")
	defer span.End()

	query := fmt.Sprintf("SELECT %s FROM participants WHERE race_id = $1 ORDER BY club_id, branch NULLS FIRST", participantColumns)
	var participants []models.Participant
	if err := r.db.SelectContext(ctx, &participants, query, raceID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list participants")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list participants")
	}
	return participants, nil
}

// Create creates a new participant
func (r *Repository) Create(ctx context.Context, participant *models.Participant) error {
	ctx, span := tracing.StartSpan(ctx, "participant.Repository.Create")
	defer span.End()

	if participant.ID == "" {
		participant.ID = uuid.New().String()
	}
	participant.CreatedAt = time.Now().UTC()
	participant.UpdatedAt = participant.CreatedAt
	if participant.ClubNames == nil {
		participant.ClubNames = pq.StringArray{}
	}
	if participant.Laps == nil {
		participant.Laps = pq.StringArray{}
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("participants")
	sb.Cols("id", "race_id", "club_id", "club_names", "branch", "distance", "laps", "lane", "series", "handicap", "gender", "category", "guest", "absent", "retired", "metadata", "created_at", "updated_at")
	sb.Values(participant.ID, participant.RaceID, participant.ClubID, participant.ClubNames, participant.Branch, participant.Distance, participant.Laps, participant.Lane, participant.Series, participant.Handicap, participant.Gender, participant.Category, participant.Guest, participant.Absent, participant.Retired, participant.Metadata, participant.CreatedAt, participant.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"race_id": participant.RaceID, "club_id": participant.ClubID}).Error("Failed to create participant")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create participant")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": participant.ID, "race_id": participant.RaceID}).Info("Created participant")
	return nil
}

// Update updates an existing participant
func (r *Repository) Update(ctx context.Context, participant *models.Participant) error {
	ctx, span := tracing.StartSpan(ctx, "participant.Repository.Update")
	defer span.End()

	participant.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("participants")
	sb.Set(
		sb.Assign("club_names", participant.ClubNames),
		sb.Assign("branch", participant.Branch),
		sb.Assign("distance", participant.Distance),
		sb.Assign("laps", participant.Laps),
		sb.Assign("lane", participant.Lane),
		sb.Assign("series", participant.Series),
		sb.Assign("handicap", participant.Handicap),
		sb.Assign("guest", participant.Guest),
		sb.Assign("absent", participant.Absent),
		sb.Assign("retired", participant.Retired),
		sb.Assign("metadata", participant.Metadata),
		sb.Assign("updated_at", participant.UpdatedAt),
	)
	sb.Where(sb.Equal("id", participant.ID))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update participant")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update participant")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return models.NewNotFound("participant", participant.ID)
	}
	return nil
}
