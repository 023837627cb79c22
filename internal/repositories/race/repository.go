// Package race persists canonical races and their day-pairing links.
package race

import (
	"context"
	"database/sql"
	"errors"
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

const raceColumns = "id, type, date, day, modality, gender, category, laps, lanes, town, cancelled, cancellation_reasons, race_names, sponsor, trophy_id, trophy_edition, flag_id, flag_edition, league_id, organizer_id, associated_id, same_as_id, metadata, created_at, updated_at"

// Repository handles race persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new race repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a race by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Race, error) {
	ctx, span := tracing.StartSpan(ctx, "race.Repository.Get")
	defer span.End()

	query := fmt.Sprintf("SELECT %s FROM races WHERE id = $1", raceColumns)
	var race models.Race
	if err := r.db.GetContext(ctx, &race, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFound("race", id)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get race")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get race")
	}
	return &race, nil
}

// GetByRef returns the race carrying a provenance record for
// (datasource, refID).
func (r *Repository) GetByRef(ctx context.Context, datasource, refID string) (*models.Race, error) {
	ctx, span := tracing.StartSpan(ctx, "race.Repository.GetByRef")
	defer span.End()

	query := fmt.Sprintf(`
		SELECT %s FROM races
		WHERE metadata -> 'datasource' @> jsonb_build_array(jsonb_build_object('datasource_name', $1::text, 'ref_id', $2::text))
		LIMIT 1
	`, raceColumns)

	var race models.Race
	if err := r.db.GetContext(ctx, &race, query, datasource, refID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFound("race", refID)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get race by source ref")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get race")
	}
	return &race, nil
}

// SearchByNames returns races sharing any of the name variants on the same
// date and day, optionally scoped to a league.
func (r *Repository) SearchByNames(ctx context.Context, names []string, leagueID *string, gender string, date time.Time, day int) ([]models.Race, error) {
	ctx, span := tracing.StartSpan(ctx, "race.Repository.SearchByNames")
	defer span.End()

	if len(names) == 0 {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(raceColumns)
	sb.From("races")
	where := []string{
		fmt.Sprintf("race_names && %s", sb.Var(pq.StringArray(names))),
		sb.Equal("date", date),
		sb.Equal("day", day),
		sb.Equal("gender", gender),
	}
	if leagueID != nil {
		where = append(where, sb.Equal("league_id", *leagueID))
	}
	sb.Where(where...)

	query, args := sb.Build()
	var races []models.Race
	if err := r.db.SelectContext(ctx, &races, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to search races by names")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search races")
	}
	return races, nil
}

// GetByCompetitions returns the race exactly matching the
// (trophy, flag, league, date) key. The uniqueness constraints make at most
// one row possible.
func (r *Repository) GetByCompetitions(ctx context.Context, trophyID, flagID, leagueID *string, date time.Time) (*models.Race, error) {
	ctx, span := tracing.StartSpan(ctx, "race.Repository.GetByCompetitions")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(raceColumns)
	sb.From("races")
	sb.Where(
		nullableEqual(sb, "trophy_id", trophyID),
		nullableEqual(sb, "flag_id", flagID),
		nullableEqual(sb, "league_id", leagueID),
		sb.Equal("date", date),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var race models.Race
	if err := r.db.GetContext(ctx, &race, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFound("race", date.Format("2006-01-02"))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get race by competitions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get race")
	}
	return &race, nil
}

// GetAssociated returns the opposite-day race of the same competition,
// edition and league in the same year.
func (r *Repository) GetAssociated(ctx context.Context, race *models.Race) (*models.Race, error) {
	ctx, span := tracing.StartSpan(ctx, "race.Repository.GetAssociated")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(raceColumns)
	sb.From("races")
	where := []string{
		sb.NotEqual("day", race.Day),
		fmt.Sprintf("EXTRACT(YEAR FROM date) = %s", sb.Var(race.Year())),
		nullableEqual(sb, "league_id", race.LeagueID),
	}
	if race.TrophyID != nil {
		where = append(where,
			sb.Equal("trophy_id", *race.TrophyID),
			sb.Equal("trophy_edition", *race.TrophyEdition),
		)
	}
	if race.FlagID != nil {
		where = append(where,
			sb.Equal("flag_id", *race.FlagID),
			sb.Equal("flag_edition", *race.FlagEdition),
		)
	}
	sb.Where(where...)
	sb.Limit(1)

	query, args := sb.Build()
	var associated models.Race
	if err := r.db.GetContext(ctx, &associated, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFound("race", "associated")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get associated race")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get associated race")
	}
	return &associated, nil
}

// FindSiblings returns every race of a competition, any edition.
func (r *Repository) FindSiblings(ctx context.Context, kind models.CompetitionKind, competitionID string) ([]models.Race, error) {
	ctx, span := tracing.StartSpan(ctx, "race.Repository.FindSiblings")
	defer span.End()

	query := fmt.Sprintf("SELECT %s FROM races WHERE %s = $1", raceColumns, kindColumn(kind))
	var races []models.Race
	if err := r.db.SelectContext(ctx, &races, query, competitionID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to find sibling races")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find sibling races")
	}
	return races, nil
}

// FindEditionCandidates returns day-one races usable as edition anchors:
// same year, gender and category, either belonging to the competition or
// carrying no competition of that kind at all.
func (r *Repository) FindEditionCandidates(ctx context.Context, kind models.CompetitionKind, competitionID string, gender, category string, year int) ([]models.Race, error) {
	ctx, span := tracing.StartSpan(ctx, "race.Repository.FindEditionCandidates")
	defer span.End()

	column := kindColumn(kind)
	query := fmt.Sprintf(`
		SELECT %s FROM races
		WHERE day = 1
		AND gender = $1
		AND category = $2
		AND EXTRACT(YEAR FROM date) = $3
		AND (%s IS NULL OR %s = $4)
	`, raceColumns, column, column)

	var races []models.Race
	if err := r.db.SelectContext(ctx, &races, query, gender, category, year, competitionID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to find edition candidate races")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find edition candidates")
	}
	return races, nil
}

// ListByCompetition returns a competition's races ordered for the edition
// continuity audit.
func (r *Repository) ListByCompetition(ctx context.Context, kind models.CompetitionKind, competitionID string) ([]models.Race, error) {
	ctx, span := tracing.StartSpan(ctx, "race.Repository.ListByCompetition")
	defer span.End()

	column := kindColumn(kind)
	query := fmt.Sprintf(`
		SELECT %s FROM races
		WHERE %s = $1
		ORDER BY league_id NULLS FIRST, %s ASC, day ASC
	`, raceColumns, column, editionColumn(kind))

	var races []models.Race
	if err := r.db.SelectContext(ctx, &races, query, competitionID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list races by competition")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list races")
	}
	return races, nil
}

// ListByYear returns the races of a year, newest first
func (r *Repository) ListByYear(ctx context.Context, year int, page, pageSize int) ([]models.Race, error) {
	ctx, span := tracing.StartSpan(ctx, "race.Repository.ListByYear")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(raceColumns)
	sb.From("races")
	sb.Where(fmt.Sprintf("EXTRACT(YEAR FROM date) = %s", sb.Var(year)))
	sb.OrderBy("date DESC", "day ASC")
	sb.Limit(pageSize).Offset((page - 1) * pageSize)

	query, args := sb.Build()
	var races []models.Race
	if err := r.db.SelectContext(ctx, &races, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list races by year")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list races")
	}
	return races, nil
}

// Create creates a new race. Unique-constraint violations surface as
// pq errors so the caller can run the day-2 retry.
func (r *Repository) Create(ctx context.Context, race *models.Race) error {
	ctx, span := tracing.StartSpan(ctx, "race.Repository.Create")
	defer span.End()

	if race.ID == "" {
		race.ID = uuid.New().String()
	}
	race.CreatedAt = time.Now().UTC()
	race.UpdatedAt = race.CreatedAt
	if race.RaceNames == nil {
		race.RaceNames = pq.StringArray{}
	}
	if race.CancellationReasons == nil {
		race.CancellationReasons = pq.StringArray{}
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("races")
	sb.Cols("id", "type", "date", "day", "modality", "gender", "category", "laps", "lanes", "town", "cancelled", "cancellation_reasons", "race_names", "sponsor", "trophy_id", "trophy_edition", "flag_id", "flag_edition", "league_id", "organizer_id", "associated_id", "same_as_id", "metadata", "created_at", "updated_at")
	sb.Values(race.ID, race.Type, race.Date, race.Day, race.Modality, race.Gender, race.Category, race.Laps, race.Lanes, race.Town, race.Cancelled, race.CancellationReasons, race.RaceNames, race.Sponsor, race.TrophyID, race.TrophyEdition, race.FlagID, race.FlagEdition, race.LeagueID, race.OrganizerID, race.AssociatedID, race.SameAsID, race.Metadata, race.CreatedAt, race.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return err
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"names": race.RaceNames}).Error("Failed to create race")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create race")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": race.ID, "names": race.RaceNames}).Info("Created race")
	return nil
}

// Update updates an existing race
func (r *Repository) Update(ctx context.Context, race *models.Race) error {
	ctx, span := tracing.StartSpan(ctx, "race.Repository.Update")
	defer span.End()

	race.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("races")
	sb.Set(
		sb.Assign("type", race.Type),
		sb.Assign("date", race.Date),
		sb.Assign("day", race.Day),
		sb.Assign("modality", race.Modality),
		sb.Assign("gender", race.Gender),
		sb.Assign("category", race.Category),
		sb.Assign("laps", race.Laps),
		sb.Assign("lanes", race.Lanes),
		sb.Assign("town", race.Town),
		sb.Assign("cancelled", race.Cancelled),
		sb.Assign("cancellation_reasons", race.CancellationReasons),
		sb.Assign("race_names", race.RaceNames),
		sb.Assign("sponsor", race.Sponsor),
		sb.Assign("trophy_id", race.TrophyID),
		sb.Assign("trophy_edition", race.TrophyEdition),
		sb.Assign("flag_id", race.FlagID),
		sb.Assign("flag_edition", race.FlagEdition),
		sb.Assign("league_id", race.LeagueID),
		sb.Assign("organizer_id", race.OrganizerID),
		sb.Assign("same_as_id", race.SameAsID),
		sb.Assign("metadata", race.Metadata),
		sb.Assign("updated_at", race.UpdatedAt),
	)
	sb.Where(sb.Equal("id", race.ID))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update race")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update race")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return models.NewNotFound("race", race.ID)
	}
	return nil
}

// Associate links two races as day-1/day-2 of one event. Both rows change
// in a single transaction so a half-linked state never persists.
func (r *Repository) Associate(ctx context.Context, first, second *models.Race) error {
	ctx, span := tracing.StartSpan(ctx, "race.Repository.Associate")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	query := "UPDATE races SET associated_id = $1, updated_at = $2 WHERE id = $3"
	if _, err := tx.ExecContext(ctx, query, second.ID, now, first.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to link race to its counterpart")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to associate races")
	}
	if _, err := tx.ExecContext(ctx, query, first.ID, now, second.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to link counterpart race back")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to associate races")
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit association")
	}

	first.AssociatedID = &second.ID
	second.AssociatedID = &first.ID
	return nil
}

func kindColumn(kind models.CompetitionKind) string {
	if kind == models.KindTrophy {
		return "trophy_id"
	}
	return "flag_id"
}

func editionColumn(kind models.CompetitionKind) string {
	if kind == models.KindTrophy {
		return "trophy_edition"
	}
	return "flag_edition"
}

// nullableEqual builds an equality condition that matches NULL when the
// value is nil, so nullable key columns compare exactly.
func nullableEqual(sb *sqlbuilder.SelectBuilder, column string, value *string) string {
	if value == nil {
		return sb.IsNull(column)
	}
	return sb.Equal(column, *value)
}
