// Package competition persists trophies and flags.
package competition

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
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

const competitionColumns = "id, kind, name, tokens, verified, qualifies_for_id, metadata, last_checked, created_at, updated_at"

// Repository handles competition persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new competition repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a competition by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Competition, error) {
	ctx, span := tracing.StartSpan(ctx, "competition.Repository.Get")
	defer span.End()

	query := fmt.Sprintf("SELECT %s FROM competitions WHERE id = $1", competitionColumns)
	var competition models.Competition
	if err := r.db.GetContext(ctx, &competition, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFound("competition", id)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get competition")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get competition")
	}
	return &competition, nil
}

// List returns the competitions of one kind
func (r *Repository) List(ctx context.Context, kind models.CompetitionKind) ([]models.Competition, error) {
	ctx, span := tracing.StartSpan(ctx, "competition.Repository.List")
	defer span.End()

	query := fmt.Sprintf("SELECT %s FROM competitions WHERE kind = $1 ORDER BY name ASC", competitionColumns)
	var competitions []models.Competition
	if err := r.db.SelectContext(ctx, &competitions, query, string(kind)); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list competitions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list competitions")
	}
	return competitions, nil
}

// FindByTokenSuperset returns competitions whose frozen token set contains
// every token of at least one of the sets.
func (r *Repository) FindByTokenSuperset(ctx context.Context, kind models.CompetitionKind, tokenSets [][]string) ([]models.Competition, error) {
	ctx, span := tracing.StartSpan(ctx, "competition.Repository.FindByTokenSuperset")
	defer span.End()

	if len(tokenSets) == 0 {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(competitionColumns)
	sb.From("competitions")

	var supersets []string
	for _, tokens := range tokenSets {
		if len(tokens) == 0 {
			continue
		}
		supersets = append(supersets, fmt.Sprintf("tokens @> %s", sb.Var(pq.StringArray(tokens))))
	}
	if len(supersets) == 0 {
		return nil, nil
	}
	sb.Where(
		sb.Equal("kind", string(kind)),
		sb.Or(supersets...),
	)

	query, args := sb.Build()
	var competitions []models.Competition
	if err := r.db.SelectContext(ctx, &competitions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to search competitions by tokens")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search competitions")
	}
	return competitions, nil
}

// FindByNameContains returns competitions whose name contains every word,
// case-insensitively.
func (r *Repository) FindByNameContains(ctx context.Context, kind models.CompetitionKind, words []string) ([]models.Competition, error) {
	ctx, span := tracing.StartSpan(ctx, "competition.Repository.FindByNameContains")
	defer span.End()

	if len(words) == 0 {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(competitionColumns)
	sb.From("competitions")

	where := []string{sb.Equal("kind", string(kind))}
	for _, word := range words {
		where = append(where, sb.ILike("name", "%"+strings.ToUpper(word)+"%"))
	}
	sb.Where(where...)

	query, args := sb.Build()
	var competitions []models.Competition
	if err := r.db.SelectContext(ctx, &competitions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to search competitions by name")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search competitions")
	}
	return competitions, nil
}

// Create creates a new competition
func (r *Repository) Create(ctx context.Context, competition *models.Competition) error {
	ctx, span := tracing.StartSpan(ctx, "competition.Repository.Create")
	defer span.End()

	if competition.ID == "" {
		competition.ID = uuid.New().String()
	}
	competition.CreatedAt = time.Now().UTC()
	competition.UpdatedAt = competition.CreatedAt
	if competition.Tokens == nil {
		competition.Tokens = pq.StringArray{}
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("competitions")
	sb.Cols("id", "kind", "name", "tokens", "verified", "qualifies_for_id", "metadata", "last_checked", "created_at", "updated_at")
	sb.Values(competition.ID, string(competition.Kind), competition.Name, competition.Tokens, competition.Verified, competition.QualifiesForID, competition.Metadata, competition.LastChecked, competition.CreatedAt, competition.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"name": competition.Name}).Error("Failed to create competition")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create competition")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": competition.ID, "kind": competition.Kind, "name": competition.Name}).Info("Created competition")
	return nil
}

// Update updates an existing competition
func (r *Repository) Update(ctx context.Context, competition *models.Competition) error {
	ctx, span := tracing.StartSpan(ctx, "competition.Repository.Update")
	defer span.End()

	competition.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("competitions")
	sb.Set(
		sb.Assign("name", competition.Name),
		sb.Assign("verified", competition.Verified),
		sb.Assign("qualifies_for_id", competition.QualifiesForID),
		sb.Assign("metadata", competition.Metadata),
		sb.Assign("last_checked", competition.LastChecked),
		sb.Assign("updated_at", competition.UpdatedAt),
	)
	sb.Where(sb.Equal("id", competition.ID))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update competition")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update competition")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return models.NewNotFound("competition", competition.ID)
	}
	return nil
}
