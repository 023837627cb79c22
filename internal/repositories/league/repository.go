// Package league persists competition leagues.
package league

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

	"github.com/rowstack/regatta/internal/database"
	"github.com/rowstack/regatta/internal/tracing"
	"github.com/rowstack/regatta/pkg/models"
)

const leagueColumns = "id, name, symbol, gender, parent_id, created_at, updated_at"

// Repository handles league persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new league repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetByName matches a league by name or symbol, case-insensitively.
func (r *Repository) GetByName(ctx context.Context, name string) (*models.League, error) {
	ctx, span := tracing.StartSpan(ctx, "league.Repository.GetByName")
	defer span.End()

	query := fmt.Sprintf(`
		SELECT %s FROM leagues
		WHERE unaccent(UPPER(name)) = unaccent(UPPER($1)) OR UPPER(symbol) = UPPER($1)
	`, leagueColumns)

	var league models.League
	if err := r.db.GetContext(ctx, &league, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFound("league", name)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get league by name")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get league")
	}
	return &league, nil
}

// List returns every league
func (r *Repository) List(ctx context.Context) ([]models.League, error) {
	ctx, span := tracing.StartSpan(ctx, "league.Repository.List")
	defer span.End()

	query := fmt.Sprintf("SELECT %s FROM leagues ORDER BY name ASC", leagueColumns)
	var leagues []models.League
	if err := r.db.SelectContext(ctx, &leagues, query); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list leagues")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list leagues")
	}
	return leagues, nil
}

// Create creates a new league
func (r *Repository) Create(ctx context.Context, league *models.League) error {
	ctx, span := tracing.StartSpan(ctx, "league.Repository.Create")
	defer span.End()

	if league.ID == "" {
		league.ID = uuid.New().String()
	}
	league.CreatedAt = time.Now().UTC()
	league.UpdatedAt = league.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("leagues")
	sb.Cols("id", "name", "symbol", "gender", "parent_id", "created_at", "updated_at")
	sb.Values(league.ID, league.Name, league.Symbol, league.Gender, league.ParentID, league.CreatedAt, league.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"name": league.Name}).Error("Failed to create league")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create league")
	}
	return nil
}
