// Package entity persists canonical clubs, federations and private
// organizers.
package entity

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

const entityColumns = "id, name, normalized_name, known_names, type, symbol, is_partnership, parent_id, metadata, created_at, updated_at"

// Repository handles entity persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new entity repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves an entity by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.Get")
	defer span.End()

	query := fmt.Sprintf("SELECT %s FROM entities WHERE id = $1", entityColumns)
	var entity models.Entity
	if err := r.db.GetContext(ctx, &entity, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFound("entity", id)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get entity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get entity")
	}
	return &entity, nil
}

// SearchExact returns entities whose name, normalized name or any known
// name matches the query, case- and accent-insensitively.
func (r *Repository) SearchExact(ctx context.Context, name string, entityType *string) ([]models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.SearchExact")
	defer span.End()

	query := fmt.Sprintf(`
		SELECT %s FROM entities
		WHERE (
			unaccent(UPPER(name)) = unaccent(UPPER($1))
			OR unaccent(UPPER(normalized_name)) = unaccent(UPPER($1))
			OR EXISTS (
				SELECT 1 FROM unnest(known_names) AS kn
				WHERE unaccent(UPPER(kn)) = unaccent(UPPER($1))
			)
		)
		AND ($2::varchar IS NULL OR type = $2)
	`, entityColumns)

	var entities []models.Entity
	if err := r.db.SelectContext(ctx, &entities, query, name, entityType); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to search entities by exact name")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search entities")
	}
	return entities, nil
}

// SearchTokenOverlap returns entities whose names contain any of the words.
func (r *Repository) SearchTokenOverlap(ctx context.Context, words []string, entityType *string) ([]models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.SearchTokenOverlap")
	defer span.End()

	if len(words) == 0 {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(entityColumns)
	sb.From("entities")

	var overlaps []string
	for _, word := range words {
		pattern := "%" + strings.ToUpper(word) + "%"
		overlaps = append(overlaps,
			sb.ILike("name", pattern),
			sb.ILike("normalized_name", pattern),
			fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(known_names) AS kn WHERE kn ILIKE %s)", sb.Var(pattern)),
		)
	}
	where := []string{sb.Or(overlaps...)}
	if entityType != nil {
		where = append(where, sb.Equal("type", *entityType))
	}
	sb.Where(where...)

	query, args := sb.Build()
	var entities []models.Entity
	if err := r.db.SelectContext(ctx, &entities, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to search entities by token overlap")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search entities")
	}
	return entities, nil
}

// PartnershipTarget returns the partnership entity the club is an active
// part of, or nil when the club rows on its own. A club can be part of at
// most one active partnership.
func (r *Repository) PartnershipTarget(ctx context.Context, partID string) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.PartnershipTarget")
	defer span.End()

	query := fmt.Sprintf(`
		SELECT %s FROM entities
		WHERE id = (
			SELECT target_id FROM entity_partnerships
			WHERE part_id = $1 AND is_active
			LIMIT 1
		)
	`, entityColumns)

	var entity models.Entity
	if err := r.db.GetContext(ctx, &entity, query, partID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to look up partnership target")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to look up partnership")
	}
	return &entity, nil
}

// NameExists reports whether a fragment matches a known club name. Used by
// the sponsor-split heuristic.
func (r *Repository) NameExists(ctx context.Context, fragment string) bool {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.NameExists")
	defer span.End()

	query := `
		SELECT EXISTS (
			SELECT 1 FROM entities
			WHERE type = $2
			AND (
				name ILIKE '%' || $1 || '%'
				OR normalized_name ILIKE '%' || $1 || '%'
				OR EXISTS (SELECT 1 FROM unnest(known_names) AS kn WHERE kn ILIKE '%' || $1 || '%')
			)
		)
	`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, fragment, models.EntityClub); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to check club name existence")
		return false
	}
	return exists
}

// List returns entities of a type, paginated
func (r *Repository) List(ctx context.Context, entityType string, page, pageSize int) ([]models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(entityColumns)
	sb.From("entities")
	if entityType != "" {
		sb.Where(sb.Equal("type", entityType))
	}
	sb.OrderBy("name ASC")
	sb.Limit(pageSize).Offset((page - 1) * pageSize)

	query, args := sb.Build()
	var entities []models.Entity
	if err := r.db.SelectContext(ctx, &entities, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list entities")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list entities")
	}
	return entities, nil
}

// Create creates a new entity
func (r *Repository) Create(ctx context.Context, entity *models.Entity) error {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.Create")
	defer span.End()

	if entity.ID == "" {
		entity.ID = uuid.New().String()
	}
	entity.CreatedAt = time.Now().UTC()
	entity.UpdatedAt = entity.CreatedAt
	if entity.KnownNames == nil {
		entity.KnownNames = pq.StringArray{}
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("entities")
	sb.Cols("id", "name", "normalized_name", "known_names", "type", "symbol", "is_partnership", "parent_id", "metadata", "created_at", "updated_at")
	sb.Values(entity.ID, entity.Name, entity.NormalizedName, entity.KnownNames, entity.Type, entity.Symbol, entity.IsPartnership, entity.ParentID, entity.Metadata, entity.CreatedAt, entity.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"name": entity.Name}).Error("Failed to create entity")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create entity")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": entity.ID, "name": entity.Name}).Info("Created entity")
	return nil
}

// Update updates an existing entity
func (r *Repository) Update(ctx context.Context, entity *models.Entity) error {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.Update")
	defer span.End()

	entity.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("entities")
	sb.Set(
		sb.Assign("name", entity.Name),
		sb.Assign("normalized_name", entity.NormalizedName),
		sb.Assign("known_names", entity.KnownNames),
		sb.Assign("symbol", entity.Symbol),
		sb.Assign("is_partnership", entity.IsPartnership),
		sb.Assign("parent_id", entity.ParentID),
		sb.Assign("metadata", entity.Metadata),
		sb.Assign("updated_at", entity.UpdatedAt),
	)
	sb.Where(sb.Equal("id", entity.ID))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update entity")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update entity")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return models.NewNotFound("entity", entity.ID)
	}
	return nil
}
