// Package penalty persists participant sanctions.
package penalty

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

const penaltyColumns = "id, participant_id, amount, disqualification, reason, notes, created_at"

// Repository handles penalty persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new penalty repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// FindByParticipant returns the penalties already recorded for a participant
func (r *Repository) FindByParticipant(ctx context.Context, participantID string) ([]models.Penalty, error) {
	ctx, span := tracing.StartSpan(ctx, "penalty.Repository.FindByParticipant")
	defer span.End()

	query := fmt.Sprintf("SELECT %s FROM penalties WHERE participant_id = $1 ORDER BY created_at ASC", penaltyColumns)
	var penalties []models.Penalty
	if err := r.db.SelectContext(ctx, &penalties, query, participantID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to find penalties")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find penalties")
	}
	return penalties, nil
}

// Create creates a new penalty
func (r *Repository) Create(ctx context.Context, penalty *models.Penalty) error {
	ctx, span := tracing.StartSpan(ctx, "penalty.Repository.Create")
	defer span.End()

	if penalty.ID == "" {
		penalty.ID = uuid.New().String()
	}
	penalty.CreatedAt = time.Now().UTC()
	if penalty.Notes == nil {
		penalty.Notes = pq.StringArray{}
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("penalties")
	sb.Cols("id", "participant_id", "amount", "disqualification", "reason", "notes", "created_at")
	sb.Values(penalty.ID, penalty.ParticipantID, penalty.Amount, penalty.Disqualification, penalty.Reason, penalty.Notes, penalty.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"participant_id": penalty.ParticipantID}).Error("Failed to create penalty")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create penalty")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": penalty.ID, "participant_id": penalty.ParticipantID}).Info("Created penalty")
	return nil
}

// Update updates an existing penalty
func (r *Repository) Update(ctx context.Context, penalty *models.Penalty) error {
	ctx, span := tracing.StartSpan(ctx, "penalty.Repository.Update")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("penalties")
	sb.Set(
		sb.Assign("amount", penalty.Amount),
		sb.Assign("disqualification", penalty.Disqualification),
		sb.Assign("reason", penalty.Reason),
		sb.Assign("notes", penalty.Notes),
	)
	sb.Where(sb.Equal("id", penalty.ID))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update penalty")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update penalty")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return models.NewNotFound("penalty", penalty.ID)
	}
	return nil
}
