// Package entity resolves raw club and organizer labels to canonical Entity
// records.
package entity

import (
	"context"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/rowstack/regatta/internal/tracing"
	"github.com/rowstack/regatta/pkg/matching"
	"github.com/rowstack/regatta/pkg/models"
	"github.com/rowstack/regatta/pkg/normalizers"
)

// Store is the read surface the resolver needs. Exact searches compare
// case- and accent-insensitively against name, normalized_name and
// known_names.
type Store interface {
	// SearchExact returns entities whose name, normalized name or any known
	// name equals the query, optionally filtered by entity type.
	SearchExact(ctx context.Context, name string, entityType *string) ([]models.Entity, error)
	// SearchTokenOverlap returns entities whose normalized name or known
	// names contain any of the query words.
	SearchTokenOverlap(ctx context.Context, words []string, entityType *string) ([]models.Entity, error)
	// PartnershipTarget returns the partnership entity a club currently rows
	// under, or nil when the club rows on its own.
	PartnershipTarget(ctx context.Context, partID string) (*models.Entity, error)
}

// Thresholds tuned against historical data; see the resolve gate below.
const (
	minSimilarity            = 0.4
	maxNormalizedLevenshtein = 0.4
)

// Resolver finds the canonical Entity for a raw label.
type Resolver struct {
	store  Store
	scorer *matching.Scorer
	logger ectologger.Logger
}

// NewResolver creates an entity resolver.
func NewResolver(store Store, logger ectologger.Logger) *Resolver {
	return &Resolver{
		store:  store,
		scorer: matching.NewScorer(),
		logger: logger,
	}
}

// ResolveClub resolves a club label to its Entity. A club rowing under an
// active partnership resolves to the partnership entity.
func (r *Resolver) ResolveClub(ctx context.Context, name string) (*models.Entity, error) {
	clubType := models.EntityClub
	entity, err := r.resolve(ctx, name, &clubType)
	if err != nil {
		return nil, err
	}

	target, err := r.store.PartnershipTarget(ctx, entity.ID)
	if err != nil {
		return nil, err
	}
	if target != nil {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"club":        entity.Name,
			"partnership": target.Name,
		}).Debug("Club resolved to its active partnership")
		return target, nil
	}
	return entity, nil
}

// ResolveOrganizer resolves an organizer label without restricting the
// entity type: organizers can be clubs, federations or private entities.
func (r *Resolver) ResolveOrganizer(ctx context.Context, name string) (*models.Entity, error) {
	return r.resolve(ctx, name, nil)
}

// resolve runs the two-stage lookup: exact short-circuit first, then a
// token-overlap prefilter followed by fuzzy selection under a double gate.
// The gate (similarity > 0.4 AND (similarity == 1.0 OR normalized
// Levenshtein < 0.4)) avoids accepting merely-plausible short names.
func (r *Resolver) resolve(ctx context.Context, name string, entityType *string) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "entity.Resolver.resolve")
	defer span.End()

	if strings.TrimSpace(name) == "" {
		return nil, models.NewValidationError("name", "empty entity name")
	}

	name = normalizers.WhitespacesClean(normalizers.Uppercase(name))
	name = normalizers.TrimBranch(name)

	log := r.logger.WithContext(ctx).WithFields(map[string]any{"name": name})

	exact, err := r.store.SearchExact(ctx, name, entityType)
	if err != nil {
		return nil, err
	}
	switch len(exact) {
	case 1:
		return &exact[0], nil
	case 0:
		// fall through to fuzzy search
	default:
		names := make([]string, len(exact))
		for i, e := range exact {
			names[i] = e.Name
		}
		return nil, models.NewAmbiguousMatch("entity", name, names)
	}

	words := strings.Fields(normalizers.RemoveConjunctions(normalizers.RemoveSymbols(name)))
	candidates, err := r.store.SearchTokenOverlap(ctx, words, entityType)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, models.NewNotFound("entity", name)
	}

	var candidateNames []string
	for _, candidate := range candidates {
		candidateNames = append(candidateNames, candidate.SearchNames()...)
	}

	closest, similarity := matching.ClosestMatch(name, candidateNames)
	log = log.WithFields(map[string]any{"closest": closest, "similarity": similarity})

	if similarity > minSimilarity {
		if similarity == 1.0 || r.scorer.AcceptByLevenshtein(name, closest, maxNormalizedLevenshtein) {
			log.Debug("Accepted fuzzy entity match")
			return findBySearchName(candidates, closest), nil
		}
	}

	log.Debug("No entity candidate cleared the accept gate")
	return nil, models.NewNotFound("entity", name)
}

func findBySearchName(candidates []models.Entity, name string) *models.Entity {
	for i, candidate := range candidates {
		for _, known := range candidate.SearchNames() {
			if known == name {
				return &candidates[i]
			}
		}
	}
	return nil
}
