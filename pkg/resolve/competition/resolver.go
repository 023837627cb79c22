// Package competition resolves scraped race names to canonical Trophy and
// Flag competitions and infers missing edition numbers.
package competition

import (
	"context"
	"errors"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/lib/pq"

	"github.com/rowstack/regatta/internal/tracing"
	"github.com/rowstack/regatta/pkg/matching"
	"github.com/rowstack/regatta/pkg/models"
	"github.com/rowstack/regatta/pkg/normalizers"
)

// Store is the competition read/write surface the resolver needs.
type Store interface {
	// FindByTokenSuperset returns competitions of the given kind whose
	// frozen token set contains every token of at least one of the sets.
	FindByTokenSuperset(ctx context.Context, kind models.CompetitionKind, tokenSets [][]string) ([]models.Competition, error)
	// FindByNameContains returns competitions of the given kind whose name
	// contains every one of the words, case-insensitively.
	FindByNameContains(ctx context.Context, kind models.CompetitionKind, words []string) ([]models.Competition, error)
	// Create persists a new competition.
	Create(ctx context.Context, competition *models.Competition) error
}

// RaceStore gives the resolver access to historical races for edition
// inference.
type RaceStore interface {
	// FindEditionCandidates returns day-one races of the given year, gender
	// and category that either belong to the competition or have no
	// competition of that kind at all.
	FindEditionCandidates(ctx context.Context, kind models.CompetitionKind, competitionID string, gender, category string, year int) ([]models.Race, error)
}

// minNameSimilarity is the floor for the name-based fallback search.
const minNameSimilarity = 0.85

// Resolver matches raw competition names against the canonical catalog.
type Resolver struct {
	store  Store
	races  RaceStore
	logger ectologger.Logger
}

// NewResolver creates a competition resolver.
func NewResolver(store Store, races RaceStore, logger ectologger.Logger) *Resolver {
	return &Resolver{store: store, races: races, logger: logger}
}

// Resolve finds the competition of the given kind matching the raw name.
// It tries the token search first and falls back to a fuzzy name search.
func (r *Resolver) Resolve(ctx context.Context, kind models.CompetitionKind, name string) (*models.Competition, error) {
	ctx, span := tracing.StartSpan(ctx, "competition.Resolver.Resolve")
	defer span.End()

	if strings.TrimSpace(name) == "" {
		return nil, models.NewValidationError("name", "empty competition name")
	}

	found, err := r.searchByTokens(ctx, kind, name)
	if err != nil {
		return nil, err
	}
	if found != nil {
		return found, nil
	}
	return r.searchByName(ctx, kind, name)
}

// ResolveFromNames resolves the first name that matches a competition of the
// kind. Memorial names are only considered when no other name is available:
// memorials honor a person and rarely identify the competition itself.
func (r *Resolver) ResolveFromNames(ctx context.Context, kind models.CompetitionKind, names []string) (*models.Competition, error) {
	var lastErr error
	for _, name := range names {
		if normalizers.IsMemorial(name) && len(names) > 1 {
			continue
		}
		found, err := r.Resolve(ctx, kind, name)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return found, nil
	}
	if lastErr == nil {
		lastErr = models.NewNotFound(string(kind), strings.Join(names, " / "))
	}
	return nil, lastErr
}

// ResolveOrCreate resolves the name, creating an unverified competition with
// frozen tokens when nothing matches.
func (r *Resolver) ResolveOrCreate(ctx context.Context, kind models.CompetitionKind, name string) (*models.Competition, error) {
	found, err := r.Resolve(ctx, kind, name)
	if err == nil {
		return found, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	competition := &models.Competition{
		Kind:   kind,
		Name:   normalizers.WhitespacesClean(normalizers.Uppercase(name)),
		Tokens: pq.StringArray(normalizers.Lemmatize(name)),
	}
	if err := r.store.Create(ctx, competition); err != nil {
		return nil, err
	}
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"kind": kind,
		"name": competition.Name,
	}).Info("Created competition")
	return competition, nil
}

// searchByTokens runs the four-step token narrowing. Each step either
// resolves to a single competition or hands a smaller candidate set to the
// next one. Returns nil without error when no step settles on one match.
func (r *Resolver) searchByTokens(ctx context.Context, kind models.CompetitionKind, name string) (*models.Competition, error) {
	ctx, span := tracing.StartSpan(ctx, "competition.Resolver.searchByTokens")
	defer span.End()

	tokens := normalizers.Lemmatize(normalizers.RemoveParenthesisKeepContent(name))
	if len(tokens) == 0 {
		return nil, nil
	}

	log := r.logger.WithContext(ctx).WithFields(map[string]any{"kind": kind, "tokens": tokens})

	items, err := r.store.FindByTokenSuperset(ctx, kind, [][]string{tokens})
	if err != nil {
		return nil, err
	}
	if len(items) == 1 {
		return &items[0], nil
	}

	expanded := normalizers.ExpandLemmas(tokens, normalizers.TokenExpansions)
	items, err = r.store.FindByTokenSuperset(ctx, kind, expanded)
	if err != nil {
		return nil, err
	}
	switch len(items) {
	case 0:
		return nil, nil
	case 1:
		return &items[0], nil
	}

	// Several candidates. Council-backed competitions take precedence over
	// namesakes sponsored by someone else.
	improved := filterCompetitions(items, func(c models.Competition) bool {
		return c.HasToken("ayuntamiento")
	})
	if len(improved) == 1 {
		return &improved[0], nil
	}

	// Last narrowing: keep candidates fully covered by some expansion of the
	// query, dropping catalog entries that carry extra distinguishing tokens.
	improved = filterCompetitions(items, func(c models.Competition) bool {
		for _, variant := range expanded {
			if c.TokensContainedBy(variant) {
				return true
			}
		}
		return false
	})
	if len(improved) == 1 {
		return &improved[0], nil
	}

	log.WithFields(map[string]any{"candidates": len(items)}).Debug("Token search did not settle on one competition")
	return nil, nil
}

// searchByName compares the synonym-normalized query against every catalog
// name containing all of its words and accepts the closest above 0.85.
func (r *Resolver) searchByName(ctx context.Context, kind models.CompetitionKind, name string) (*models.Competition, error) {
	ctx, span := tracing.StartSpan(ctx, "competition.Resolver.searchByName")
	defer span.End()

	name = normalizers.WhitespacesClean(normalizers.Uppercase(name))
	words := strings.Fields(name)

	items, err := r.store.FindByNameContains(ctx, kind, words)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, models.NewNotFound(string(kind), name)
	}

	query := normalizers.NormalizeCompetitionName(name)
	normalized := make([]string, len(items))
	for i, item := range items {
		normalized[i] = normalizers.NormalizeCompetitionName(item.Name)
	}

	closest, similarity := matching.ClosestMatch(query, normalized)
	if similarity < minNameSimilarity {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"kind":       kind,
			"name":       name,
			"closest":    closest,
			"similarity": similarity,
		}).Debug("Best name match below threshold")
		return nil, models.NewNotFound(string(kind), name)
	}

	for i, candidate := range normalized {
		if candidate == closest {
			return &items[i], nil
		}
	}
	return nil, models.NewNotFound(string(kind), name)
}

// InferEdition derives the edition for a day-one race of the competition in
// the given year by looking at adjacent years: an edition found in the
// previous year means this year is one later, one found in the next year
// means one earlier.
func (r *Resolver) InferEdition(ctx context.Context, competition *models.Competition, gender, category string, year int) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "competition.Resolver.InferEdition")
	defer span.End()

	if edition, err := r.editionInYear(ctx, competition, gender, category, year); err != nil || edition > 0 {
		return edition, err
	}
	if edition, err := r.editionInYear(ctx, competition, gender, category, year-1); err != nil {
		return 0, err
	} else if edition > 0 {
		return edition + 1, nil
	}
	if edition, err := r.editionInYear(ctx, competition, gender, category, year+1); err != nil {
		return 0, err
	} else if edition > 1 {
		return edition - 1, nil
	}
	return 0, models.NewNotFound("edition", competition.Name)
}

// editionInYear returns the edition shared by the competition's day-one
// races of a year, or 0 when there is none or they disagree.
func (r *Resolver) editionInYear(ctx context.Context, competition *models.Competition, gender, category string, year int) (int, error) {
	races, err := r.races.FindEditionCandidates(ctx, competition.Kind, competition.ID, gender, category, year)
	if err != nil {
		return 0, err
	}

	edition := 0
	for _, race := range races {
		value := race.Edition(competition.Kind)
		if value == nil {
			continue
		}
		if edition != 0 && edition != *value {
			return 0, nil
		}
		edition = *value
	}
	return edition, nil
}

func filterCompetitions(items []models.Competition, keep func(models.Competition) bool) []models.Competition {
	var out []models.Competition
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
