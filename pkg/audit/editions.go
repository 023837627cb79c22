// Package audit contains read-only consistency checks over the canonical
// store. Nothing here writes.
package audit

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/rowstack/regatta/internal/tracing"
	"github.com/rowstack/regatta/pkg/models"
)

// CompetitionStore lists the competitions of one kind.
type CompetitionStore interface {
	List(ctx context.Context, kind models.CompetitionKind) ([]models.Competition, error)
}

// RaceStore lists a competition's races.
type RaceStore interface {
	ListByCompetition(ctx context.Context, kind models.CompetitionKind, competitionID string) ([]models.Race, error)
}

// Gap is a hole or inconsistency in a competition's edition sequence within
// one league.
type Gap struct {
	Competition models.Competition `json:"competition"`
	LeagueID    *string            `json:"league_id,omitempty"`
	FromEdition int                `json:"from_edition"`
	ToEdition   int                `json:"to_edition"`
}

// Checker walks edition sequences looking for missing editions.
type Checker struct {
	competitions CompetitionStore
	races        RaceStore
	logger       ectologger.Logger
}

// NewChecker builds an edition-continuity checker.
func NewChecker(competitions CompetitionStore, races RaceStore, logger ectologger.Logger) *Checker {
	return &Checker{competitions: competitions, races: races, logger: logger}
}

// FindMissingEditions audits every competition of the kind. Within one
// league, adjacent editions must increase by exactly 1, or stay equal only
// when the day increases by exactly 1 (a two-day single-edition event).
func (c *Checker) FindMissingEditions(ctx context.Context, kind models.CompetitionKind) ([]Gap, error) {
	ctx, span := tracing.StartSpan(ctx, "audit.Checker.FindMissingEditions")
	defer span.End()

	competitions, err := c.competitions.List(ctx, kind)
	if err != nil {
		return nil, err
	}

	var gaps []Gap
	for _, competition := range competitions {
		races, err := c.races.ListByCompetition(ctx, kind, competition.ID)
		if err != nil {
			return nil, err
		}
		found := c.checkCompetition(competition, kind, races)
		gaps = append(gaps, found...)
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"kind":         kind,
		"competitions": len(competitions),
		"gaps":         len(gaps),
	}).Info("Edition continuity audit finished")
	return gaps, nil
}

func (c *Checker) checkCompetition(competition models.Competition, kind models.CompetitionKind, races []models.Race) []Gap {
	byLeague := make(map[string][]models.Race)
	var leagues []string
	for _, race := range races {
		if race.Edition(kind) == nil || race.SameAsID != nil {
			continue
		}
		key := ""
		if race.LeagueID != nil {
			key = *race.LeagueID
		}
		if _, ok := byLeague[key]; !ok {
			leagues = append(leagues, key)
		}
		byLeague[key] = append(byLeague[key], race)
	}
	sort.Strings(leagues)

	var gaps []Gap
	for _, league := range leagues {
		group := byLeague[league]
		sort.Slice(group, func(i, j int) bool {
			a, b := *group[i].Edition(kind), *group[j].Edition(kind)
			if a != b {
				return a < b
			}
			return group[i].Day < group[j].Day
		})

		for i := 1; i < len(group); i++ {
			previous, current := group[i-1], group[i]
			delta := *current.Edition(kind) - *previous.Edition(kind)
			if delta == 1 {
				continue
			}
			if delta == 0 && current.Day-previous.Day == 1 {
				continue
			}
			gap := Gap{
				Competition: competition,
				FromEdition: *previous.Edition(kind),
				ToEdition:   *current.Edition(kind),
			}
			if league != "" {
				leagueID := league
				gap.LeagueID = &leagueID
			}
			gaps = append(gaps, gap)
		}
	}
	return gaps
}
