package audit

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowstack/regatta/pkg/models"
)

type fakeCompetitionStore struct {
	competitions []models.Competition
}

func (f *fakeCompetitionStore) List(_ context.Context, kind models.CompetitionKind) ([]models.Competition, error) {
	var out []models.Competition
	for _, c := range f.competitions {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeRaceStore struct {
	races map[string][]models.Race
}

func (f *fakeRaceStore) ListByCompetition(_ context.Context, _ models.CompetitionKind, competitionID string) ([]models.Race, error) {
	return f.races[competitionID], nil
}

func editionRace(edition, day int, leagueID *string) models.Race {
	e := edition
	flagID := "flag-1"
	return models.Race{FlagID: &flagID, FlagEdition: &e, Day: day, LeagueID: leagueID}
}

func newChecker(races ...models.Race) *Checker {
	competitions := &fakeCompetitionStore{competitions: []models.Competition{
		{ID: "flag-1", Kind: models.KindFlag, Name: "BANDERA PETRONOR"},
	}}
	store := &fakeRaceStore{races: map[string][]models.Race{"flag-1": races}}
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewChecker(competitions, store, logger)
}

func TestFindMissingEditions(t *testing.T) {
	league := "league-1"

	t.Run("consecutive editions pass", func(t *testing.T) {
		checker := newChecker(
			editionRace(1, 1, &league),
			editionRace(2, 1, &league),
			editionRace(3, 1, &league),
		)
		gaps, err := checker.FindMissingEditions(context.Background(), models.KindFlag)
		require.NoError(t, err)
		assert.Empty(t, gaps)
	})

	t.Run("a skipped edition is reported", func(t *testing.T) {
		checker := newChecker(
			editionRace(1, 1, &league),
			editionRace(3, 1, &league),
		)
		gaps, err := checker.FindMissingEditions(context.Background(), models.KindFlag)
		require.NoError(t, err)
		require.Len(t, gaps, 1)
		assert.Equal(t, 1, gaps[0].FromEdition)
		assert.Equal(t, 3, gaps[0].ToEdition)
		require.NotNil(t, gaps[0].LeagueID)
		assert.Equal(t, "league-1", *gaps[0].LeagueID)
	})

	t.Run("two-day single edition passes", func(t *testing.T) {
		checker := newChecker(
			editionRace(5, 1, &league),
			editionRace(5, 2, &league),
		)
		gaps, err := checker.FindMissingEditions(context.Background(), models.KindFlag)
		require.NoError(t, err)
		assert.Empty(t, gaps)
	})

	t.Run("repeated edition without day pairing is reported", func(t *testing.T) {
		checker := newChecker(
			editionRace(5, 1, &league),
			editionRace(5, 1, &league),
		)
		gaps, err := checker.FindMissingEditions(context.Background(), models.KindFlag)
		require.NoError(t, err)
		assert.Len(t, gaps, 1)
	})

	t.Run("leagues are audited independently", func(t *testing.T) {
		other := "league-2"
		checker := newChecker(
			editionRace(1, 1, &league),
			editionRace(2, 1, &league),
			editionRace(7, 1, &other),
			editionRace(8, 1, &other),
		)
		gaps, err := checker.FindMissingEditions(context.Background(), models.KindFlag)
		require.NoError(t, err)
		assert.Empty(t, gaps)
	})

	t.Run("duplicates marked same-as are skipped", func(t *testing.T) {
		duplicate := editionRace(2, 1, &league)
		sameAs := "race-1"
		duplicate.SameAsID = &sameAs
		checker := newChecker(
			editionRace(1, 1, &league),
			duplicate,
			editionRace(2, 1, &league),
			editionRace(3, 1, &league),
		)
		gaps, err := checker.FindMissingEditions(context.Background(), models.KindFlag)
		require.NoError(t, err)
		assert.Empty(t, gaps)
	})
}
