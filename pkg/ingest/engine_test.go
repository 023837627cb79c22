package ingest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowstack/regatta/pkg/decision"
	"github.com/rowstack/regatta/pkg/models"
	"github.com/rowstack/regatta/pkg/normalizers"
)

type raceStore struct {
	byRef          map[string]*models.Race
	byNames        []models.Race
	byComp         *models.Race
	associated     *models.Race
	siblings       []models.Race
	created        []*models.Race
	updated        []*models.Race
	failCreates    int
	associateCalls int
}

func (f *raceStore) GetByRef(_ context.Context, datasource, refID string) (*models.Race, error) {
	if race, ok := f.byRef[datasource+"|"+refID]; ok {
		return race, nil
	}
	return nil, models.NewNotFound("race", refID)
}

func (f *raceStore) SearchByNames(_ context.Context, _ []string, _ *string, _ string, _ time.Time, _ int) ([]models.Race, error) {
	return f.byNames, nil
}

func (f *raceStore) GetByCompetitions(_ context.Context, _, _, _ *string, _ time.Time) (*models.Race, error) {
	if f.byComp == nil {
		return nil, models.NewNotFound("race", "by competitions")
	}
	return f.byComp, nil
}

func (f *raceStore) GetAssociated(_ context.Context, _ *models.Race) (*models.Race, error) {
	if f.associated == nil {
		return nil, models.NewNotFound("race", "associated")
	}
	return f.associated, nil
}

func (f *raceStore) FindSiblings(_ context.Context, _ models.CompetitionKind, _ string) ([]models.Race, error) {
	return f.siblings, nil
}

func (f *raceStore) Create(_ context.Context, race *models.Race) error {
	if f.failCreates > 0 {
		f.failCreates--
		return &pq.Error{Code: "23505"}
	}
	race.ID = fmt.Sprintf("race-%d", len(f.created)+1)
	f.created = append(f.created, race)
	return nil
}

func (f *raceStore) Update(_ context.Context, race *models.Race) error {
	f.updated = append(f.updated, race)
	return nil
}

func (f *raceStore) Associate(_ context.Context, first, second *models.Race) error {
	first.AssociatedID = &second.ID
	second.AssociatedID = &first.ID
	f.associateCalls++
	return nil
}

type leagueStore struct {
	leagues map[string]*models.League
}

func (f *leagueStore) GetByName(_ context.Context, name string) (*models.League, error) {
	if league, ok := f.leagues[strings.ToUpper(name)]; ok {
		return league, nil
	}
	return nil, models.NewNotFound("league", name)
}

type participantStore struct {
	existing []models.Participant
	created  []*models.Participant
	updated  []*models.Participant
}

func (f *participantStore) FindByRaceAndClub(_ context.Context, raceID, clubID, gender, category string) ([]models.Participant, error) {
	var out []models.Participant
	for _, p := range f.existing {
		if p.RaceID == raceID && p.ClubID == clubID && p.Gender == gender && p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *participantStore) Create(_ context.Context, participant *models.Participant) error {
	participant.ID = fmt.Sprintf("participant-%d", len(f.created)+1)
	f.created = append(f.created, participant)
	return nil
}

func (f *participantStore) Update(_ context.Context, participant *models.Participant) error {
	f.updated = append(f.updated, participant)
	return nil
}

type penaltyStore struct {
	existing []models.Penalty
	created  []*models.Penalty
	updated  []*models.Penalty
}

func (f *penaltyStore) FindByParticipant(_ context.Context, participantID string) ([]models.Penalty, error) {
	var out []models.Penalty
	for _, p := range f.existing {
		if p.ParticipantID == participantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *penaltyStore) Create(_ context.Context, penalty *models.Penalty) error {
	f.created = append(f.created, penalty)
	return nil
}

func (f *penaltyStore) Update(_ context.Context, penalty *models.Penalty) error {
	f.updated = append(f.updated, penalty)
	return nil
}

type clubResolver struct {
	clubs map[string]*models.Entity
}

func (f *clubResolver) ResolveClub(_ context.Context, name string) (*models.Entity, error) {
	if club, ok := f.clubs[normalizers.TrimBranch(strings.ToUpper(name))]; ok {
		return club, nil
	}
	return nil, models.NewNotFound("entity", name)
}

func (f *clubResolver) ResolveOrganizer(ctx context.Context, name string) (*models.Entity, error) {
	return f.ResolveClub(ctx, name)
}

type compResolver struct {
	competitions map[string]*models.Competition
	edition      int
}

func (f *compResolver) Resolve(_ context.Context, kind models.CompetitionKind, name string) (*models.Competition, error) {
	if competition, ok := f.competitions[string(kind)+"|"+strings.ToUpper(name)]; ok {
		return competition, nil
	}
	return nil, models.NewNotFound(string(kind), name)
}

func (f *compResolver) InferEdition(_ context.Context, competition *models.Competition, _, _ string, _ int) (int, error) {
	if f.edition == 0 {
		return 0, models.NewNotFound("edition", competition.Name)
	}
	return f.edition, nil
}

// scriptedChannel answers every confirmation with one fixed value and every
// text prompt with one fixed string.
type scriptedChannel struct {
	confirm bool
	text    string
}

func (c scriptedChannel) Confirm(string) bool { return c.confirm }

func (c scriptedChannel) Text(string) (string, bool) { return c.text, c.text != "" }

func (c scriptedChannel) Choose(_ string, options []string) (string, bool) {
	if !c.confirm || len(options) == 0 {
		return "", false
	}
	return options[0], true
}

type engineFixture struct {
	engine       *Engine
	races        *raceStore
	leagues      *leagueStore
	participants *participantStore
	penalties    *penaltyStore
	clubs        *clubResolver
	competitions *compResolver
}

func newFixture(channel decision.Channel) *engineFixture {
	f := &engineFixture{
		races:        &raceStore{byRef: map[string]*models.Race{}},
		leagues:      &leagueStore{leagues: map[string]*models.League{}},
		participants: &participantStore{},
		penalties:    &penaltyStore{},
		clubs:        &clubResolver{clubs: map[string]*models.Entity{}},
		competitions: &compResolver{competitions: map[string]*models.Competition{}},
	}
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	f.engine = NewEngine(f.races, f.leagues, f.participants, f.penalties, f.clubs, f.competitions, channel, logger)
	return f
}

func (f *engineFixture) addFlag(name string) *models.Competition {
	competition := &models.Competition{ID: "flag-" + name, Kind: models.KindFlag, Name: strings.ToUpper(name)}
	f.competitions.competitions["FLAG|"+strings.ToUpper(name)] = competition
	return competition
}

func scrapedRace(name string, edition *int) models.ScrapedRace {
	return models.ScrapedRace{
		Names:      []models.ScrapedName{{Name: name, Edition: edition}},
		Date:       "01/07/2023",
		Day:        1,
		Type:       models.RaceConventional,
		Modality:   models.ModalityTrainera,
		Gender:     models.GenderMale,
		Category:   models.CategoryAbsolut,
		URL:        "https://example.com/races/1",
		Datasource: "arc",
		RaceIDs:    []string{"r1"},
	}
}

func TestResolveNewRace(t *testing.T) {
	f := newFixture(decision.AcceptAll())
	f.addFlag("BANDERA PETRONOR")

	race, associated, status, err := f.engine.Resolve(context.Background(), scrapedRace("Bandera Petronor", intPtr(28)))
	require.NoError(t, err)
	assert.Equal(t, StatusNew, status)
	assert.Nil(t, associated)
	require.NotNil(t, race.FlagID)
	assert.Equal(t, 28, *race.FlagEdition)
	assert.Nil(t, race.TrophyID)
	require.Len(t, race.Metadata.Datasource, 1)
	assert.Equal(t, "arc", race.Metadata.Datasource[0].DatasourceName)
	assert.Equal(t, "r1", race.Metadata.Datasource[0].RefID)
}

func TestResolveExistingRef(t *testing.T) {
	// RejectAll proves no prompt is involved in the short-circuit.
	f := newFixture(decision.RejectAll())
	stored := &models.Race{ID: "race-1"}
	f.races.byRef["arc|r1"] = stored

	race, _, status, err := f.engine.Resolve(context.Background(), scrapedRace("Bandera Petronor", nil))
	require.NoError(t, err)
	assert.Equal(t, StatusExisting, status)
	assert.Equal(t, stored, race)
}

func TestResolveNoCompetition(t *testing.T) {
	f := newFixture(decision.AcceptAll())

	_, _, _, err := f.engine.Resolve(context.Background(), scrapedRace("Bandera Desconocida", nil))
	assert.ErrorIs(t, err, models.ErrStopProcessing)
}

func TestResolveMissingURL(t *testing.T) {
	f := newFixture(decision.AcceptAll())
	scraped := scrapedRace("Bandera Petronor", intPtr(28))
	scraped.URL = ""

	_, _, _, err := f.engine.Resolve(context.Background(), scraped)
	assert.ErrorIs(t, err, models.ErrStopProcessing)
}

func TestResolveEditionFallbacks(t *testing.T) {
	t.Run("inferred from adjacent years", func(t *testing.T) {
		f := newFixture(decision.AcceptAll())
		f.addFlag("BANDERA PETRONOR")
		f.competitions.edition = 28

		race, _, status, err := f.engine.Resolve(context.Background(), scrapedRace("Bandera Petronor", nil))
		require.NoError(t, err)
		assert.Equal(t, StatusNew, status)
		assert.Equal(t, 28, *race.FlagEdition)
	})

	t.Run("asked through the decision channel", func(t *testing.T) {
		f := newFixture(scriptedChannel{confirm: true, text: "31"})
		f.addFlag("BANDERA PETRONOR")

		race, _, _, err := f.engine.Resolve(context.Background(), scrapedRace("Bandera Petronor", nil))
		require.NoError(t, err)
		assert.Equal(t, 31, *race.FlagEdition)
	})

	t.Run("fatal without an edition", func(t *testing.T) {
		f := newFixture(scriptedChannel{confirm: true})
		f.addFlag("BANDERA PETRONOR")

		_, _, _, err := f.engine.Resolve(context.Background(), scrapedRace("Bandera Petronor", nil))
		assert.ErrorIs(t, err, models.ErrStopProcessing)
	})
}

func TestMergePromotesGender(t *testing.T) {
	f := newFixture(decision.AcceptAll())
	flag := f.addFlag("BANDERA PETRONOR")
	f.competitions.competitions["FLAG|XXVIII BANDERA PETRONOR"] = flag
	existing := &models.Race{
		ID:          "race-1",
		Gender:      models.GenderMale,
		Category:    models.CategoryAbsolut,
		RaceNames:   pq.StringArray{"BANDERA PETRONOR"},
		FlagID:      &flag.ID,
		FlagEdition: intPtr(28),
		Date:        time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC),
		Day:         1,
	}
	existing.Metadata.AddDatasource(models.ProvenanceRecord{DatasourceName: "traineras", RefID: "t9"})
	f.races.byComp = existing

	scraped := scrapedRace("XXVIII Bandera Petronor", intPtr(28))
	scraped.Gender = models.GenderFemale

	race, _, status, err := f.engine.Resolve(context.Background(), scraped)
	require.NoError(t, err)
	assert.Equal(t, StatusMerged, status)
	assert.Equal(t, models.GenderAll, race.Gender)
	assert.Contains(t, race.RaceNames, "XXVIII BANDERA PETRONOR")
	assert.Contains(t, race.RaceNames, "BANDERA PETRONOR")
	require.Len(t, race.Metadata.Datasource, 2)

	// Re-ingesting the same source record must not duplicate provenance.
	_, _, _, err = f.engine.Resolve(context.Background(), scraped)
	require.NoError(t, err)
	assert.Len(t, race.Metadata.Datasource, 2)
}

func TestMergeRejectedKeepsRaceStandalone(t *testing.T) {
	f := newFixture(decision.RejectAll())
	flag := f.addFlag("BANDERA PETRONOR")
	f.races.byComp = &models.Race{
		ID:          "race-1",
		Gender:      models.GenderMale,
		FlagID:      &flag.ID,
		FlagEdition: intPtr(28),
	}

	race, _, status, err := f.engine.Resolve(context.Background(), scrapedRace("Bandera Petronor", intPtr(28)))
	require.NoError(t, err)
	assert.Equal(t, StatusNew, status)
	assert.NotEqual(t, "race-1", race.ID)
	assert.Equal(t, models.GenderMale, race.Gender)
}

func TestCommitStatusMachine(t *testing.T) {
	tests := []struct {
		status Status
		want   Status
	}{
		{StatusNew, StatusCreated},
		{StatusMerged, StatusUpdated},
		{StatusExisting, StatusExisting},
		{StatusIgnore, StatusIgnore},
		{StatusCreated, StatusCreated},
		{StatusUpdated, StatusUpdated},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.Next())
		})
	}
}

func commitableRace(flagID string) *models.Race {
	return &models.Race{
		Date:        time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC),
		Day:         1,
		Gender:      models.GenderMale,
		Category:    models.CategoryAbsolut,
		RaceNames:   pq.StringArray{"BANDERA PETRONOR"},
		FlagID:      &flagID,
		FlagEdition: intPtr(28),
	}
}

func TestCommitCreate(t *testing.T) {
	f := newFixture(decision.AcceptAll())
	race := commitableRace("flag-1")

	race, status, err := f.engine.Commit(context.Background(), race, StatusNew, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, status)
	assert.Len(t, f.races.created, 1)
	assert.NotEmpty(t, race.ID)
}

func TestCommitRejected(t *testing.T) {
	f := newFixture(decision.RejectAll())

	_, status, err := f.engine.Commit(context.Background(), commitableRace("flag-1"), StatusNew, nil)
	assert.ErrorIs(t, err, models.ErrStopProcessing)
	assert.Equal(t, StatusNew, status)
	assert.Empty(t, f.races.created)
}

func TestCommitDayTwoRetry(t *testing.T) {
	t.Run("one collision retries as day 2", func(t *testing.T) {
		f := newFixture(decision.AcceptAll())
		f.races.failCreates = 1
		dayOne := &models.Race{ID: "race-day1", Day: 1}
		race := commitableRace("flag-1")

		race, status, err := f.engine.Commit(context.Background(), race, StatusNew, dayOne)
		require.NoError(t, err)
		assert.Equal(t, StatusCreated, status)
		assert.Equal(t, 2, race.Day)
		assert.Equal(t, 1, f.races.associateCalls)
		require.NotNil(t, race.AssociatedID)
		assert.Equal(t, "race-day1", *race.AssociatedID)
		// The day-1 side must be linked back, never left half-paired.
		require.NotNil(t, dayOne.AssociatedID)
		assert.Equal(t, race.ID, *dayOne.AssociatedID)
	})

	t.Run("retry without a counterpart stays unlinked", func(t *testing.T) {
		f := newFixture(decision.AcceptAll())
		f.races.failCreates = 1
		race := commitableRace("flag-1")

		race, status, err := f.engine.Commit(context.Background(), race, StatusNew, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusCreated, status)
		assert.Equal(t, 2, race.Day)
		assert.Zero(t, f.races.associateCalls)
		assert.Nil(t, race.AssociatedID)
	})

	t.Run("second collision is fatal", func(t *testing.T) {
		f := newFixture(decision.AcceptAll())
		f.races.failCreates = 2

		_, _, err := f.engine.Commit(context.Background(), commitableRace("flag-1"), StatusNew, nil)
		assert.ErrorIs(t, err, models.ErrStopProcessing)
	})
}

func TestCommitLinksAssociated(t *testing.T) {
	f := newFixture(decision.AcceptAll())
	dayTwo := &models.Race{ID: "race-day2", Day: 2}
	race := commitableRace("flag-1")

	race, _, err := f.engine.Commit(context.Background(), race, StatusNew, dayTwo)
	require.NoError(t, err)
	assert.Equal(t, 1, f.races.associateCalls)
	require.NotNil(t, race.AssociatedID)
	assert.Equal(t, "race-day2", *race.AssociatedID)
	require.NotNil(t, dayTwo.AssociatedID)
	assert.Equal(t, race.ID, *dayTwo.AssociatedID)
}

func TestResolveFillsTownFromSiblings(t *testing.T) {
	town := "SANTURTZI"
	f := newFixture(decision.AcceptAll())
	f.addFlag("BANDERA PETRONOR")
	f.races.siblings = []models.Race{{Town: &town}, {Town: &town}, {}}

	race, _, _, err := f.engine.Resolve(context.Background(), scrapedRace("Bandera Petronor", intPtr(28)))
	require.NoError(t, err)
	require.NotNil(t, race.Town)
	assert.Equal(t, "SANTURTZI", *race.Town)
}

func TestResolveSiblingsDisagreeOnTown(t *testing.T) {
	santurtzi, bilbao := "SANTURTZI", "BILBAO"
	f := newFixture(decision.AcceptAll())
	f.addFlag("BANDERA PETRONOR")
	f.races.siblings = []models.Race{{Town: &santurtzi}, {Town: &bilbao}}

	race, _, _, err := f.engine.Resolve(context.Background(), scrapedRace("Bandera Petronor", intPtr(28)))
	require.NoError(t, err)
	assert.Nil(t, race.Town)
}

func intPtr(n int) *int { return &n }
