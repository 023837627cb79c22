package competition

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

	"github.com/rowstack/regatta/pkg/models"
	"github.com/rowstack/regatta/pkg/normalizers"
)

type fakeCompetitionStore struct {
	competitions []models.Competition
	created      []*models.Competition
}

func (f *fakeCompetitionStore) FindByTokenSuperset(_ context.Context, kind models.CompetitionKind, tokenSets [][]string) ([]models.Competition, error) {
	var out []models.Competition
	for _, c := range f.competitions {
		if c.Kind != kind {
			continue
		}
		for _, set := range tokenSets {
			if c.ContainsTokens(set) {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeCompetitionStore) FindByNameContains(_ context.Context, kind models.CompetitionKind, words []string) ([]models.Competition, error) {
	var out []models.Competition
	for _, c := range f.competitions {
		if c.Kind != kind {
			continue
		}
		name := strings.ToUpper(c.Name)
		all := true
		for _, word := range words {
			if !strings.Contains(name, strings.ToUpper(word)) {
				all = false
				break
			}
		}
		if all {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCompetitionStore) Create(_ context.Context, competition *models.Competition) error {
	competition.ID = fmt.Sprintf("created-%d", len(f.created)+1)
	f.created = append(f.created, competition)
	f.competitions = append(f.competitions, *competition)
	return nil
}

type fakeRaceStore struct {
	races []models.Race
}

func (f *fakeRaceStore) FindEditionCandidates(_ context.Context, kind models.CompetitionKind, competitionID string, gender, category string, year int) ([]models.Race, error) {
	var out []models.Race
	for _, race := range f.races {
		if race.Day != 1 || race.Gender != gender || race.Category != category || race.Year() != year {
			continue
		}
		if id := race.CompetitionID(kind); id != nil && *id != competitionID {
			continue
		}
		out = append(out, race)
	}
	return out, nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func flag(id, name string) models.Competition {
	return models.Competition{
		ID:     id,
		Kind:   models.KindFlag,
		Name:   name,
		Tokens: pq.StringArray(normalizers.Lemmatize(name)),
	}
}

func TestResolveByTokens(t *testing.T) {
	store := &fakeCompetitionStore{competitions: []models.Competition{
		flag("1", "BANDERA PETRONOR"),
		flag("2", "BANDERA DE BILBAO"),
		flag("3", "BANDERA AYUNTAMIENTO DE SANTURTZI"),
		flag("4", "BANDERA KEPA SANTURTZI"),
		flag("5", "BANDERA EL CORREO"),
		flag("6", "BANDERA EL CORREO BIZKAIA"),
	}}
	resolver := NewResolver(store, &fakeRaceStore{}, testLogger())

	tests := []struct {
		name   string
		query  string
		wantID string
	}{
		{
			name:   "roman ordinal stripped before matching",
			query:  "XXXIX Bandera Petronor",
			wantID: "1",
		},
		{
			name:   "kind synonym expanded",
			query:  "Trofeo Bilbao",
			wantID: "2",
		},
		{
			name:   "galician variant normalized",
			query:  "Bandeira de Bilbao",
			wantID: "2",
		},
		{
			name:   "council-backed competition wins a tie",
			query:  "Bandera de Santurtzi",
			wantID: "3",
		},
		{
			name:   "candidate without extra tokens wins a tie",
			query:  "Bandera El Correo",
			wantID: "5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.Resolve(context.Background(), models.KindFlag, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestResolveByNameFallback(t *testing.T) {
	castro := models.Competition{
		ID:   "1",
		Kind: models.KindFlag,
		Name: "BANDERA CIUDAD DE CASTRO",
		// Frozen tokens from an older name, forcing the name fallback.
		Tokens: pq.StringArray{"castro"},
	}
	store := &fakeCompetitionStore{competitions: []models.Competition{castro}}
	resolver := NewResolver(store, &fakeRaceStore{}, testLogger())

	got, err := resolver.Resolve(context.Background(), models.KindFlag, "Bandera Ciudad de Castro")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)
}

func TestResolveBelowNameThreshold(t *testing.T) {
	long := models.Competition{
		ID:     "1",
		Kind:   models.KindFlag,
		Name:   "BANDERA CIUDAD DE CASTRO GRAN PREMIO DEL CANTABRICO EN MEMORIA DE LOS PESCADORES",
		Tokens: pq.StringArray{"cantabrico"},
	}
	store := &fakeCompetitionStore{competitions: []models.Competition{long}}
	resolver := NewResolver(store, &fakeRaceStore{}, testLogger())

	_, err := resolver.Resolve(context.Background(), models.KindFlag, "Bandera Castro")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestResolveScopedByKind(t *testing.T) {
	trophy := models.Competition{
		ID:     "1",
		Kind:   models.KindTrophy,
		Name:   "TROFEO TERESA HERRERA",
		Tokens: pq.StringArray(normalizers.Lemmatize("TROFEO TERESA HERRERA")),
	}
	store := &fakeCompetitionStore{competitions: []models.Competition{trophy}}
	resolver := NewResolver(store, &fakeRaceStore{}, testLogger())

	got, err := resolver.Resolve(context.Background(), models.KindTrophy, "Trofeo Teresa Herrera")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)

	_, err = resolver.Resolve(context.Background(), models.KindFlag, "Trofeo Teresa Herrera")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestResolveFromNamesSkipsMemorials(t *testing.T) {
	store := &fakeCompetitionStore{competitions: []models.Competition{
		flag("1", "BANDERA PETRONOR"),
		flag("2", "MEMORIAL LAGAR"),
	}}
	resolver := NewResolver(store, &fakeRaceStore{}, testLogger())

	t.Run("memorial skipped when another name exists", func(t *testing.T) {
		got, err := resolver.ResolveFromNames(context.Background(), models.KindFlag,
			[]string{"Memorial Lagar", "Bandera Petronor"})
		require.NoError(t, err)
		assert.Equal(t, "1", got.ID)
	})

	t.Run("lone memorial name still resolves", func(t *testing.T) {
		got, err := resolver.ResolveFromNames(context.Background(), models.KindFlag,
			[]string{"Memorial Lagar"})
		require.NoError(t, err)
		assert.Equal(t, "2", got.ID)
	})

	t.Run("nothing matches", func(t *testing.T) {
		_, err := resolver.ResolveFromNames(context.Background(), models.KindFlag,
			[]string{"Bandera Desconocida"})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestResolveOrCreate(t *testing.T) {
	store := &fakeCompetitionStore{}
	resolver := NewResolver(store, &fakeRaceStore{}, testLogger())

	got, err := resolver.ResolveOrCreate(context.Background(), models.KindFlag, "bandeira concello de bueu")
	require.NoError(t, err)
	require.Len(t, store.created, 1)
	assert.Equal(t, "BANDEIRA CONCELLO DE BUEU", got.Name)
	assert.Equal(t, pq.StringArray{"ayuntamiento", "bandera", "bueu"}, got.Tokens)

	// Second call resolves the record just created.
	again, err := resolver.ResolveOrCreate(context.Background(), models.KindFlag, "Bandera Concello de Bueu")
	require.NoError(t, err)
	assert.Equal(t, got.ID, again.ID)
	assert.Len(t, store.created, 1)
}

func editionRace(day int, date string, flagID *string, edition *int) models.Race {
	parsed, _ := time.Parse("2006-01-02", date)
	return models.Race{
		Day:         day,
		Date:        parsed,
		Gender:      models.GenderMale,
		Category:    models.CategoryAbsolut,
		FlagID:      flagID,
		FlagEdition: edition,
	}
}

func TestInferEdition(t *testing.T) {
	petronor := flag("1", "BANDERA PETRONOR")
	id := petronor.ID

	tests := []struct {
		name    string
		races   []models.Race
		year    int
		want    int
		wantErr bool
	}{
		{
			name:  "edition found in the same year",
			races: []models.Race{editionRace(1, "2023-07-01", &id, intPtr(28))},
			year:  2023,
			want:  28,
		},
		{
			name:  "previous year bumps the edition",
			races: []models.Race{editionRace(1, "2022-07-02", &id, intPtr(27))},
			year:  2023,
			want:  28,
		},
		{
			name:  "next year lowers the edition",
			races: []models.Race{editionRace(1, "2024-07-06", &id, intPtr(29))},
			year:  2023,
			want:  28,
		},
		{
			name: "disagreeing editions fall back to adjacent years",
			races: []models.Race{
				editionRace(1, "2023-07-01", &id, intPtr(28)),
				editionRace(1, "2023-07-08", &id, intPtr(30)),
				editionRace(1, "2022-07-02", &id, intPtr(27)),
			},
			year: 2023,
			want: 28,
		},
		{
			name:    "no reference race at all",
			races:   nil,
			year:    2023,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewResolver(&fakeCompetitionStore{}, &fakeRaceStore{races: tt.races}, testLogger())
			got, err := resolver.InferEdition(context.Background(), &petronor, models.GenderMale, models.CategoryAbsolut, tt.year)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func intPtr(n int) *int { return &n }
