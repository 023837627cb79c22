package entity

import (
	"context"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowstack/regatta/pkg/models"
	"github.com/rowstack/regatta/pkg/normalizers"
)

type fakeStore struct {
	entities     []models.Entity
	partnerships map[string]string // part ID -> target ID
}

func (f *fakeStore) SearchExact(_ context.Context, name string, entityType *string) ([]models.Entity, error) {
	query := normalizers.Unaccent(strings.ToUpper(name))
	var out []models.Entity
	for _, e := range f.entities {
		if entityType != nil && e.Type != *entityType {
			continue
		}
		for _, known := range e.SearchNames() {
			if normalizers.Unaccent(strings.ToUpper(known)) == query {
				out = append(out, e)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) SearchTokenOverlap(_ context.Context, words []string, entityType *string) ([]models.Entity, error) {
	var out []models.Entity
	for _, e := range f.entities {
		if entityType != nil && e.Type != *entityType {
			continue
		}
		haystack := strings.ToUpper(strings.Join(e.SearchNames(), " "))
		for _, word := range words {
			if strings.Contains(haystack, strings.ToUpper(word)) {
				out = append(out, e)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) PartnershipTarget(_ context.Context, partID string) (*models.Entity, error) {
	targetID, ok := f.partnerships[partID]
	if !ok {
		return nil, nil
	}
	for i, e := range f.entities {
		if e.ID == targetID {
			return &f.entities[i], nil
		}
	}
	return nil, nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func club(id, name string, known ...string) models.Entity {
	return models.Entity{
		ID:             id,
		Name:           name,
		NormalizedName: name,
		KnownNames:     pq.StringArray(known),
		Type:           models.EntityClub,
	}
}

func TestResolveClub(t *testing.T) {
	store := &fakeStore{entities: []models.Entity{
		club("1", "PUEBLA", "CLUB DE REMO PUEBLA"),
		club("2", "SAN JUAN"),
		club("3", "ZIERBENA"),
	}}
	resolver := NewResolver(store, testLogger())

	tests := []struct {
		name    string
		query   string
		wantID  string
		wantErr error
	}{
		{
			name:   "exact match is case insensitive",
			query:  "puebla",
			wantID: "1",
		},
		{
			name:   "known names count as exact",
			query:  "Club de Remo Puebla",
			wantID: "1",
		},
		{
			name:   "branch suffix resolves to the parent club",
			query:  "ZIERBENA B",
			wantID: "3",
		},
		{
			name:   "fuzzy match within the gate",
			query:  "CLUB REMO PUEBLA",
			wantID: "1",
		},
		{
			name:    "fuzzy match outside the gate",
			query:   "SAN PEDRO",
			wantErr: models.ErrNotFound,
		},
		{
			name:    "no candidates at all",
			query:   "HONDARRIBIA",
			wantErr: models.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.ResolveClub(context.Background(), tt.query)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestResolveClubAccentInsensitive(t *testing.T) {
	store := &fakeStore{entities: []models.Entity{club("1", "CABO DE CRUZ", "CABO DA CRUZ")}}
	resolver := NewResolver(store, testLogger())

	got, err := resolver.ResolveClub(context.Background(), "CABO DA CRÚZ")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)
}

func TestResolveClubAmbiguous(t *testing.T) {
	store := &fakeStore{entities: []models.Entity{
		club("1", "SANTURTZI", "ITSASOKO AMA"),
		club("2", "ITSASOKO AMA"),
	}}
	resolver := NewResolver(store, testLogger())

	_, err := resolver.ResolveClub(context.Background(), "ITSASOKO AMA")
	require.ErrorIs(t, err, models.ErrAmbiguousMatch)

	var ambiguous *models.AmbiguousMatchError
	require.ErrorAs(t, err, &ambiguous)
	assert.Len(t, ambiguous.Candidates, 2)
}

func TestResolveClubFollowsActivePartnership(t *testing.T) {
	partnership := models.Entity{
		ID:             "9",
		Name:           "CASTRO URDIALES - LAREDO",
		NormalizedName: "CASTRO URDIALES - LAREDO",
		Type:           models.EntityClub,
		IsPartnership:  true,
	}
	store := &fakeStore{
		entities:     []models.Entity{club("1", "CASTRO URDIALES"), partnership},
		partnerships: map[string]string{"1": "9"},
	}
	resolver := NewResolver(store, testLogger())

	got, err := resolver.ResolveClub(context.Background(), "Castro Urdiales")
	require.NoError(t, err)
	assert.Equal(t, "9", got.ID)
	assert.True(t, got.IsPartnership)
}

func TestResolveClubEmptyName(t *testing.T) {
	resolver := NewResolver(&fakeStore{}, testLogger())

	_, err := resolver.ResolveClub(context.Background(), "   ")
	require.Error(t, err)

	var validation *models.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestResolveOrganizerIgnoresType(t *testing.T) {
	federation := models.Entity{
		ID:             "10",
		Name:           "FEDERACION GALEGA DE REMO",
		NormalizedName: "FEDERACION GALEGA DE REMO",
		Type:           models.EntityFederation,
	}
	store := &fakeStore{entities: []models.Entity{club("1", "PUEBLA"), federation}}
	resolver := NewResolver(store, testLogger())

	got, err := resolver.ResolveOrganizer(context.Background(), "Federación Galega de Remo")
	require.NoError(t, err)
	assert.Equal(t, "10", got.ID)

	// The same name must not resolve as a club.
	_, err = resolver.ResolveClub(context.Background(), "Federación Galega de Remo")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
