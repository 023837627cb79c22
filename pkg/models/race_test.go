package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func validRace() Race {
	return Race{
		Type:          RaceConventional,
		Date:          time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC),
		Day:           1,
		Modality:      ModalityTrainera,
		Gender:        GenderMale,
		Category:      CategoryAbsolut,
		TrophyID:      strPtr("t1"),
		TrophyEdition: intPtr(39),
	}
}

func TestRaceValidate(t *testing.T) {
	t.Run("valid race", func(t *testing.T) {
		assert.NoError(t, validRace().Validate())
	})

	t.Run("trophy without edition", func(t *testing.T) {
		race := validRace()
		race.TrophyEdition = nil

		err := race.Validate()
		require.Error(t, err)

		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, "trophy_edition", validation.Field)
	})

	t.Run("edition without flag", func(t *testing.T) {
		race := validRace()
		race.FlagEdition = intPtr(12)

		assert.Error(t, race.Validate())
	})

	t.Run("no competition at all", func(t *testing.T) {
		race := validRace()
		race.SetCompetition(KindTrophy, nil, nil)

		assert.Error(t, race.Validate())
	})

	t.Run("both competitions at once is fine", func(t *testing.T) {
		race := validRace()
		race.SetCompetition(KindFlag, strPtr("f1"), intPtr(5))

		assert.NoError(t, race.Validate())
	})

	t.Run("day 2 needs an association", func(t *testing.T) {
		race := validRace()
		race.Day = 2

		assert.Error(t, race.Validate())

		race.AssociatedID = strPtr("r1")
		assert.NoError(t, race.Validate())
	})

	t.Run("day out of range", func(t *testing.T) {
		race := validRace()
		race.Day = 3

		assert.Error(t, race.Validate())
	})
}

func TestRaceDisplayName(t *testing.T) {
	t.Run("trophy only", func(t *testing.T) {
		race := validRace()
		assert.Equal(t, "XXXIX - BANDERA PETRONOR", race.DisplayName("BANDERA PETRONOR", ""))
	})

	t.Run("trophy and flag with sponsor", func(t *testing.T) {
		race := validRace()
		race.SetCompetition(KindFlag, strPtr("f1"), intPtr(4))
		race.Sponsor = strPtr("PETRONOR")

		got := race.DisplayName("GRAN PREMIO", "BANDERA DE SANTURTZI")
		assert.Equal(t, "XXXIX - GRAN PREMIO - IV - BANDERA DE SANTURTZI - PETRONOR", got)
	})

	t.Run("day two marker", func(t *testing.T) {
		race := validRace()
		race.Day = 2

		assert.Equal(t, "XXXIX - BANDERA PETRONOR XORNADA 2", race.DisplayName("BANDERA PETRONOR", ""))
	})

	t.Run("unresolved competition names degrade to empty", func(t *testing.T) {
		race := validRace()
		assert.Equal(t, "", race.DisplayName("", ""))
	})
}

func TestRaceCompetitionHelpers(t *testing.T) {
	race := validRace()
	race.SetCompetition(KindFlag, strPtr("f1"), intPtr(7))

	require.NotNil(t, race.CompetitionID(KindTrophy))
	assert.Equal(t, "t1", *race.CompetitionID(KindTrophy))
	assert.Equal(t, 39, *race.Edition(KindTrophy))

	assert.Equal(t, "f1", *race.CompetitionID(KindFlag))
	assert.Equal(t, 7, *race.Edition(KindFlag))

	assert.Equal(t, 2025, race.Year())
}
