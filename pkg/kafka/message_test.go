package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScrapedRace(t *testing.T) {
	message := &IncomingMessage{
		Value: []byte(`{
			"names": [{"name": "XXXIX Bandera Petronor"}],
			"date": "14/06/2025",
			"day": 1,
			"type": "CONVENTIONAL",
			"modality": "TRAINERA",
			"gender": "MALE",
			"category": "ABSOLUT",
			"url": "https://traineras.es/clasificaciones/1234",
			"datasource": "traineras.es",
			"race_ids": ["1234"]
		}`),
	}

	require.NoError(t, message.ParseScrapedRace())
	require.NotNil(t, message.ScrapedRace)
	assert.Equal(t, "XXXIX Bandera Petronor", message.ScrapedRace.PrimaryName())
	assert.Equal(t, "traineras.es", message.GetDatasource())
}

func TestParseScrapedRaceInvalidJSON(t *testing.T) {
	message := &IncomingMessage{Value: []byte("not json")}

	assert.Error(t, message.ParseScrapedRace())
	assert.Nil(t, message.ScrapedRace)
}

func TestGetDatasourceFallsBackToHeader(t *testing.T) {
	message := &IncomingMessage{Headers: map[string]string{"datasource": "arc"}}

	assert.Equal(t, "arc", message.GetDatasource())
}
