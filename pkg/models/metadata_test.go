package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataAddDatasource(t *testing.T) {
	var metadata Metadata

	added := metadata.AddDatasource(ProvenanceRecord{DatasourceName: "traineras.es", RefID: "1234"})
	assert.True(t, added)

	t.Run("same key is not appended twice", func(t *testing.T) {
		added := metadata.AddDatasource(ProvenanceRecord{DatasourceName: "traineras.es", RefID: "1234"})
		assert.False(t, added)
		assert.Len(t, metadata.Datasource, 1)
	})

	t.Run("different ref within the same source is appended", func(t *testing.T) {
		added := metadata.AddDatasource(ProvenanceRecord{DatasourceName: "traineras.es", RefID: "5678"})
		assert.True(t, added)
		assert.Len(t, metadata.Datasource, 2)
	})

	t.Run("different source is appended", func(t *testing.T) {
		added := metadata.AddDatasource(ProvenanceRecord{DatasourceName: "arc", RefID: "1234"})
		assert.True(t, added)
		assert.Len(t, metadata.Datasource, 3)
	})
}

func TestMetadataHasDatasourceEmptyRefMatchesAny(t *testing.T) {
	metadata := Metadata{Datasource: []ProvenanceRecord{
		{DatasourceName: "traineras.es", RefID: "1234"},
	}}

	assert.True(t, metadata.HasDatasource("traineras.es", ""))
	assert.False(t, metadata.HasDatasource("arc", ""))
}

func TestMetadataScanRoundTrip(t *testing.T) {
	metadata := Metadata{Datasource: []ProvenanceRecord{
		{DatasourceName: "traineras.es", RefID: "1234", Values: map[string]string{"name": "Bandera de Getxo"}},
	}}

	value, err := metadata.Value()
	require.NoError(t, err)

	var scanned Metadata
	require.NoError(t, scanned.Scan(value.([]byte)))
	assert.Equal(t, metadata.Datasource, scanned.Datasource)
}

func TestMetadataValueDefaultsEmptyList(t *testing.T) {
	value, err := Metadata{}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"datasource": []}`, string(value.([]byte)))
}

func TestProvenanceBuilder(t *testing.T) {
	t.Run("builds a complete record", func(t *testing.T) {
		record, err := NewProvenance("traineras.es").
			RefID("1234").
			Value("name", "Bandera de Getxo").
			Snapshot(json.RawMessage(`{"raw": true}`)).
			Build()

		require.NoError(t, err)
		assert.Equal(t, "traineras.es", record.DatasourceName)
		assert.Equal(t, "1234", record.RefID)
		assert.Equal(t, "Bandera de Getxo", record.Values["name"])
		assert.False(t, record.CapturedAt.IsZero())
	})

	t.Run("rejects a missing datasource name", func(t *testing.T) {
		_, err := NewProvenance("").Build()
		require.Error(t, err)

		var validation *ValidationError
		assert.ErrorAs(t, err, &validation)
	})
}
