package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ProvenanceRecord is one source's captured snapshot of a canonical record,
// keyed by (datasource_name, ref_id). At most one record per key may exist on
// an owning entity; ingestion checks before appending and never overwrites.
type ProvenanceRecord struct {
	RefID          string            `json:"ref_id,omitempty"`
	DatasourceName string            `json:"datasource_name"`
	Values         map[string]string `json:"values"`
	CapturedAt     time.Time         `json:"captured_at,omitzero"`
	RawSnapshot    json.RawMessage   `json:"raw_snapshot,omitempty"`
}

// Matches reports whether the record belongs to the given source key. An
// empty refID matches any ref within the datasource.
func (p ProvenanceRecord) Matches(datasourceName, refID string) bool {
	if p.DatasourceName != datasourceName {
		return false
	}
	return refID == "" || p.RefID == refID
}

// Metadata is the provenance list attached to entities, races and
// participants. Append-only outside explicit curation.
type Metadata struct {
	Datasource []ProvenanceRecord `json:"datasource"`
}

// HasDatasource reports whether a record for (datasourceName, refID) exists.
func (m Metadata) HasDatasource(datasourceName, refID string) bool {
	for _, record := range m.Datasource {
		if record.Matches(datasourceName, refID) {
			return true
		}
	}
	return false
}

// AddDatasource appends a provenance record unless its key is already
// present. Returns true when the record was added.
func (m *Metadata) AddDatasource(record ProvenanceRecord) bool {
	if m.HasDatasource(record.DatasourceName, record.RefID) {
		return false
	}
	m.Datasource = append(m.Datasource, record)
	return true
}

// Scan implements sql.Scanner for jsonb columns.
func (m *Metadata) Scan(src any) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("metadata scan: expected []byte, got %T", src)
	}
	return json.Unmarshal(b, m)
}

// Value implements driver.Valuer for jsonb columns.
func (m Metadata) Value() (driver.Value, error) {
	if m.Datasource == nil {
		m.Datasource = []ProvenanceRecord{}
	}
	return json.Marshal(m)
}

// ProvenanceBuilder assembles a ProvenanceRecord, validating the required
// fields at Build time rather than leaving shape checks to consumers.
type ProvenanceBuilder struct {
	record ProvenanceRecord
}

// NewProvenance starts a builder for the given datasource.
func NewProvenance(datasourceName string) *ProvenanceBuilder {
	return &ProvenanceBuilder{record: ProvenanceRecord{
		DatasourceName: datasourceName,
		Values:         map[string]string{},
		CapturedAt:     time.Now().UTC(),
	}}
}

// RefID sets the source-local identifier.
func (b *ProvenanceBuilder) RefID(refID string) *ProvenanceBuilder {
	b.record.RefID = refID
	return b
}

// Value records a captured key/value pair.
func (b *ProvenanceBuilder) Value(key, value string) *ProvenanceBuilder {
	b.record.Values[key] = value
	return b
}

// Snapshot attaches the raw source payload.
func (b *ProvenanceBuilder) Snapshot(raw json.RawMessage) *ProvenanceBuilder {
	b.record.RawSnapshot = raw
	return b
}

// Build validates and returns the record.
func (b *ProvenanceBuilder) Build() (ProvenanceRecord, error) {
	if b.record.DatasourceName == "" {
		return ProvenanceRecord{}, NewValidationError("datasource_name", "required")
	}
	if b.record.Values == nil {
		return ProvenanceRecord{}, NewValidationError("values", "required")
	}
	return b.record, nil
}
