package kafka

import (
	"encoding/json"
	"time"

	"github.com/rowstack/regatta/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Parsed content
	ScrapedRace *models.ScrapedRace
}

// ParseScrapedRace parses the message value as a scraped race record
func (m *IncomingMessage) ParseScrapedRace() error {
	var race models.ScrapedRace
	if err := json.Unmarshal(m.Value, &race); err != nil {
		return err
	}
	m.ScrapedRace = &race
	return nil
}

// GetDatasource returns the datasource the record came from, falling back
// to the header when the body has not been parsed.
func (m *IncomingMessage) GetDatasource() string {
	if m.ScrapedRace != nil {
		return m.ScrapedRace.Datasource
	}
	return m.Headers["datasource"]
}
