package models

import (
	"time"

	"github.com/lib/pq"
)

// Entity is a canonical club, league organization, federation or private
// organizer. Cases it covers:
//   - normal club, ex: PUEBLA
//   - inactive club fused into another one, ex: BERMEO -> URDAIBAI (parent)
//   - subsidiary club of another one, ex: MEIRA -> SAMERTOLAMEU (parent)
type Entity struct {
	ID string `json:"id" db:"id"`

	Name string `json:"name" db:"name"`
	// NormalizedName is the title/sponsor-stripped form used for grouping,
	// ex: CR BADALONA and CN BADALONA both resolve to BADALONA.
	NormalizedName string         `json:"normalized_name" db:"normalized_name"`
	KnownNames     pq.StringArray `json:"known_names" db:"known_names"`

	Type   string  `json:"type" db:"type"`
	Symbol *string `json:"symbol,omitempty" db:"symbol"`

	IsPartnership bool    `json:"is_partnership" db:"is_partnership"`
	ParentID      *string `json:"parent_id,omitempty" db:"parent_id"`

	Metadata Metadata `json:"metadata" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SearchNames returns every name the entity is known by, normalized name
// included. Used to build fuzzy-match candidate sets.
func (e Entity) SearchNames() []string {
	names := make([]string, 0, len(e.KnownNames)+2)
	names = append(names, e.Name)
	if e.NormalizedName != e.Name {
		names = append(names, e.NormalizedName)
	}
	names = append(names, e.KnownNames...)
	return names
}

// League is a competition league, ex: LIGA GALEGA DE TRAINEIRAS.
type League struct {
	ID       string  `json:"id" db:"id"`
	Name     string  `json:"name" db:"name"`
	Symbol   string  `json:"symbol" db:"symbol"`
	Gender   *string `json:"gender,omitempty" db:"gender"`
	ParentID *string `json:"parent_id,omitempty" db:"parent_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// EntityPartnership links a component club to the partnership entity it rows
// under. A club can be part of at most one active partnership.
type EntityPartnership struct {
	ID       string `json:"id" db:"id"`
	TargetID string `json:"target_id" db:"target_id"`
	PartID   string `json:"part_id" db:"part_id"`
	IsActive bool   `json:"is_active" db:"is_active"`
}
