package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/rowstack/regatta/pkg/normalizers"
)

// Race is one canonical racing event on a given date. It may belong to a
// trophy, a flag, or both at once (two competitions run over the same event),
// each paired with an edition.
type Race struct {
	ID string `json:"id" db:"id"`

	Type     string    `json:"type" db:"type"`
	Date     time.Time `json:"date" db:"date"`
	Day      int       `json:"day" db:"day"`
	Modality string    `json:"modality" db:"modality"`
	Gender   string    `json:"gender" db:"gender"`
	Category string    `json:"category" db:"category"`

	Laps  *int    `json:"laps,omitempty" db:"laps"`
	Lanes *int    `json:"lanes,omitempty" db:"lanes"`
	Town  *string `json:"town,omitempty" db:"town"`

	Cancelled           bool           `json:"cancelled" db:"cancelled"`
	CancellationReasons pq.StringArray `json:"cancellation_reasons" db:"cancellation_reasons"`

	// RaceNames accumulates the name variants the sources used for this
	// race; merged as a set when records are merged.
	RaceNames pq.StringArray `json:"race_names" db:"race_names"`
	Sponsor   *string        `json:"sponsor,omitempty" db:"sponsor"`

	// TrophyID and TrophyEdition are both nil or both set; same for flag.
	TrophyID      *string `json:"trophy_id,omitempty" db:"trophy_id"`
	TrophyEdition *int    `json:"trophy_edition,omitempty" db:"trophy_edition"`
	FlagID        *string `json:"flag_id,omitempty" db:"flag_id"`
	FlagEdition   *int    `json:"flag_edition,omitempty" db:"flag_edition"`

	LeagueID    *string `json:"league_id,omitempty" db:"league_id"`
	OrganizerID *string `json:"organizer_id,omitempty" db:"organizer_id"`

	// AssociatedID pairs day-1/day-2 of a two-day event, linked both ways.
	AssociatedID *string `json:"associated_id,omitempty" db:"associated_id"`
	// SameAsID marks a confirmed duplicate of another race.
	SameAsID *string `json:"same_as_id,omitempty" db:"same_as_id"`

	Metadata Metadata `json:"metadata" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Validate enforces the structural invariants a race must satisfy before any
// write: competition/edition pairing and day-2 association.
func (r Race) Validate() error {
	if (r.TrophyID == nil) != (r.TrophyEdition == nil) {
		return NewValidationError("trophy_edition", "trophy and trophy_edition must both be set or both be empty")
	}
	if (r.FlagID == nil) != (r.FlagEdition == nil) {
		return NewValidationError("flag_edition", "flag and flag_edition must both be set or both be empty")
	}
	if r.TrophyID == nil && r.FlagID == nil {
		return NewValidationError("trophy", "race needs at least one competition")
	}
	if r.Day == 2 && r.AssociatedID == nil {
		return NewValidationError("associated", "day 2 races need an associated day 1 race")
	}
	if r.Day != 1 && r.Day != 2 {
		return NewValidationError("day", "day must be 1 or 2")
	}
	return nil
}

// DisplayName renders the canonical race title the way listings print it:
// roman edition and competition name per kind, sponsor appended, and the
// day marker for day 2. Competition names come from the caller since a race
// only carries the ids.
func (r Race) DisplayName(trophyName, flagName string) string {
	var parts []string
	if r.TrophyEdition != nil && trophyName != "" {
		parts = append(parts, fmt.Sprintf("%s - %s", normalizers.IntToRoman(*r.TrophyEdition), trophyName))
	}
	if r.FlagEdition != nil && flagName != "" {
		parts = append(parts, fmt.Sprintf("%s - %s", normalizers.IntToRoman(*r.FlagEdition), flagName))
	}
	if r.Sponsor != nil {
		parts = append(parts, *r.Sponsor)
	}

	name := strings.Join(parts, " - ")
	if r.Day > 1 {
		name = fmt.Sprintf("%s XORNADA %d", name, r.Day)
	}
	return normalizers.WhitespacesClean(name)
}

// Year is a shorthand for the race date's year.
func (r Race) Year() int { return r.Date.Year() }

// CompetitionID returns the id the race carries for the given kind, or nil.
func (r Race) CompetitionID(kind CompetitionKind) *string {
	if kind == KindTrophy {
		return r.TrophyID
	}
	return r.FlagID
}

// Edition returns the edition the race carries for the given kind, or nil.
func (r Race) Edition(kind CompetitionKind) *int {
	if kind == KindTrophy {
		return r.TrophyEdition
	}
	return r.FlagEdition
}

// SetCompetition sets the competition reference and edition for a kind.
func (r *Race) SetCompetition(kind CompetitionKind, id *string, edition *int) {
	if kind == KindTrophy {
		r.TrophyID, r.TrophyEdition = id, edition
		return
	}
	r.FlagID, r.FlagEdition = id, edition
}
