package models

import (
	"fmt"
	"time"
)

// ScrapedName is one name variant a source used for a race, optionally
// carrying the edition the source printed next to it.
type ScrapedName struct {
	Name    string `json:"name" validate:"required"`
	Edition *int   `json:"edition,omitempty" validate:"omitempty,gt=0"`
}

// ScrapedRace is the canonical shape every source adapter produces. The
// engine never sees source-specific HTML or spreadsheet rows, only this.
type ScrapedRace struct {
	Names []ScrapedName `json:"names" validate:"required,min=1,dive"`

	// Date uses the DD/MM/YYYY form every scraped source emits.
	Date string `json:"date" validate:"required"`
	Day  int    `json:"day" validate:"required,min=1,max=2"`

	League    string `json:"league,omitempty"`
	Town      string `json:"town,omitempty"`
	Organizer string `json:"organizer,omitempty"`
	Sponsor   string `json:"sponsor,omitempty"`

	Type     string `json:"type" validate:"required,oneof=CONVENTIONAL TIME_TRIAL"`
	Modality string `json:"modality" validate:"required,oneof=TRAINERA TRAINERILLA BATEL"`
	Gender   string `json:"gender" validate:"required,oneof=MALE FEMALE ALL MIX"`
	Category string `json:"category" validate:"required,oneof=ABSOLUT VETERAN SCHOOL ALL"`

	RaceLaps  *int `json:"race_laps,omitempty"`
	RaceLanes *int `json:"race_lanes,omitempty"`

	Cancelled bool `json:"cancelled"`

	// URL is the provenance reference; a race without one is never committed.
	URL        string   `json:"url" validate:"required,url"`
	Datasource string   `json:"datasource" validate:"required"`
	RaceIDs    []string `json:"race_ids" validate:"required,min=1"`

	Participants []ScrapedParticipant `json:"participants" validate:"dive"`
}

// ParsedDate parses the DD/MM/YYYY date the adapters emit.
func (r ScrapedRace) ParsedDate() (time.Time, error) {
	date, err := time.Parse("02/01/2006", r.Date)
	if err != nil {
		return time.Time{}, NewValidationError("date", fmt.Sprintf("expected DD/MM/YYYY, got %q", r.Date))
	}
	return date, nil
}

// PrimaryName returns the first scraped name, the one sources treat as the
// race's main title.
func (r ScrapedRace) PrimaryName() string {
	if len(r.Names) == 0 {
		return ""
	}
	return r.Names[0].Name
}

// ScrapedParticipant is one crew row as captured from a source.
type ScrapedParticipant struct {
	// ParticipantName is the club label used for entity resolution.
	ParticipantName string `json:"participant" validate:"required"`
	// ClubNameRaw is the unmodified captured label, branch suffix included.
	ClubNameRaw string `json:"club_name,omitempty"`

	// Laps uses the MM:SS.ffffff form, chronological.
	Laps     []string `json:"laps" validate:"dive,required"`
	Distance *int     `json:"distance,omitempty"`
	Lane     *int     `json:"lane,omitempty"`
	Series   *int     `json:"series,omitempty"`
	Handicap *string  `json:"handicap,omitempty"`

	Gender   string `json:"gender" validate:"required,oneof=MALE FEMALE MIX"`
	Category string `json:"category" validate:"required,oneof=ABSOLUT VETERAN SCHOOL"`

	Guest   bool `json:"guest"`
	Absent  bool `json:"absent"`
	Retired bool `json:"retired"`

	Disqualified bool            `json:"disqualified"`
	Penalty      *ScrapedPenalty `json:"penalty,omitempty"`
}

// ScrapedPenalty is the penalty block a source attached to a participant.
type ScrapedPenalty struct {
	Amount           int     `json:"amount"`
	Disqualification bool    `json:"disqualification"`
	Reason           *string `json:"reason,omitempty"`
	Note             *string `json:"note,omitempty"`
}

// ValidateLap checks a lap timestamp has the MM:SS.ffffff shape.
func ValidateLap(lap string) error {
	if _, err := time.Parse("04:05.000000", lap); err != nil {
		if _, err := time.Parse("04:05.00", lap); err != nil {
			return NewValidationError("laps", fmt.Sprintf("expected MM:SS.ffffff, got %q", lap))
		}
	}
	return nil
}
