package models

import (
	"time"

	"github.com/lib/pq"
)

// Participant is one club's crew in one race. ClubNames keeps the raw labels
// the sources used because normalization is lossy: branch suffixes like " B"
// must survive to tell a reserve crew apart from the main one.
type Participant struct {
	ID     string `json:"id" db:"id"`
	RaceID string `json:"race_id" db:"race_id"`
	ClubID string `json:"club_id" db:"club_id"`

	ClubNames pq.StringArray `json:"club_names" db:"club_names"`
	// Branch is the reserve-crew letter (B/C/D) or nil for the main crew.
	Branch *string `json:"branch,omitempty" db:"branch"`

	Distance *int `json:"distance,omitempty" db:"distance"`
	// Laps holds split timestamps in chronological order, append-only.
	Laps     pq.StringArray `json:"laps" db:"laps"`
	Lane     *int           `json:"lane,omitempty" db:"lane"`
	Series   *int           `json:"series,omitempty" db:"series"`
	Handicap *string        `json:"handicap,omitempty" db:"handicap"`

	Gender   string `json:"gender" db:"gender"`
	Category string `json:"category" db:"category"`

	Guest   bool `json:"guest" db:"guest"`
	Absent  bool `json:"absent" db:"absent"`
	Retired bool `json:"retired" db:"retired"`

	Metadata Metadata `json:"metadata" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Penalty is a sanction attached to a participant. Notes are append-only;
// each source can add its own.
type Penalty struct {
	ID            string `json:"id" db:"id"`
	ParticipantID string `json:"participant_id" db:"participant_id"`

	Amount           int            `json:"amount" db:"amount"`
	Disqualification bool           `json:"disqualification" db:"disqualification"`
	Reason           *string        `json:"reason,omitempty" db:"reason"`
	Notes            pq.StringArray `json:"notes" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
