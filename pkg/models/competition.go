package models

import (
	"time"

	"github.com/lib/pq"
)

// CompetitionKind tags a Competition as a trophy or a flag. Both share the
// same matching and edition-inference behavior; the kind only scopes lookups.
type CompetitionKind string

const (
	KindTrophy CompetitionKind = "TROPHY"
	KindFlag   CompetitionKind = "FLAG"
)

// Competition is a recurring trophy or flag, ex: BANDERA PETRONOR. A Race
// references at most one of each kind, always paired with an edition.
type Competition struct {
	ID   string          `json:"id" db:"id"`
	Kind CompetitionKind `json:"kind" db:"kind"`
	Name string          `json:"name" db:"name"`

	// Tokens is the lemma set derived from the name at creation and frozen
	// afterwards; token search depends on it being stable.
	Tokens pq.StringArray `json:"tokens" db:"tokens"`

	// Verified marks manually curated catalog entries. Rows the resolver
	// creates on the fly start unverified.
	Verified bool `json:"verified" db:"verified"`

	QualifiesForID *string `json:"qualifies_for_id,omitempty" db:"qualifies_for_id"`

	// Flag-only extension fields.
	Metadata    *Metadata  `json:"metadata,omitempty" db:"metadata"`
	LastChecked *time.Time `json:"last_checked,omitempty" db:"last_checked"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasToken reports whether the frozen token set contains the given lemma.
func (c Competition) HasToken(token string) bool {
	for _, t := range c.Tokens {
		if t == token {
			return true
		}
	}
	return false
}

// ContainsTokens reports whether the competition's token set is a superset
// of the given tokens.
func (c Competition) ContainsTokens(tokens []string) bool {
	for _, token := range tokens {
		if !c.HasToken(token) {
			return false
		}
	}
	return true
}

// TokensContainedBy reports whether every competition token appears in the
// given set. Used to narrow ambiguous token searches.
func (c Competition) TokensContainedBy(tokens []string) bool {
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	for _, t := range c.Tokens {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}
