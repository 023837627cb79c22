package normalizers

import (
	"strings"
)

// ClubLookup reports whether a name fragment resolves to a known club. It is
// injected so the sponsor-split heuristic can consult the store without this
// package knowing about persistence.
type ClubLookup func(fragment string) bool

// entityTitles are the legal-form and title prefixes clubs carry in official
// listings but never in common usage.
var entityTitles = []string{
	"SOCIEDAD CULTURAL Y RECREATIVA",
	"SOCIEDAD DEPORTIVA DE REMO",
	"CLUB DEPORTIVO DE REMO",
	"ASOCIACION DEPORTIVA",
	"SOCIEDAD DEPORTIVA",
	"CIRCULO CULTURAL DEPORTIVO",
	"CLUB ATLETICO",
	"CLUB DE REGATAS",
	"CLUB DE REMO NAUTICO",
	"CLUB DE REMO",
	"CLUB DO MAR",
	"CLUB DE MAR",
	"CLUB NAUTICO",
	"CLUB REMO",
	"ARRAUN ELKARTEA",
	"ARRAUN ELKARTEKO",
	"ARRAUN TALDEA",
	"ELKARTEA",
}

// NormalizeClubName uppercases a raw club label, strips parenthetical
// content and legal-form titles, then applies the sponsor-split heuristic.
// lookup may be nil, in which case hyphenated names are left untouched.
func NormalizeClubName(raw string, lookup ClubLookup) string {
	name := WhitespacesClean(Uppercase(raw))
	name = RemoveParenthesis(name)
	name = stripTitles(name)
	name = removeClubSponsor(name, lookup)
	return WhitespacesClean(name)
}

func stripTitles(name string) string {
	for _, title := range entityTitles {
		name = strings.ReplaceAll(name, title, " ")
	}
	return WhitespacesClean(name)
}

// removeClubSponsor handles "CLUB - SPONSOR" composites: keep the half that
// resolves to a known club, join both when both resolve (a club-sponsor pair
// that races under the composite name), leave the name alone when neither
// does.
func removeClubSponsor(name string, lookup ClubLookup) string {
	if lookup == nil || !strings.Contains(name, "-") {
		return name
	}

	parts := strings.SplitN(name, "-", 2)
	first, second := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

	firstIsClub := first != "" && lookup(first)
	secondIsClub := second != "" && lookup(second)

	switch {
	case firstIsClub && secondIsClub:
		return first + " - " + second
	case firstIsClub:
		return first
	case secondIsClub:
		return second
	default:
		return name
	}
}

// IsBranchClub reports whether a raw club label names a branch (reserve)
// crew with the given letter suffix, ex: "CR CHAPELA B".
func IsBranchClub(name, letter string) bool {
	clean := WhitespacesClean(Uppercase(name))
	return strings.HasSuffix(clean, " "+letter)
}

// BranchLetter extracts the branch letter (B/C/D) from a raw club label, or
// returns empty for a main crew.
func BranchLetter(name string) string {
	for _, letter := range []string{"B", "C", "D"} {
		if IsBranchClub(name, letter) {
			return letter
		}
	}
	return ""
}

// TrimBranch removes a trailing branch letter from a club label.
func TrimBranch(name string) string {
	for _, letter := range []string{"B", "C", "D"} {
		name = strings.TrimSuffix(name, " "+letter)
	}
	return name
}
