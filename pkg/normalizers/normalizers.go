// Package normalizers provides the text normalization used to resolve club
// and competition names across heterogeneous sources.
package normalizers

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	Register("uppercase", Uppercase)
	Register("trim", Trim)
	Register("whitespaces", WhitespacesClean)
	Register("unaccent", Unaccent)
	Register("remove_symbols", RemoveSymbols)
	Register("remove_conjunctions", RemoveConjunctions)
	Register("remove_parenthesis", RemoveParenthesis)
	Register("nclub", func(s string) string { return NormalizeClubName(s, nil) })
	Register("ncompetition", NormalizeCompetitionName)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// Uppercase converts string to uppercase
func Uppercase(s string) string {
	return strings.ToUpper(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

var spaceRe = regexp.MustCompile(`\s+`)

// WhitespacesClean collapses runs of whitespace into single spaces
func WhitespacesClean(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

var unaccentTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Unaccent strips diacritics, ex: CORUÑA -> CORUNA
func Unaccent(s string) string {
	out, _, err := transform.String(unaccentTransformer, s)
	if err != nil {
		return s
	}
	return out
}

// RemoveSymbols replaces non-alphanumeric symbols with spaces
func RemoveSymbols(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		} else {
			result.WriteRune(' ')
		}
	}
	return WhitespacesClean(result.String())
}

// conjunctions covers the Spanish and Galician particles that carry no
// matching signal.
var conjunctions = map[string]struct{}{
	"EL": {}, "LA": {}, "LOS": {}, "LAS": {},
	"DE": {}, "DEL": {}, "DA": {}, "DAS": {}, "DO": {}, "DOS": {},
	"Y": {}, "E": {}, "A": {}, "O": {}, "EN": {},
}

// RemoveConjunctions drops connective words from a name
func RemoveConjunctions(s string) string {
	words := strings.Fields(s)
	kept := make([]string, 0, len(words))
	for _, word := range words {
		if _, ok := conjunctions[strings.ToUpper(Unaccent(word))]; !ok {
			kept = append(kept, word)
		}
	}
	return strings.Join(kept, " ")
}

var parenthesisRe = regexp.MustCompile(`\(([^)]*)\)`)

// RemoveParenthesis strips parenthetical content, ex: "PUEBLA (B)" -> "PUEBLA"
func RemoveParenthesis(s string) string {
	return WhitespacesClean(parenthesisRe.ReplaceAllString(s, ""))
}

// RemoveParenthesisKeepContent strips only the parenthesis characters,
// preserving what they wrap.
func RemoveParenthesisKeepContent(s string) string {
	return WhitespacesClean(parenthesisRe.ReplaceAllString(s, "$1"))
}
