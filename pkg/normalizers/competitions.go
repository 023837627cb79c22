package normalizers

import (
	"regexp"
	"sort"
	"strings"
)

// synonyms maps variant spellings (Galician, Basque, Catalan) to the
// canonical token used for storage and matching.
var synonyms = map[string]string{
	"BANDEIRA":    "BANDERA",
	"IKURRIÑA":    "BANDERA",
	"IKURRINA":    "BANDERA",
	"TROFEU":      "TROFEO",
	"TROFEOA":     "TROFEO",
	"CONCELLO":    "AYUNTAMIENTO",
	"CONCEJO":     "AYUNTAMIENTO",
	"UDALA":       "AYUNTAMIENTO",
	"UDALETXEA":   "AYUNTAMIENTO",
	"ESTROPADA":   "REGATA",
	"ESTROPADAK":  "REGATA",
	"FEMENINA":    "FEMENINO",
	"FEMININA":    "FEMENINO",
	"EMAKUMEEN":   "FEMENINO",
	"MASCULINA":   "MASCULINO",
	"GIZONEZKOEN": "MASCULINO",
}

// genderMarkers are dropped from competition names before matching; gender
// is carried as a structured field, not in the name.
var genderMarkers = map[string]struct{}{
	"FEMENINO": {}, "MASCULINO": {}, "MIXTO": {},
}

// NormalizeSynonyms rewrites every variant word to its canonical form.
func NormalizeSynonyms(name string) string {
	words := strings.Fields(Uppercase(name))
	for i, word := range words {
		if canonical, ok := synonyms[word]; ok {
			words[i] = canonical
		} else if canonical, ok := synonyms[Unaccent(word)]; ok {
			words[i] = canonical
		}
	}
	return strings.Join(words, " ")
}

// NormalizeCompetitionName prepares a scraped competition name for matching:
// uppercase, parenthesis content preserved, edition ordinals removed,
// synonym variants rewritten and gender markers dropped.
func NormalizeCompetitionName(name string) string {
	name = RemoveParenthesisKeepContent(Uppercase(name))
	name = RemoveRomanOrdinals(name)
	name = NormalizeSynonyms(name)

	words := strings.Fields(name)
	kept := make([]string, 0, len(words))
	for _, word := range words {
		if _, ok := genderMarkers[Unaccent(word)]; !ok {
			kept = append(kept, word)
		}
	}
	return WhitespacesClean(strings.Join(kept, " "))
}

var romanRe = regexp.MustCompile(`^M{0,4}(CM|CD|D?C{0,3})(XC|XL|L?X{0,3})(IX|IV|V?I{0,3})$`)

// IsRoman reports whether a word is a roman numeral.
func IsRoman(word string) bool {
	return word != "" && romanRe.MatchString(strings.ToUpper(word))
}

// RemoveRomanOrdinals drops roman edition ordinals from a name, ex:
// "XXXIX BANDERA PETRONOR" -> "BANDERA PETRONOR".
func RemoveRomanOrdinals(name string) string {
	words := strings.Fields(name)
	kept := make([]string, 0, len(words))
	for _, word := range words {
		if !IsRoman(strings.TrimSuffix(word, "ª")) {
			kept = append(kept, word)
		}
	}
	return strings.Join(kept, " ")
}

var romanValues = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

// IntToRoman renders an edition number the way race names print it.
func IntToRoman(n int) string {
	if n <= 0 {
		return ""
	}
	var b strings.Builder
	for _, rv := range romanValues {
		for n >= rv.value {
			b.WriteString(rv.symbol)
			n -= rv.value
		}
	}
	return b.String()
}

// Lemmatize reduces a competition name to its set of lemmas: diacritics and
// symbols stripped, conjunctions and roman ordinals dropped, light Spanish
// plural stemming, lowercase. The result is sorted for determinism.
func Lemmatize(name string) []string {
	name = NormalizeSynonyms(RemoveParenthesisKeepContent(name))
	name = RemoveRomanOrdinals(name)
	name = RemoveConjunctions(RemoveSymbols(Unaccent(name)))

	seen := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(name)) {
		lemma := stem(word)
		if lemma == "" {
			continue
		}
		seen[lemma] = struct{}{}
	}

	lemmas := make([]string, 0, len(seen))
	for lemma := range seen {
		lemmas = append(lemmas, lemma)
	}
	sort.Strings(lemmas)
	return lemmas
}

// stem applies light Spanish plural reduction; full morphological analysis
// buys nothing for proper-noun-heavy race names.
func stem(word string) string {
	switch {
	case len(word) > 4 && strings.HasSuffix(word, "es"):
		return word[:len(word)-2]
	case len(word) > 3 && strings.HasSuffix(word, "s"):
		return word[:len(word)-1]
	default:
		return word
	}
}

// TokenExpansions are the synonym groups used to widen token searches. An
// empty alternative means the token may be dropped entirely.
var TokenExpansions = [][]string{
	{"trofeo", "bandera", "regata"},
	{"trainera", ""},
	{"femenino", ""},
	{"masculino", ""},
	{"ayuntamiento", ""},
}

// ExpandLemmas produces the cross-product of token-set variants for every
// expansion group that intersects the input. Widens a token search without
// losing precision from a single wrong word choice: a race historically
// called "Trofeo X" may be stored as "Bandera X".
func ExpandLemmas(tokens []string, groups [][]string) [][]string {
	variants := [][]string{append([]string(nil), tokens...)}

	for _, group := range groups {
		members := make(map[string]struct{}, len(group))
		for _, alt := range group {
			if alt != "" {
				members[alt] = struct{}{}
			}
		}

		var next [][]string
		for _, variant := range variants {
			if !intersects(variant, members) {
				next = append(next, variant)
				continue
			}
			for _, alt := range group {
				next = append(next, replaceGroup(variant, members, alt))
			}
		}
		variants = next
	}

	return dedupeVariants(variants)
}

func intersects(tokens []string, members map[string]struct{}) bool {
	for _, token := range tokens {
		if _, ok := members[token]; ok {
			return true
		}
	}
	return false
}

// replaceGroup swaps every group member in tokens for alt, dropping them
// when alt is empty.
func replaceGroup(tokens []string, members map[string]struct{}, alt string) []string {
	out := make([]string, 0, len(tokens))
	replaced := false
	for _, token := range tokens {
		if _, ok := members[token]; ok {
			if alt != "" && !replaced {
				out = append(out, alt)
				replaced = true
			}
			continue
		}
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}

func dedupeVariants(variants [][]string) [][]string {
	seen := make(map[string]struct{}, len(variants))
	out := make([][]string, 0, len(variants))
	for _, variant := range variants {
		key := strings.Join(variant, "|")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, variant)
	}
	return out
}

// IsMemorial reports whether a race name is a memorial variant; those are
// skipped during competition resolution unless no other name exists.
func IsMemorial(name string) bool {
	return strings.Contains(Unaccent(Uppercase(name)), "MEMORIAL")
}

// IsPlayOff reports whether a race name denotes a play-off bracket, which
// races leagueless by convention.
func IsPlayOff(name string) bool {
	clean := RemoveSymbols(Unaccent(Uppercase(name)))
	return strings.Contains(clean, "PLAY OFF") || strings.Contains(clean, "PLAYOFF")
}
