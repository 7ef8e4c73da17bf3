package utils

import (
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// DefaultFuzzyThreshold is the minimum similarity ratio for a fuzzy name match.
const DefaultFuzzyThreshold = 0.85

type MatchStage string

const (
	MatchNone      MatchStage = ""
	MatchExact     MatchStage = "exact"
	MatchSubstring MatchStage = "substring"
	MatchFuzzy     MatchStage = "fuzzy"
)

// Normalize trims, collapses inner whitespace, lowercases and strips diacritics.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var buf []rune
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		buf = append(buf, r)
	}
	return strings.Join(strings.Fields(string(buf)), " ")
}

// NameKey is the roster index key of a person.
func NameKey(name, surname string) string {
	return Normalize(name + " " + surname)
}

// DisplayName title-cases a full name for responses.
func DisplayName(name, surname string) string {
	full := strings.Join(strings.Fields(name+" "+surname), " ")
	return cases.Title(language.Spanish).String(strings.ToLower(full))
}

// Similarity is the difflib ratio between two normalized strings.
func Similarity(a, b string) float64 {
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}

// ResolveName looks name/surname up in roster, whose keys must already be
// normalized. Stages run in order: exact key, unique containment, unique fuzzy
// match at or above threshold. A stage with several candidates ends the search
// without a match; only an empty stage falls through to the next one.
func ResolveName[T any](name, surname string, roster map[string]T, threshold float64) (T, string, MatchStage) {
	var zero T
	n := Normalize(name)
	s := Normalize(surname)
	if n == "" {
		return zero, "", MatchNone
	}
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}

	key := n
	if s != "" {
		key = n + " " + s
	}
	if v, ok := roster[key]; ok {
		return v, key, MatchExact
	}

	var found []string
	for k := range roster {
		if !strings.Contains(k, n) {
			continue
		}
		if s != "" && !strings.Contains(k, s) {
			continue
		}
		found = append(found, k)
	}
	switch len(found) {
	case 1:
		return roster[found[0]], found[0], MatchSubstring
	case 0:
	default:
		return zero, "", MatchNone
	}

	found = found[:0]
	for k := range roster {
		if Similarity(key, k) >= threshold {
			found = append(found, k)
		}
	}
	if len(found) == 1 {
		return roster[found[0]], found[0], MatchFuzzy
	}
	return zero, "", MatchNone
}
