package ranking

import "strings"

// stateNames is the closed list the state patterns accept: the 50 US
// states plus DC, Puerto Rico, the Virgin Islands, and Guam. Keys are
// lowercase with single spaces.
var stateNames = map[string]struct{}{
	"alabama": {}, "alaska": {}, "arizona": {}, "arkansas": {},
	"california": {}, "colorado": {}, "connecticut": {}, "delaware": {},
	"florida": {}, "georgia": {}, "hawaii": {}, "idaho": {},
	"illinois": {}, "indiana": {}, "iowa": {}, "kansas": {},
	"kentucky": {}, "louisiana": {}, "maine": {}, "maryland": {},
	"massachusetts": {}, "michigan": {}, "minnesota": {}, "mississippi": {},
	"missouri": {}, "montana": {}, "nebraska": {}, "nevada": {},
	"new hampshire": {}, "new jersey": {}, "new mexico": {}, "new york": {},
	"north carolina": {}, "north dakota": {}, "ohio": {}, "oklahoma": {},
	"oregon": {}, "pennsylvania": {}, "rhode island": {}, "south carolina": {},
	"south dakota": {}, "tennessee": {}, "texas": {}, "utah": {},
	"vermont": {}, "virginia": {}, "washington": {}, "west virginia": {},
	"wisconsin": {}, "wyoming": {},
	"district of columbia": {}, "puerto rico": {}, "virgin islands": {},
	"guam": {},
}

// normalizeStateName lowercases and collapses whitespace runs.
func normalizeStateName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// IsStateName reports whether s names a US state or territory from the
// closed list, case-insensitively and tolerant of extra spaces.
func IsStateName(s string) bool {
	_, ok := stateNames[normalizeStateName(s)]
	return ok
}

// CanonicalStateName returns the title-cased form of a state name, or ""
// when the name is not in the closed list.
func CanonicalStateName(s string) string {
	norm := normalizeStateName(s)
	if _, ok := stateNames[norm]; !ok {
		return ""
	}
	words := strings.Fields(norm)
	for i, w := range words {
		if w == "of" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
