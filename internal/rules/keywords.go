// Package rules holds the keyword-driven business rules that classify an
// incident and derive its special conditions. Every function is pure.
package rules

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Keywords is a fixed list of literal terms matched as case-insensitive
// substrings. Order matters where the first match is reported.
type Keywords []string

// Keyword sets. The terms are matched literally; no stemming.
var (
	AccidentKeywords = Keywords{"ατύχημα", "τρακάρισμα", "σύγκρουση", "τράκαρα", "χτύπημα", "ζημιά", "κρύσταλλο", "τζάμι"}
	RoadsideKeywords = Keywords{"λάστιχο", "μπαταρία", "βλάβη", "δεν παίρνει", "κολλημένο", "κλειδί", "καύσιμα"}

	VagueLocationMarkers = Keywords{"εθνική", "αττική", "δεν ξέρω", "κάπου", "περίπου"}
	Prefectures          = Keywords{"αθήνα", "θεσσαλονίκη", "πάτρα", "ηράκλειο", "λάρισα"}
	FastTrackKeywords    = Keywords{"πίσω", "παρκαρισμένο", "στάθμευση", "κρύσταλλο", "τζάμι"}
	AcquaintanceKeywords = Keywords{"φίλος", "γνωστός"}

	LoweredVehicleMarkers  = Keywords{"χαμηλωμένο"}
	UnstableTerrainMarkers = Keywords{"άμμο", "λάσπη", "ασταθές"}
	UndergroundMarkers     = Keywords{"υπόγεια", "υπόγειο", "γκαράζ"}

	TireKeywords    = Keywords{"λάστιχο"}
	BatteryKeywords = Keywords{"μπαταρία"}
	KeyKeywords     = Keywords{"κλειδί"}
	OnSpotRepairs   = Keywords{"λάστιχο", "μπαταρία", "κλειδί"}
)

// Normalize lower-cases text with Greek rules so final sigma and accented
// capitals fold the same way the keyword lists are written.
func Normalize(s string) string {
	return cases.Lower(language.Greek).String(strings.TrimSpace(s))
}

// In reports whether any keyword occurs in text.
func (k Keywords) In(text string) bool {
	_, ok := k.First(text)
	return ok
}

// First returns the first keyword, in list order, that occurs in text.
func (k Keywords) First(text string) (string, bool) {
	lowered := Normalize(text)
	if lowered == "" {
		return "", false
	}
	for _, kw := range k {
		if strings.Contains(lowered, kw) {
			return kw, true
		}
	}
	return "", false
}
