package rules

import (
	"github.com/hellas-direct/intake-assistant/internal/model"
)

// Malfunction labels stored on the incident.
const (
	MalfunctionFlatTire   = "Σκασμένο λάστιχο"
	MalfunctionBattery    = "Εκφορτισμένη μπαταρία"
	MalfunctionLockedOut  = "Κλειδωμένο όχημα"
	MalfunctionMechanical = "Μηχανική βλάβη"
	MalfunctionAccident   = "Ατύχημα οδικής κυκλοφορίας"
)

// Resolution labels stored on the incident.
const (
	ResolutionTireChange = "Αλλαγή λαστίχου επί τόπου"
	ResolutionJumpStart  = "Jump start επί τόπου"
	ResolutionUnlock     = "Άνοιγμα κλειδαριάς"
	ResolutionTowing     = "Μεταφορά σε συνεργείο"
	ResolutionInspection = "Επιθεώρηση και επισκευή ζημιών"
)

// Tags attached to the case summary.
const (
	TagAccident       = "accident"
	TagRoadside       = "road-assistance"
	TagFastTrack      = "fast-track"
	TagRepatriation   = "repatriation"
	TagFraudSuspected = "fraud-suspected"
)

// ClassifyCaseType maps a free-text description to a case type. Accident
// vocabulary wins over roadside vocabulary when both occur.
func ClassifyCaseType(description string) model.CaseType {
	if AccidentKeywords.In(description) {
		return model.CaseTypeAccident
	}
	if RoadsideKeywords.In(description) {
		return model.CaseTypeRoadside
	}
	return model.CaseTypeOther
}

// NeedsGeolocationLink reports whether the location is too vague to dispatch
// to without a precise fix.
func NeedsGeolocationLink(location string) bool {
	return VagueLocationMarkers.In(location)
}

// Prefecture returns the first known prefecture named in text.
func Prefecture(text string) (string, bool) {
	return Prefectures.First(text)
}

// IsDifferentPrefecture is true only when both sides name a known
// prefecture and the two differ. Unknown places never trigger it.
func IsDifferentPrefecture(location, destination string) bool {
	from, ok := Prefecture(location)
	if !ok {
		return false
	}
	to, ok := Prefecture(destination)
	if !ok {
		return false
	}
	return from != to
}

// IsFastTrackCase reports fast-track vocabulary. Callers evaluate it for
// accident cases only.
func IsFastTrackCase(description string) bool {
	return FastTrackKeywords.In(description)
}

// HasFraudIndicators requires both a caller who is not the policy holder and
// acquaintance language in the description. An unknown holder is not a
// mismatch.
func HasFraudIndicators(callerName, policyHolderName, description string) bool {
	caller := Normalize(callerName)
	holder := Normalize(policyHolderName)
	if caller == "" || holder == "" || caller == holder {
		return false
	}
	return AcquaintanceKeywords.In(description)
}

// IsInsuredPerson reports whether the caller is the policy holder.
func IsInsuredPerson(callerName, policyHolderName string) bool {
	return Normalize(callerName) == Normalize(policyHolderName)
}

// DetermineMalfunction labels the probable fault.
func DetermineMalfunction(caseType model.CaseType, description string) string {
	if caseType != model.CaseTypeRoadside {
		return MalfunctionAccident
	}
	switch {
	case TireKeywords.In(description):
		return MalfunctionFlatTire
	case BatteryKeywords.In(description):
		return MalfunctionBattery
	case KeyKeywords.In(description):
		return MalfunctionLockedOut
	default:
		return MalfunctionMechanical
	}
}

// DetermineResolution maps a malfunction label to the expected fix.
func DetermineResolution(caseType model.CaseType, malfunction string) string {
	if caseType != model.CaseTypeRoadside {
		return ResolutionInspection
	}
	switch malfunction {
	case MalfunctionFlatTire:
		return ResolutionTireChange
	case MalfunctionBattery:
		return ResolutionJumpStart
	case MalfunctionLockedOut:
		return ResolutionUnlock
	default:
		return ResolutionTowing
	}
}

// DetermineTowingNeed is always true for accidents. Roadside cases need a tow
// unless the fault can be fixed on the spot.
func DetermineTowingNeed(caseType model.CaseType, description string) bool {
	if caseType == model.CaseTypeAccident {
		return true
	}
	return !OnSpotRepairs.In(description)
}

// NeedsSwornDeclaration reports lowered-vehicle or unstable-terrain markers
// in either the description or the location.
func NeedsSwornDeclaration(description, location string) bool {
	for _, text := range []string{description, location} {
		if LoweredVehicleMarkers.In(text) || UnstableTerrainMarkers.In(text) {
			return true
		}
	}
	return false
}

// IsUndergroundLocation reports a vehicle in an underground car park.
func IsUndergroundLocation(location string) bool {
	return UndergroundMarkers.In(location)
}

// Tags derives the summary tags from the incident's persisted flags.
func Tags(inc *model.Incident) []string {
	if inc == nil {
		return nil
	}
	var tags []string
	switch inc.Type() {
	case model.CaseTypeAccident:
		tags = append(tags, TagAccident)
	case model.CaseTypeRoadside:
		tags = append(tags, TagRoadside)
	}
	if model.Deref(inc.IsFastCase) {
		tags = append(tags, TagFastTrack)
	}
	if model.Deref(inc.IsDestinationOutPerfecture) {
		tags = append(tags, TagRepatriation)
	}
	if model.Deref(inc.IsFraudCase) > 0 {
		tags = append(tags, TagFraudSuspected)
	}
	return tags
}
