package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hellas-direct/intake-assistant/internal/model"
)

func TestClassifyCaseType(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        model.CaseType
	}{
		{"accident keyword", "Είχα ένα τρακάρισμα στο πάρκινγκ", model.CaseTypeAccident},
		{"broken glass", "Έσπασε το τζάμι του οδηγού", model.CaseTypeAccident},
		{"flat tire", "Έχω σκασμένο λάστιχο", model.CaseTypeRoadside},
		{"won't start", "Το αυτοκίνητο δεν παίρνει μπρος", model.CaseTypeRoadside},
		{"accident wins over roadside", "Σύγκρουση και μετά έσκασε το λάστιχο", model.CaseTypeAccident},
		{"upper case input", "ΕΙΧΑ ΕΝΑ ΑΤΎΧΗΜΑ", model.CaseTypeAccident},
		{"out of scope", "Θέλω να αλλάξω τη διεύθυνσή μου", model.CaseTypeOther},
		{"empty", "", model.CaseTypeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyCaseType(tt.description)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, ClassifyCaseType(tt.description), "classification is idempotent")
		})
	}
}

func TestNeedsGeolocationLink(t *testing.T) {
	assert.True(t, NeedsGeolocationLink("κάπου στην εθνική οδό"))
	assert.True(t, NeedsGeolocationLink("Αττική Οδός, έξοδος 8"))
	assert.True(t, NeedsGeolocationLink("δεν ξέρω ακριβώς"))
	assert.False(t, NeedsGeolocationLink("Πανεπιστημίου 10, Αθήνα"))
	assert.False(t, NeedsGeolocationLink(""))
}

func TestIsDifferentPrefecture(t *testing.T) {
	tests := []struct {
		location, destination string
		want                  bool
	}{
		{"Αθήνα", "Θεσσαλονίκη", true},
		{"Κέντρο Πάτρας... Πάτρα", "Λάρισα", true},
		{"Αθήνα, Σύνταγμα", "Αθήνα, Κηφισιά", false},
		{"Αθήνα", "Κάπου στα Γιάννενα", false},
		{"Βόλος", "Θεσσαλονίκη", false},
		{"Βόλος", "Ιωάννινα", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.location+"->"+tt.destination, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDifferentPrefecture(tt.location, tt.destination))
		})
	}
}

func TestIsFastTrackCase(t *testing.T) {
	assert.True(t, IsFastTrackCase("Με χτύπησαν από πίσω"))
	assert.True(t, IsFastTrackCase("ήταν παρκαρισμένο"))
	assert.False(t, IsFastTrackCase("μετωπική σύγκρουση"))
}

func TestHasFraudIndicators(t *testing.T) {
	tests := []struct {
		name                 string
		caller, holder, desc string
		want                 bool
	}{
		{"different caller and friend", "Γιώργος Παπάς", "Μαρία Κ", "το οδηγούσε ένας φίλος", true},
		{"different caller and acquaintance", "Γιώργος", "Μαρία", "ένας γνωστός μου", true},
		{"same person ignoring case", "ΜΑΡΊΑ Κ", "μαρία κ", "ένας φίλος", false},
		{"different caller no keyword", "Γιώργος", "Μαρία", "τράκαρα στη διασταύρωση", false},
		{"unknown holder", "Γιώργος", "", "ένας φίλος", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasFraudIndicators(tt.caller, tt.holder, tt.desc))
		})
	}
}

func TestDetermineMalfunctionAndResolution(t *testing.T) {
	tests := []struct {
		caseType    model.CaseType
		description string
		malfunction string
		resolution  string
	}{
		{model.CaseTypeRoadside, "έσκασε το λάστιχο", MalfunctionFlatTire, ResolutionTireChange},
		{model.CaseTypeRoadside, "άδειασε η μπαταρία", MalfunctionBattery, ResolutionJumpStart},
		{model.CaseTypeRoadside, "ξέχασα το κλειδί μέσα", MalfunctionLockedOut, ResolutionUnlock},
		{model.CaseTypeRoadside, "βγάζει καπνό η μηχανή", MalfunctionMechanical, ResolutionTowing},
		{model.CaseTypeAccident, "τρακάρισμα με λάστιχο", MalfunctionAccident, ResolutionInspection},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			m := DetermineMalfunction(tt.caseType, tt.description)
			assert.Equal(t, tt.malfunction, m)
			assert.Equal(t, tt.resolution, DetermineResolution(tt.caseType, m))
		})
	}
}

func TestDetermineTowingNeed(t *testing.T) {
	assert.True(t, DetermineTowingNeed(model.CaseTypeAccident, "σκασμένο λάστιχο"))
	assert.False(t, DetermineTowingNeed(model.CaseTypeRoadside, "Σκασμένο λάστιχο"))
	assert.False(t, DetermineTowingNeed(model.CaseTypeRoadside, "μπαταρία"))
	assert.True(t, DetermineTowingNeed(model.CaseTypeRoadside, "Μηχανική βλάβη"))
}

func TestNeedsSwornDeclaration(t *testing.T) {
	assert.True(t, NeedsSwornDeclaration("το αυτοκίνητο είναι χαμηλωμένο", ""))
	assert.True(t, NeedsSwornDeclaration("", "κόλλησα στην άμμο"))
	assert.True(t, NeedsSwornDeclaration("", "χωματόδρομος με λάσπη"))
	assert.False(t, NeedsSwornDeclaration("σκασμένο λάστιχο", "Αθήνα"))
}

func TestIsUndergroundLocation(t *testing.T) {
	assert.True(t, IsUndergroundLocation("στο υπόγειο γκαράζ της πολυκατοικίας"))
	assert.False(t, IsUndergroundLocation("στο δρόμο"))
}

func TestTags(t *testing.T) {
	inc := &model.Incident{
		CaseType:                   model.Ptr(model.CaseTypeAccident),
		IsFastCase:                 model.Ptr(true),
		IsDestinationOutPerfecture: model.Ptr(true),
		IsFraudCase:                model.Ptr(1),
	}
	assert.Equal(t, []string{TagAccident, TagFastTrack, TagRepatriation, TagFraudSuspected}, Tags(inc))
	assert.Nil(t, Tags(&model.Incident{}))
	assert.Nil(t, Tags(nil))
}
