package flow

import (
	"fmt"
	"strings"
)

// Caller-facing replies. All text the caller sees is Greek.
const (
	msgGreeting      = "Καλησπέρα! Είμαι η εικονική βοηθός της Hellas Direct. Πώς μπορώ να σας βοηθήσω σήμερα;"
	msgNotUnderstood = "Δεν κατάλαβα το αίτημά σας. Μπορείτε να το επαναλάβετε;"
	msgInternalError = "Υπήρξε ένα εσωτερικό λάθος. Παρακαλώ δοκιμάστε ξανά αργότερα."

	msgAskRegistration = "Παρακαλώ δώστε μου τον αριθμό κυκλοφορίας του οχήματός σας."
	msgNewVehicle      = "Καταχώρησα το όχημα με αριθμό κυκλοφορίας %s. Μπορείτε να μου πείτε το ονοματεπώνυμό σας;"
	msgPolicyInactive  = "Το ασφαλιστήριο συμβόλαιο για το όχημα με αριθμό κυκλοφορίας %s δεν είναι ενεργό. Παρακαλώ επικοινωνήστε με την εξυπηρέτηση πελατών."
	msgPolicyActive    = "Βρήκα το ενεργό ασφαλιστήριό σας για το όχημα με αριθμό κυκλοφορίας %s. Μπορείτε να μου πείτε το ονοματεπώνυμό σας;"

	msgAskName         = "Παρακαλώ δώστε μου το ονοματεπώνυμό σας."
	msgMissingIdentity = "Προέκυψε ένα σφάλμα. Απαιτούμενες πληροφορίες (αριθμός κυκλοφορίας ή αναγνωριστικό χρήστη) δεν είναι διαθέσιμες."
	msgThanksNewUser   = "Ευχαριστώ %s. Καταχώρησα τα στοιχεία σας και η υπόθεσή σας έχει το αναγνωριστικό %s. Μπορείτε να μου περιγράψετε το πρόβλημα που αντιμετωπίζετε;"
	msgThanksInsured   = "Ευχαριστώ %s. Η υπόθεσή σας έχει το αναγνωριστικό %s. Μπορείτε να μου περιγράψετε το πρόβλημα που αντιμετωπίζετε;"
	msgThanksOnBehalf  = "Ευχαριστώ %s. Καταλαβαίνω ότι καλείτε για την ασφάλιση του %s. Η υπόθεσή σας έχει το αναγνωριστικό %s. Μπορείτε να μου περιγράψετε το πρόβλημα που αντιμετωπίζετε;"

	msgAskDescription = "Παρακαλώ περιγράψτε μου το πρόβλημα που αντιμετωπίζετε."
	msgOutOfScope     = "Λυπάμαι, αλλά μπορώ να βοηθήσω μόνο με ατυχήματα και οδική βοήθεια. Για άλλα θέματα, παρακαλώ επικοινωνήστε με το τμήμα εξυπηρέτησης πελατών στο 210-1234567."
	msgAccident       = "Καταλαβαίνω ότι έχετε ατύχημα. Θα συλλέξω τις απαραίτητες πληροφορίες για να σας βοηθήσω."
	msgRoadside       = "Καταλαβαίνω ότι χρειάζεστε οδική βοήθεια. Θα συλλέξω τις απαραίτητες πληροφορίες για να σας βοηθήσω."

	msgAskLocation          = "Πού ακριβώς βρίσκεστε; Παρακαλώ δώστε μου όσο το δυνατόν πιο ακριβή τοποθεσία."
	msgLocationWithLink     = "Καταλαβαίνω τη τοποθεσία. Για να είμαι πιο ακριβής, μπορείτε να μου στείλετε την ακριβή τοποθεσία σας μέσω αυτού του συνδέσμου: %s\n\nΤώρα, πού θα θέλατε να μεταφερθεί το όχημά σας;"
	msgLocationNoLink       = "Καταλαβαίνω τη τοποθεσία. Πού θα θέλατε να μεταφερθεί το όχημά σας;"
	msgAskDestination       = "Πού θα θέλατε να μεταφερθεί το όχημά σας;"
	msgDestinationConfirmed = "Ευχαριστώ για τις πληροφορίες. Τώρα θα χρειαστώ μερικές επιπλέον λεπτομέρειες."

	msgAskInjuries    = "Υπάρχουν τραυματισμοί ή μόνο υλικές ζημίες;"
	msgAskMalfunction = "Τι είδους βλάβη αντιμετωπίζετε; (π.χ. σκασμένο λάστιχο, μπαταρία, μηχανικό πρόβλημα)"

	noticeCrossPrefecture = "Η μεταφορά σε διαφορετικό νομό θα χρειαστεί 3-5 εργάσιμες ημέρες μετά την αρχική μεταφορά."
	noticeGeolocation     = "Θα σας στείλω σύνδεσμο γεωεντοπισμού: %s"
	noticeDeclaration     = "Για αυτήν την περίπτωση θα χρειαστείτε υπεύθυνη δήλωση. Μπορείτε να τη συμπληρώσετε εδώ: %s"
	noticeUnderground     = "Αφού το όχημα βρίσκεται σε υπόγειο χώρο, θα χρειαστείτε ιδιωτική υπηρεσία για να το μετακινήσετε στο δρόμο."
	noticeSecondTow       = "Βλέπουμε ότι το όχημα έχει ήδη μεταφερθεί σε συνεργείο σε προηγούμενη υπόθεση. Ένας εκπρόσωπός μας θα επιβεβαιώσει τη νέα μεταφορά."
	msgRulesContinue      = "Συνεχίζουμε με την επεξεργασία της υπόθεσης..."
	msgRulesAllChecked    = "Όλες οι συνθήκες ελέγχθηκαν. Συνεχίζουμε με την επεξεργασία της υπόθεσης..."

	msgFinalizeNoCase    = "Δεν βρέθηκε αναγνωριστικό υπόθεσης για την οριστικοποίηση."
	msgFinalizeNotFound  = "Δεν ήταν δυνατή η εύρεση της υπόθεσης για οριστικοποίηση."
	msgFinalizeFailed    = "Παρουσιάστηκε πρόβλημα κατά την οριστικοποίηση της υπόθεσης. Παρακαλώ δοκιμάστε ξανά."
	msgFinalizeHeader    = "Ευχαριστώ %s. Η υπόθεσή σας (ID: %s) έχει ενημερωθεί. "
	msgFinalizeAccident  = "Το τμήμα ατυχημάτων θα επικοινωνήσει μαζί σας σύντομα."
	msgFinalizeFastTrack = " Αφού πρόκειται για fast-track περίπτωση, η διαδικασία θα ολοκληρωθεί εντός 24 ωρών."
	msgFinalizeRoadside  = "Η οδική βοήθεια θα φτάσει στην τοποθεσία σας σύντομα."
	msgFinalizeGarage    = " Προτείνουμε το συνεργείο: %s"
)

// rulesMessage joins triggered notices with a blank line.
func rulesMessage(notices []string) string {
	if len(notices) == 0 {
		return msgRulesAllChecked
	}
	return strings.Join(notices, "\n\n") + "\n\n" + msgRulesContinue
}

// caseSummary is the deterministic summary stored on a finalized incident.
func caseSummary(caseType, customer, location, destination, description, malfunction string, tags []string) string {
	s := fmt.Sprintf("Case %s for %s. Location: %s. Destination: %s. Full Description: %s. Malfunction: %s.",
		caseType, customer, location, destination, description, malfunction)
	if len(tags) > 0 {
		s += " Tags: " + strings.Join(tags, ", ")
	}
	return s
}
