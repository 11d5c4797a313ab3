package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellas-direct/intake-assistant/internal/model"
	"github.com/hellas-direct/intake-assistant/internal/rules"
	"github.com/hellas-direct/intake-assistant/internal/store"
	"github.com/hellas-direct/intake-assistant/pkg/logger"
	"github.com/hellas-direct/intake-assistant/pkg/metrics"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type stubGarages struct{}

func (stubGarages) Recommend(location string) string {
	return "Συνεργείο Δοκιμής - " + location
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.IncidentEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e model.IncidentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []model.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type failingCreate struct {
	store.Gateway
}

func (failingCreate) CreateIncident(context.Context, string, model.IncidentPatch) (*model.Incident, error) {
	return nil, errors.New("connection reset")
}

type panickingLookup struct {
	store.Gateway
}

func (panickingLookup) GetUserByRegistrationNumber(context.Context, string) (*model.User, error) {
	panic("boom")
}

func newTestOrchestrator(t *testing.T, gw store.Gateway) (*Orchestrator, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	o := New(gw, stubGarages{}, pub, logger.NewNop(), Options{
		GeolocationURL:     "https://geolocation.hellasdirect.gr/",
		DeclarationBaseURL: "https://sign.hellasdirect.gr",
		Now:                func() time.Time { return testNow },
	})
	return o, pub
}

func newMemoryStore() *store.MemoryStore {
	return store.NewMemoryStore().WithClock(func() time.Time { return testNow })
}

func seedActiveUser(t *testing.T, ms *store.MemoryStore, reg, name string) *model.User {
	t.Helper()
	u, err := ms.CreateUser(context.Background(), model.UserPatch{
		FullName:           model.Ptr(name),
		RegistrationNumber: model.Ptr(reg),
		StartingDate:       model.Ptr(testNow.AddDate(0, 0, -10)),
		EndingAt:           model.Ptr(testNow.AddDate(0, 0, 10)),
	})
	require.NoError(t, err)
	return u
}

func seedIncident(t *testing.T, ms *store.MemoryStore, userID string, patch model.IncidentPatch) *model.Incident {
	t.Helper()
	inc, err := ms.CreateIncident(context.Background(), userID, patch)
	require.NoError(t, err)
	return inc
}

func turn(tag string, params model.Params) Turn {
	return Turn{Tag: tag, SessionID: "projects/p/sessions/s1", Params: params, CorrelationID: "corr-1"}
}

func TestCollectRegistrationCreatesUser(t *testing.T) {
	ms := newMemoryStore()
	o, _ := newTestOrchestrator(t, ms)

	reply := o.HandleStep(context.Background(), turn(StepCollectRegistration, model.Params{
		model.ParamRegistrationNumber: "ΑΒΓ1234",
	}))

	require.False(t, reply.Failed)
	require.Len(t, reply.Messages, 1)
	assert.Contains(t, reply.Messages[0], "ΑΒΓ1234")
	assert.Contains(t, reply.Messages[0], "ονοματεπώνυμό σας")
	assert.Equal(t, true, reply.Params[model.ParamIsNewUser])
	assert.Equal(t, false, reply.Params[model.ParamPolicyActive])

	v, present := reply.Params[model.ParamPolicyHolderName]
	assert.True(t, present)
	assert.Nil(t, v)

	user, err := ms.GetUserByRegistrationNumber(context.Background(), "ΑΒΓ1234")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, user.ID, reply.Params[model.ParamUserID])
	assert.Equal(t, user.ID, reply.Params[model.ParamPolicyID])
	assert.Nil(t, user.EndingAt)
}

func TestCollectRegistrationRoundTrip(t *testing.T) {
	ms := newMemoryStore()
	seeded := seedActiveUser(t, ms, "ΙΚΑ5678", "Μαρία Παπαδοπούλου")
	o, _ := newTestOrchestrator(t, ms)

	params := model.Params{model.ParamRegistrationNumber: "ΙΚΑ5678"}
	first := o.HandleStep(context.Background(), turn(StepCollectRegistration, params))
	second := o.HandleStep(context.Background(), turn(StepCollectRegistration, params))

	assert.Equal(t, seeded.ID, first.Params[model.ParamUserID])
	assert.Equal(t, first.Params[model.ParamUserID], second.Params[model.ParamUserID])
	assert.Equal(t, true, first.Params[model.ParamPolicyActive])
	assert.Equal(t, "Μαρία Παπαδοπούλου", first.Params[model.ParamPolicyHolderName])
	assert.Contains(t, first.Messages[0], "ενεργό ασφαλιστήριό")

	_, err := ms.CreateUser(context.Background(), model.UserPatch{RegistrationNumber: model.Ptr("ΙΚΑ5678")})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestCollectRegistrationInactivePolicy(t *testing.T) {
	ms := newMemoryStore()
	_, err := ms.CreateUser(context.Background(), model.UserPatch{
		FullName:           model.Ptr("Γιώργος Νικολάου"),
		RegistrationNumber: model.Ptr("ΖΗΘ9012"),
		StartingDate:       model.Ptr(testNow.AddDate(-1, 0, 0)),
		EndingAt:           model.Ptr(testNow.AddDate(0, 0, -1)),
	})
	require.NoError(t, err)
	o, _ := newTestOrchestrator(t, ms)

	reply := o.HandleStep(context.Background(), turn(StepCollectRegistration, model.Params{
		model.ParamRegistrationNumber: "ΖΗΘ9012",
	}))

	assert.False(t, reply.Failed)
	assert.Contains(t, reply.Messages[0], "δεν είναι ενεργό")
	assert.Empty(t, reply.Params)
}

func TestCollectRegistrationReassignsExistingCase(t *testing.T) {
	ms := newMemoryStore()
	other := seedActiveUser(t, ms, "ΧΧΧ0000", "Άλλος")
	inc := seedIncident(t, ms, other.ID, model.IncidentPatch{})
	owner := seedActiveUser(t, ms, "ΚΛΜ1111", "Νίκος")
	o, pub := newTestOrchestrator(t, ms)

	reply := o.HandleStep(context.Background(), turn(StepCollectRegistration, model.Params{
		model.ParamRegistrationNumber: "ΚΛΜ1111",
		model.ParamCaseID:             inc.ID,
	}))
	require.False(t, reply.Failed)

	got, err := ms.GetIncidentByID(context.Background(), inc.ID)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, got.UserID)
	assert.Equal(t, "ΚΛΜ1111", model.Deref(got.RegistrationNumber))
	assert.Contains(t, pub.types(), model.EventTypeReassigned)
}

func TestCollectCustomerName(t *testing.T) {
	t.Run("new user gets an incident", func(t *testing.T) {
		ms := newMemoryStore()
		o, pub := newTestOrchestrator(t, ms)
		reg := o.HandleStep(context.Background(), turn(StepCollectRegistration, model.Params{
			model.ParamRegistrationNumber: "ΝΕΟ1000",
		}))
		params := model.Params{model.ParamRegistrationNumber: "ΝΕΟ1000"}.Merge(reg.Params)
		params[model.ParamCustomerName] = "Ελένη Κωστά"

		reply := o.HandleStep(context.Background(), turn(StepCollectCustomerName, params))

		require.False(t, reply.Failed)
		caseID, _ := reply.Params[model.ParamCaseID].(string)
		require.NotEmpty(t, caseID)
		assert.Equal(t, true, reply.Params[model.ParamIsInsuredPerson])
		assert.Contains(t, reply.Messages[0], "Καταχώρησα τα στοιχεία σας")
		assert.Contains(t, reply.Messages[0], caseID)

		user, err := ms.GetUserByRegistrationNumber(context.Background(), "ΝΕΟ1000")
		require.NoError(t, err)
		assert.Equal(t, "Ελένη Κωστά", user.DisplayName())

		inc, err := ms.GetIncidentByID(context.Background(), caseID)
		require.NoError(t, err)
		require.NotNil(t, inc)
		assert.Equal(t, user.ID, inc.UserID)
		assert.Equal(t, model.CaseTypeUnclassified, inc.Type())
		assert.False(t, model.Deref(inc.IsFastCase))
		assert.Equal(t, []model.EventType{model.EventTypeCreated}, pub.types())
	})

	t.Run("caller on behalf of the holder", func(t *testing.T) {
		ms := newMemoryStore()
		u := seedActiveUser(t, ms, "ΠΡΣ2222", "Δημήτρης Αλεξίου")
		o, _ := newTestOrchestrator(t, ms)

		reply := o.HandleStep(context.Background(), turn(StepCollectCustomerName, model.Params{
			model.ParamRegistrationNumber: "ΠΡΣ2222",
			model.ParamUserID:             u.ID,
			model.ParamPolicyHolderName:   "Δημήτρης Αλεξίου",
			model.ParamCustomerName:       "Σοφία Αλεξίου",
		}))

		require.False(t, reply.Failed)
		assert.Equal(t, false, reply.Params[model.ParamIsInsuredPerson])
		assert.Contains(t, reply.Messages[0], "για την ασφάλιση του Δημήτρης Αλεξίου")
	})

	t.Run("reuses the case in the session", func(t *testing.T) {
		ms := newMemoryStore()
		u := seedActiveUser(t, ms, "ΤΥΦ3333", "Άννα Ρήγα")
		inc := seedIncident(t, ms, u.ID, model.IncidentPatch{})
		o, _ := newTestOrchestrator(t, ms)

		reply := o.HandleStep(context.Background(), turn(StepCollectCustomerName, model.Params{
			model.ParamRegistrationNumber: "ΤΥΦ3333",
			model.ParamPolicyID:           u.ID,
			model.ParamPolicyHolderName:   "Άννα Ρήγα",
			model.ParamCustomerName:       "άννα ρήγα",
			model.ParamCaseID:             inc.ID,
		}))

		assert.Equal(t, inc.ID, reply.Params[model.ParamCaseID])
		assert.Equal(t, true, reply.Params[model.ParamIsInsuredPerson])
		list, err := ms.ListIncidentsByRegistrationNumber(context.Background(), "ΤΥΦ3333")
		require.NoError(t, err)
		assert.Len(t, list, 0)
	})

	t.Run("missing identity aborts", func(t *testing.T) {
		o, _ := newTestOrchestrator(t, newMemoryStore())
		reply := o.HandleStep(context.Background(), turn(StepCollectCustomerName, model.Params{
			model.ParamCustomerName: "Κάποιος",
		}))
		assert.False(t, reply.Failed)
		assert.Equal(t, []string{msgMissingIdentity}, reply.Messages)
		assert.Empty(t, reply.Params)
	})
}

func TestClassifyIncident(t *testing.T) {
	t.Run("accident vocabulary", func(t *testing.T) {
		ms := newMemoryStore()
		u := seedActiveUser(t, ms, "ΑΑΑ1111", "Χρήστος")
		inc := seedIncident(t, ms, u.ID, model.IncidentPatch{})
		o, pub := newTestOrchestrator(t, ms)

		reply := o.HandleStep(context.Background(), turn(StepClassifyIncident, model.Params{
			model.ParamCaseID:              inc.ID,
			model.ParamIncidentDescription: "Είχα ένα τρακάρισμα στο πάρκινγκ",
		}))

		assert.Equal(t, "AC", reply.Params[model.ParamIncidentType])
		assert.Equal(t, []string{msgAccident}, reply.Messages)
		got, _ := ms.GetIncidentByID(context.Background(), inc.ID)
		assert.Equal(t, model.CaseTypeAccident, got.Type())
		assert.Equal(t, "Είχα ένα τρακάρισμα στο πάρκινγκ", model.Deref(got.Description))
		assert.Equal(t, []model.EventType{model.EventTypeClassified}, pub.types())
	})

	t.Run("out of scope persists OTHER", func(t *testing.T) {
		ms := newMemoryStore()
		u := seedActiveUser(t, ms, "ΒΒΒ2222", "Χρήστος")
		inc := seedIncident(t, ms, u.ID, model.IncidentPatch{})
		o, _ := newTestOrchestrator(t, ms)

		reply := o.HandleStep(context.Background(), turn(StepClassifyIncident, model.Params{
			model.ParamCaseID:              inc.ID,
			model.ParamIncidentDescription: "Θέλω να αλλάξω τη διεύθυνσή μου",
		}))

		assert.Equal(t, []string{msgOutOfScope}, reply.Messages)
		assert.NotContains(t, reply.Params, model.ParamIncidentType)
		got, _ := ms.GetIncidentByID(context.Background(), inc.ID)
		assert.Equal(t, model.CaseTypeOther, got.Type())
	})

	t.Run("existing classification is kept", func(t *testing.T) {
		ms := newMemoryStore()
		u := seedActiveUser(t, ms, "ΓΓΓ3333", "Χρήστος")
		inc := seedIncident(t, ms, u.ID, model.IncidentPatch{
			CaseType:    model.Ptr(model.CaseTypeRoadside),
			Description: model.Ptr("μπαταρία"),
		})
		o, pub := newTestOrchestrator(t, ms)

		reply := o.HandleStep(context.Background(), turn(StepClassifyIncident, model.Params{
			model.ParamCaseID:              inc.ID,
			model.ParamIncidentDescription: "τελικά ήταν τρακάρισμα",
		}))

		assert.Equal(t, "RA", reply.Params[model.ParamIncidentType])
		got, _ := ms.GetIncidentByID(context.Background(), inc.ID)
		assert.Equal(t, "μπαταρία", model.Deref(got.Description))
		assert.Empty(t, pub.types())
	})

	t.Run("missing description reprompts", func(t *testing.T) {
		o, _ := newTestOrchestrator(t, newMemoryStore())
		reply := o.HandleStep(context.Background(), turn(StepClassifyIncident, model.Params{
			model.ParamIncidentDescription: "   ",
		}))
		assert.Equal(t, []string{msgAskDescription}, reply.Messages)
		assert.False(t, reply.Failed)
	})
}

func TestCollectLocation(t *testing.T) {
	ms := newMemoryStore()
	u := seedActiveUser(t, ms, "ΔΔΔ4444", "Χρήστος")
	inc := seedIncident(t, ms, u.ID, model.IncidentPatch{})
	o, _ := newTestOrchestrator(t, ms)

	reply := o.HandleStep(context.Background(), turn(StepCollectLocation, model.Params{
		model.ParamCaseID:   inc.ID,
		model.ParamLocation: "κάπου στην εθνική οδό",
	}))

	assert.Equal(t, true, reply.Params[model.ParamNeedsGeolocation])
	assert.Contains(t, reply.Messages[0], "https://geolocation.hellasdirect.gr/")
	got, _ := ms.GetIncidentByID(context.Background(), inc.ID)
	assert.Equal(t, "κάπου στην εθνική οδό", model.Deref(got.Location))
	assert.Equal(t, "https://geolocation.hellasdirect.gr/", model.Deref(got.GeolocationLinkSent))

	reply = o.HandleStep(context.Background(), turn(StepCollectLocation, model.Params{
		model.ParamLocation: "Ερμού 10, Αθήνα",
	}))
	assert.Equal(t, false, reply.Params[model.ParamNeedsGeolocation])
	assert.Equal(t, []string{msgLocationNoLink}, reply.Messages)
}

func TestCollectDestinationAndDetails(t *testing.T) {
	ms := newMemoryStore()
	u := seedActiveUser(t, ms, "ΕΕΕ5555", "Χρήστος")
	inc := seedIncident(t, ms, u.ID, model.IncidentPatch{})
	o, _ := newTestOrchestrator(t, ms)

	reply := o.HandleStep(context.Background(), turn(StepCollectDestination, model.Params{
		model.ParamCaseID:           inc.ID,
		model.ParamFinalDestination: "Πάτρα",
	}))
	assert.Equal(t, []string{msgDestinationConfirmed}, reply.Messages)
	got, _ := ms.GetIncidentByID(context.Background(), inc.ID)
	assert.Equal(t, "Πάτρα", model.Deref(got.FinalVehicleDestination))

	reply = o.HandleStep(context.Background(), turn(StepCollectACDetails, model.Params{model.ParamIncidentType: "AC"}))
	assert.Equal(t, []string{msgAskInjuries}, reply.Messages)

	reply = o.HandleStep(context.Background(), turn(StepCollectACDetails, model.Params{model.ParamIncidentType: "RA"}))
	assert.Equal(t, []string{msgAskMalfunction}, reply.Messages)

	reply = o.HandleStep(context.Background(), turn(StepCollectDestination, model.Params{}))
	assert.Equal(t, []string{msgAskDestination}, reply.Messages)
}

func TestProcessRules(t *testing.T) {
	t.Run("cross prefecture", func(t *testing.T) {
		o, _ := newTestOrchestrator(t, newMemoryStore())
		reply := o.HandleStep(context.Background(), turn(StepProcessRules, model.Params{
			model.ParamLocation:         "Αθήνα",
			model.ParamFinalDestination: "Θεσσαλονίκη",
		}))

		require.False(t, reply.Failed)
		assert.Equal(t, true, reply.Params[model.ParamIsDestinationOutPerfecture])
		assert.Contains(t, reply.Messages[0], "3-5 εργάσιμες ημέρες")
		assert.Contains(t, reply.Messages[0], msgRulesContinue)
	})

	t.Run("nothing triggered", func(t *testing.T) {
		o, _ := newTestOrchestrator(t, newMemoryStore())
		reply := o.HandleStep(context.Background(), turn(StepProcessRules, model.Params{
			model.ParamLocation:         "Αθήνα",
			model.ParamFinalDestination: "Αθήνα",
		}))
		assert.Equal(t, []string{msgRulesAllChecked}, reply.Messages)
		assert.Empty(t, reply.Params)
	})

	t.Run("persists derived flags", func(t *testing.T) {
		ms := newMemoryStore()
		u := seedActiveUser(t, ms, "ΖΖΖ6666", "Πέτρος Ιωάννου")
		inc := seedIncident(t, ms, u.ID, model.IncidentPatch{
			RegistrationNumber:      model.Ptr("ΖΖΖ6666"),
			Description:             model.Ptr("Κόλλησε στη λάσπη, το οδηγούσε ένας φίλος"),
			Location:                model.Ptr("υπόγειο γκαράζ στην Αθήνα"),
			FinalVehicleDestination: model.Ptr("Λάρισα"),
		})
		o, pub := newTestOrchestrator(t, ms)

		reply := o.HandleStep(context.Background(), turn(StepProcessRules, model.Params{
			model.ParamCaseID:           inc.ID,
			model.ParamCustomerName:     "Κώστας Μαύρος",
			model.ParamPolicyHolderName: "Πέτρος Ιωάννου",
		}))

		require.False(t, reply.Failed)
		msg := reply.Messages[0]
		assert.Contains(t, msg, noticeCrossPrefecture)
		assert.Contains(t, msg, "https://sign.hellasdirect.gr/"+inc.ID)
		assert.Contains(t, msg, noticeUnderground)
		assert.Equal(t, true, reply.Params[model.ParamNeedsSwornDeclaration])

		got, _ := ms.GetIncidentByID(context.Background(), inc.ID)
		assert.True(t, model.Deref(got.IsDestinationOutPerfecture))
		assert.Equal(t, 1, model.Deref(got.IsFraudCase))
		assert.Equal(t, "https://sign.hellasdirect.gr/"+inc.ID, model.Deref(got.ResponsibleDeclarationRequired))
		assert.Contains(t, pub.types(), model.EventTypeRulesApplied)

		// A second pass does not repeat the declaration link.
		reply = o.HandleStep(context.Background(), turn(StepProcessRules, model.Params{model.ParamCaseID: inc.ID}))
		assert.NotContains(t, reply.Messages[0], "υπεύθυνη δήλωση")
	})

	t.Run("previous tow", func(t *testing.T) {
		ms := newMemoryStore()
		u := seedActiveUser(t, ms, "ΗΗΗ7777", "Χρήστος")
		seedIncident(t, ms, u.ID, model.IncidentPatch{
			RegistrationNumber: model.Ptr("ΗΗΗ7777"),
			RecommendedGarage:  model.Ptr("Auto Service Αθηνών - Αθήνα"),
		})
		ms.WithClock(func() time.Time { return testNow.Add(time.Hour) })
		current := seedIncident(t, ms, u.ID, model.IncidentPatch{RegistrationNumber: model.Ptr("ΗΗΗ7777")})
		o, _ := newTestOrchestrator(t, ms)

		reply := o.HandleStep(context.Background(), turn(StepProcessRules, model.Params{model.ParamCaseID: current.ID}))
		assert.Contains(t, reply.Messages[0], noticeSecondTow)
	})

	t.Run("previous tow created in the same instant", func(t *testing.T) {
		ms := newMemoryStore()
		u := seedActiveUser(t, ms, "ΟΟΟ1313", "Χρήστος")
		seedIncident(t, ms, u.ID, model.IncidentPatch{
			RegistrationNumber: model.Ptr("ΟΟΟ1313"),
			RecommendedGarage:  model.Ptr("Auto Service Αθηνών - Αθήνα"),
		})
		current := seedIncident(t, ms, u.ID, model.IncidentPatch{RegistrationNumber: model.Ptr("ΟΟΟ1313")})
		o, _ := newTestOrchestrator(t, ms)

		reply := o.HandleStep(context.Background(), turn(StepProcessRules, model.Params{model.ParamCaseID: current.ID}))
		assert.Contains(t, reply.Messages[0], noticeSecondTow)
	})

	t.Run("later tow with the same timestamp is ignored", func(t *testing.T) {
		ms := newMemoryStore()
		u := seedActiveUser(t, ms, "ΠΠΠ1414", "Χρήστος")
		current := seedIncident(t, ms, u.ID, model.IncidentPatch{RegistrationNumber: model.Ptr("ΠΠΠ1414")})
		seedIncident(t, ms, u.ID, model.IncidentPatch{
			RegistrationNumber: model.Ptr("ΠΠΠ1414"),
			RecommendedGarage:  model.Ptr("Auto Service Αθηνών - Αθήνα"),
		})
		o, _ := newTestOrchestrator(t, ms)

		reply := o.HandleStep(context.Background(), turn(StepProcessRules, model.Params{model.ParamCaseID: current.ID}))
		assert.NotContains(t, reply.Messages[0], noticeSecondTow)
	})

	t.Run("enriched description is persisted", func(t *testing.T) {
		ms := newMemoryStore()
		u := seedActiveUser(t, ms, "ΡΡΡ1515", "Μάνος")
		inc := seedIncident(t, ms, u.ID, model.IncidentPatch{
			Description: model.Ptr("Δεν παίρνει μπρος"),
			Location:    model.Ptr("Αθήνα"),
		})
		o, _ := newTestOrchestrator(t, ms)

		reply := o.HandleStep(context.Background(), turn(StepProcessRules, model.Params{
			model.ParamCaseID:              inc.ID,
			model.ParamIncidentDescription: "Δεν παίρνει μπρος. Κόλλησε στη λάσπη",
		}))

		assert.Equal(t, true, reply.Params[model.ParamNeedsSwornDeclaration])
		got, _ := ms.GetIncidentByID(context.Background(), inc.ID)
		assert.Equal(t, "Δεν παίρνει μπρος. Κόλλησε στη λάσπη", model.Deref(got.Description))
	})
}

func TestFinalizeCase(t *testing.T) {
	t.Run("roadside tire change needs no garage", func(t *testing.T) {
		ms := newMemoryStore()
		u := seedActiveUser(t, ms, "ΘΘΘ8888", "Λένα")
		inc := seedIncident(t, ms, u.ID, model.IncidentPatch{
			CaseType:    model.Ptr(model.CaseTypeRoadside),
			Description: model.Ptr("Έσκασε το λάστιχο"),
			Location:    model.Ptr("Αθήνα"),
		})
		o, pub := newTestOrchestrator(t, ms)

		reply := o.HandleStep(context.Background(), turn(StepFinalizeCase, model.Params{
			model.ParamCaseID:       inc.ID,
			model.ParamCustomerName: "Λένα",
		}))

		require.False(t, reply.Failed)
		assert.False(t, rules.DetermineTowingNeed(model.CaseTypeRoadside, "Έσκασε το λάστιχο"))
		assert.NotContains(t, reply.Messages[0], "Προτείνουμε το συνεργείο")
		assert.Contains(t, reply.Messages[0], msgFinalizeRoadside)
		assert.Contains(t, reply.Messages[0], inc.ID)

		v, present := reply.Params[model.ParamCaseID]
		assert.True(t, present)
		assert.Nil(t, v)
		assert.Equal(t, testNow.Format(time.RFC3339), reply.Params[model.ParamFinalizedAt])
		assert.Equal(t, false, reply.Params[model.ParamIsFastCase])

		got, _ := ms.GetIncidentByID(context.Background(), inc.ID)
		assert.Equal(t, rules.MalfunctionFlatTire, model.Deref(got.PossibleVehicleMalfunction))
		assert.Equal(t, rules.ResolutionTireChange, model.Deref(got.PossibleProblemResolution))
		assert.Nil(t, got.RecommendedGarage)
		assert.Equal(t,
			"Case RA for Λένα. Location: Αθήνα. Destination: . Full Description: Έσκασε το λάστιχο. Malfunction: Σκασμένο λάστιχο. Tags: road-assistance",
			model.Deref(got.CaseSummary))
		assert.Contains(t, pub.types(), model.EventTypeFinalized)
	})

	t.Run("roadside tow recommends a garage", func(t *testing.T) {
		ms := newMemoryStore()
		u := seedActiveUser(t, ms, "ΙΙΙ9999", "Λένα")
		inc := seedIncident(t, ms, u.ID, model.IncidentPatch{
			CaseType:    model.Ptr(model.CaseTypeRoadside),
			Description: model.Ptr("Το αυτοκίνητο δεν παίρνει μπρος, βλάβη στη μηχανή"),
			Location:    model.Ptr("Πάτρα"),
		})
		o, _ := newTestOrchestrator(t, ms)

		reply := o.HandleStep(context.Background(), turn(StepFinalizeCase, model.Params{
			model.ParamCaseID:       inc.ID,
			model.ParamCustomerName: "Λένα",
		}))

		assert.Contains(t, reply.Messages[0], "Προτείνουμε το συνεργείο: Συνεργείο Δοκιμής - Πάτρα")
		got, _ := ms.GetIncidentByID(context.Background(), inc.ID)
		assert.Equal(t, "Συνεργείο Δοκιμής - Πάτρα", model.Deref(got.RecommendedGarage))
		assert.Equal(t, rules.ResolutionTowing, model.Deref(got.PossibleProblemResolution))
	})

	t.Run("fast track accident", func(t *testing.T) {
		ms := newMemoryStore()
		u := seedActiveUser(t, ms, "ΚΚΚ1212", "Άρης")
		inc := seedIncident(t, ms, u.ID, model.IncidentPatch{
			CaseType:    model.Ptr(model.CaseTypeAccident),
			Description: model.Ptr("Με χτύπησαν από πίσω ενώ ήμουν παρκαρισμένο"),
			Location:    model.Ptr("Αθήνα"),
		})
		o, _ := newTestOrchestrator(t, ms)

		reply := o.HandleStep(context.Background(), turn(StepFinalizeCase, model.Params{
			model.ParamCaseID:       inc.ID,
			model.ParamCustomerName: "Άρης",
		}))

		assert.Contains(t, reply.Messages[0], msgFinalizeAccident)
		assert.Contains(t, reply.Messages[0], "fast-track")
		assert.Equal(t, true, reply.Params[model.ParamIsFastCase])
		got, _ := ms.GetIncidentByID(context.Background(), inc.ID)
		assert.Contains(t, model.Deref(got.CaseSummary), "Tags: accident, fast-track")
	})

	t.Run("identical incidents produce identical summaries", func(t *testing.T) {
		ms := newMemoryStore()
		u := seedActiveUser(t, ms, "ΛΛΛ3434", "Ιωάννα")
		fields := model.IncidentPatch{
			CaseType:                model.Ptr(model.CaseTypeAccident),
			Description:             model.Ptr("σύγκρουση σε διασταύρωση"),
			Location:                model.Ptr("Λάρισα"),
			FinalVehicleDestination: model.Ptr("Λάρισα"),
		}
		a := seedIncident(t, ms, u.ID, fields)
		b := seedIncident(t, ms, u.ID, fields)
		o, _ := newTestOrchestrator(t, ms)

		for _, id := range []string{a.ID, b.ID} {
			o.HandleStep(context.Background(), turn(StepFinalizeCase, model.Params{
				model.ParamCaseID:       id,
				model.ParamCustomerName: "Ιωάννα",
			}))
		}
		gotA, _ := ms.GetIncidentByID(context.Background(), a.ID)
		gotB, _ := ms.GetIncidentByID(context.Background(), b.ID)
		require.NotEmpty(t, model.Deref(gotA.CaseSummary))
		assert.Equal(t, model.Deref(gotA.CaseSummary), model.Deref(gotB.CaseSummary))
	})

	t.Run("session description carries detail answers", func(t *testing.T) {
		ms := newMemoryStore()
		u := seedActiveUser(t, ms, "ΣΣΣ1616", "Λένα")
		inc := seedIncident(t, ms, u.ID, model.IncidentPatch{
			CaseType:    model.Ptr(model.CaseTypeRoadside),
			Description: model.Ptr("δεν παίρνει μπρος"),
			Location:    model.Ptr("Αθήνα"),
		})
		o, _ := newTestOrchestrator(t, ms)

		reply := o.HandleStep(context.Background(), turn(StepFinalizeCase, model.Params{
			model.ParamCaseID:              inc.ID,
			model.ParamCustomerName:        "Λένα",
			model.ParamIncidentDescription: "δεν παίρνει μπρος. μπαταρία",
		}))

		require.False(t, reply.Failed)
		assert.NotContains(t, reply.Messages[0], "Προτείνουμε το συνεργείο")
		got, _ := ms.GetIncidentByID(context.Background(), inc.ID)
		assert.Equal(t, rules.MalfunctionBattery, model.Deref(got.PossibleVehicleMalfunction))
		assert.Nil(t, got.RecommendedGarage)
		assert.Equal(t, "δεν παίρνει μπρος. μπαταρία", model.Deref(got.Description))
	})

	t.Run("missing case", func(t *testing.T) {
		o, _ := newTestOrchestrator(t, newMemoryStore())

		reply := o.HandleStep(context.Background(), turn(StepFinalizeCase, model.Params{}))
		assert.Equal(t, []string{msgFinalizeNoCase}, reply.Messages)

		reply = o.HandleStep(context.Background(), turn(StepFinalizeCase, model.Params{model.ParamCaseID: "nope"}))
		assert.Equal(t, []string{msgFinalizeNotFound}, reply.Messages)
		assert.False(t, reply.Failed)
	})
}

func TestHandleStepUnknownTag(t *testing.T) {
	o, pub := newTestOrchestrator(t, newMemoryStore())
	params := model.Params{model.ParamCaseID: "abc"}

	reply := o.HandleStep(context.Background(), turn("unknown.tag", params))

	assert.Equal(t, []string{msgNotUnderstood}, reply.Messages)
	assert.Empty(t, reply.Params)
	assert.False(t, reply.Failed)
	assert.Equal(t, model.Params{model.ParamCaseID: "abc"}, params)
	assert.Empty(t, pub.types())
	assert.False(t, o.Known("unknown.tag"))
	assert.True(t, o.Known(StepGreeting))
}

func TestHandleStepUnknownTagsShareOneSeries(t *testing.T) {
	o, _ := newTestOrchestrator(t, newMemoryStore())

	before := testutil.CollectAndCount(metrics.FlowStepsTotal)
	unknownBefore := testutil.ToFloat64(metrics.FlowStepsTotal.WithLabelValues(outcomeUnknown, outcomeUnknown))

	for i := 0; i < 50; i++ {
		o.HandleStep(context.Background(), turn(fmt.Sprintf("junk.%d", i), nil))
	}

	assert.LessOrEqual(t, testutil.CollectAndCount(metrics.FlowStepsTotal)-before, 1)
	assert.Equal(t, unknownBefore+50, testutil.ToFloat64(metrics.FlowStepsTotal.WithLabelValues(outcomeUnknown, outcomeUnknown)))
}

func TestHandleStepCatchAll(t *testing.T) {
	t.Run("storage failure", func(t *testing.T) {
		ms := newMemoryStore()
		u := seedActiveUser(t, ms, "ΜΜΜ5656", "Χρήστος")
		o, _ := newTestOrchestrator(t, failingCreate{Gateway: ms})

		reply := o.HandleStep(context.Background(), turn(StepCollectCustomerName, model.Params{
			model.ParamRegistrationNumber: "ΜΜΜ5656",
			model.ParamUserID:             u.ID,
			model.ParamCustomerName:       "Χρήστος",
		}))

		assert.True(t, reply.Failed)
		assert.Equal(t, []string{msgInternalError}, reply.Messages)
		assert.Equal(t, model.Params{model.ParamWebhookError: true}, reply.Params)
	})

	t.Run("panic", func(t *testing.T) {
		o, _ := newTestOrchestrator(t, panickingLookup{Gateway: newMemoryStore()})

		reply := o.HandleStep(context.Background(), turn(StepCollectRegistration, model.Params{
			model.ParamRegistrationNumber: "ΝΝΝ7878",
		}))

		assert.True(t, reply.Failed)
		assert.Equal(t, true, reply.Params[model.ParamWebhookError])
	})
}

func TestGreeting(t *testing.T) {
	o, pub := newTestOrchestrator(t, newMemoryStore())

	reply := o.HandleStep(context.Background(), turn(StepGreeting, nil))

	assert.Equal(t, []string{msgGreeting}, reply.Messages)
	assert.Equal(t, model.SessionSchemaVersion, reply.Params[model.ParamSchemaVersion])
	assert.Empty(t, pub.types())
}

func TestFullConversation(t *testing.T) {
	ms := newMemoryStore()
	o, pub := newTestOrchestrator(t, ms)
	params := model.Params{}

	run := func(tag, text string) Reply {
		t.Helper()
		params = Fill(params, tag, text)
		reply := o.HandleStep(context.Background(), turn(tag, params))
		require.False(t, reply.Failed, "step %s failed", tag)
		params = params.Merge(reply.Params)
		params[model.ParamChatStep] = tag
		return reply
	}

	steps := []struct {
		text string
		want string
	}{
		{"ΡΣΤ4545", StepCollectRegistration},
		{"Θάνος Βλάχος", StepCollectCustomerName},
		{"Έμεινα από μπαταρία", StepClassifyIncident},
		{"Ερμού 5, Αθήνα", StepCollectLocation},
		{"Αθήνα", StepCollectDestination},
		{"μπαταρία", StepCollectRADetails},
		{"", StepProcessRules},
		{"", StepFinalizeCase},
	}
	for _, s := range steps {
		tag := NextStep(params)
		require.Equal(t, s.want, tag)
		run(tag, s.text)
	}

	assert.NotContains(t, params, model.ParamCaseID)
	assert.Equal(t, StepGreeting, NextStep(params))
	assert.Equal(t, []model.EventType{
		model.EventTypeCreated,
		model.EventTypeClassified,
		model.EventTypeRulesApplied,
		model.EventTypeFinalized,
	}, pub.types())
}

func TestSlotForAndFill(t *testing.T) {
	assert.Equal(t, model.ParamLocation, SlotFor(StepCollectLocation))
	assert.Equal(t, "", SlotFor(StepProcessRules))

	p := Fill(model.Params{model.ParamIncidentDescription: "τρακάρισμα"}, StepCollectACDetails, "μόνο υλικές ζημιές")
	assert.Equal(t, "τρακάρισμα. μόνο υλικές ζημιές", p[model.ParamIncidentDescription])

	p = Fill(model.Params{}, StepCollectRegistration, "  ")
	assert.Empty(t, p)
}

func TestDetailAnswerReachesFinalize(t *testing.T) {
	ms := newMemoryStore()
	o, _ := newTestOrchestrator(t, ms)
	params := model.Params{}

	answers := []string{
		"ΤΥΦ1717",
		"Ελένη Παππά",
		"Το αυτοκίνητο δεν παίρνει μπρος",
		"Ερμού 5, Αθήνα",
		"Αθήνα",
		"μπαταρία",
		"",
		"",
	}
	var last Reply
	for _, text := range answers {
		tag := NextStep(params)
		params = Fill(params, tag, text)
		last = o.HandleStep(context.Background(), turn(tag, params))
		require.False(t, last.Failed, "step %s failed", tag)
		params = params.Merge(last.Params)
		params[model.ParamChatStep] = tag
	}

	assert.NotContains(t, last.Messages[0], "Προτείνουμε το συνεργείο")

	incidents, err := ms.ListIncidentsByRegistrationNumber(context.Background(), "ΤΥΦ1717")
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	got := incidents[0]
	assert.Equal(t, "Το αυτοκίνητο δεν παίρνει μπρος. μπαταρία", model.Deref(got.Description))
	assert.Equal(t, rules.MalfunctionBattery, model.Deref(got.PossibleVehicleMalfunction))
	assert.Equal(t, rules.ResolutionJumpStart, model.Deref(got.PossibleProblemResolution))
	assert.Nil(t, got.RecommendedGarage)
}
