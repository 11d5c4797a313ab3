package flow

import (
	"github.com/hellas-direct/intake-assistant/internal/model"
)

type requirementKind int

const (
	// reprompt asks the caller for the missing value again.
	reprompt requirementKind = iota
	// abort means upstream state is missing and the step cannot run.
	abort
)

// key lists interchangeable parameter names; any one present satisfies it.
type key []string

type requirement struct {
	keys  []key
	kind  requirementKind
	reply string
}

// preconditions declares, per step, the parameters that must be present
// before the handler runs. Groups are checked in order.
var preconditions = map[string][]requirement{
	StepCollectRegistration: {
		{keys: []key{{model.ParamRegistrationNumber}}, kind: reprompt, reply: msgAskRegistration},
	},
	StepCollectCustomerName: {
		{keys: []key{{model.ParamCustomerName}}, kind: reprompt, reply: msgAskName},
		{keys: []key{{model.ParamRegistrationNumber}, {model.ParamUserID, model.ParamPolicyID}}, kind: abort, reply: msgMissingIdentity},
	},
	StepClassifyIncident: {
		{keys: []key{{model.ParamIncidentDescription}}, kind: reprompt, reply: msgAskDescription},
	},
	StepCollectLocation: {
		{keys: []key{{model.ParamLocation}}, kind: reprompt, reply: msgAskLocation},
	},
	StepCollectDestination: {
		{keys: []key{{model.ParamFinalDestination}}, kind: reprompt, reply: msgAskDestination},
	},
	StepFinalizeCase: {
		{keys: []key{{model.ParamCaseID}}, kind: abort, reply: msgFinalizeNoCase},
	},
}

// unmet returns the first requirement of step that params do not satisfy.
func unmet(step string, params model.Params) (requirement, bool) {
	for _, req := range preconditions[step] {
		for _, k := range req.keys {
			if !k.satisfied(params) {
				return req, true
			}
		}
	}
	return requirement{}, false
}

func (k key) satisfied(params model.Params) bool {
	for _, name := range k {
		if params.Has(name) {
			return true
		}
	}
	return false
}

func (k requirementKind) String() string {
	if k == abort {
		return "abort"
	}
	return "reprompt"
}
