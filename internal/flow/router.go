package flow

import (
	"strings"

	"github.com/hellas-direct/intake-assistant/internal/model"
)

// Step tags sent by the dialogue service.
const (
	StepGreeting            = "greeting"
	StepCollectRegistration = "collect.registration"
	StepCollectCustomerName = "collect.customer_name"
	StepClassifyIncident    = "classify.incident"
	StepCollectLocation     = "collect.location"
	StepCollectDestination  = "collect.destination"
	StepCollectACDetails    = "collect.ac_details"
	StepCollectRADetails    = "collect.ra_details"
	StepProcessRules        = "process.rules"
	StepFinalizeCase        = "finalize.case"
)

// NextStep derives the step a chat turn should run from what the bag still
// lacks. The last dispatched step is read from chat_step to sequence the
// steps that take no slot.
func NextStep(p model.Params) string {
	s := model.DecodeSession(p)
	last := p.String(model.ParamChatStep)

	switch {
	case last == StepFinalizeCase:
		return StepGreeting
	case s.RegistrationNumber == "" || s.UserID == "":
		return StepCollectRegistration
	case !s.IsNewUser && !s.PolicyActive:
		return StepCollectRegistration
	case s.CustomerName == "" || s.CaseID == "":
		return StepCollectCustomerName
	case !s.IncidentType.Classified():
		return StepClassifyIncident
	case s.Location == "":
		return StepCollectLocation
	case s.FinalDestination == "":
		return StepCollectDestination
	}

	switch last {
	case StepCollectDestination:
		if s.IncidentType == model.CaseTypeAccident {
			return StepCollectACDetails
		}
		return StepCollectRADetails
	case StepCollectACDetails, StepCollectRADetails:
		return StepProcessRules
	case StepProcessRules:
		return StepFinalizeCase
	}
	return StepCollectDestination
}

// SlotFor names the parameter that free text fills for tag, or "" when the
// step takes no direct slot.
func SlotFor(tag string) string {
	switch tag {
	case StepCollectRegistration:
		return model.ParamRegistrationNumber
	case StepCollectCustomerName:
		return model.ParamCustomerName
	case StepClassifyIncident:
		return model.ParamIncidentDescription
	case StepCollectLocation:
		return model.ParamLocation
	case StepCollectDestination:
		return model.ParamFinalDestination
	}
	return ""
}

// Fill returns a copy of p with text written into the slot for tag. Answers
// to the detail questions are appended to the incident description so the
// rules see them.
func Fill(p model.Params, tag, text string) model.Params {
	out := p.Clone()
	text = strings.TrimSpace(text)
	if text == "" {
		return out
	}
	if slot := SlotFor(tag); slot != "" {
		out[slot] = text
		return out
	}
	if tag == StepCollectACDetails || tag == StepCollectRADetails {
		if desc := p.String(model.ParamIncidentDescription); desc != "" {
			out[model.ParamIncidentDescription] = desc + ". " + text
		} else {
			out[model.ParamIncidentDescription] = text
		}
	}
	return out
}
