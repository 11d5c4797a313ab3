package model

import (
	"strings"
)

// SessionSchemaVersion is stamped into the parameter bag at greeting so a
// future layout change can be detected on the way back in.
const SessionSchemaVersion = 1

// Session is the typed view of the parameter bag that step handlers read.
type Session struct {
	Version                    int
	CaseID                     string
	RegistrationNumber         string
	CustomerName               string
	PolicyHolderName           string
	UserID                     string
	IsNewUser                  bool
	PolicyActive               bool
	IncidentDescription        string
	IncidentType               CaseType
	Location                   string
	NeedsGeolocation           bool
	FinalDestination           string
	IsInsuredPerson            *bool
	IsDestinationOutPerfecture bool
	GeolocationLinkSent        string
}

// DecodeSession builds a Session from the wire bag. The user id falls back to
// policy_id, which older callers send instead.
func DecodeSession(p Params) Session {
	s := Session{
		CaseID:                     p.String(ParamCaseID),
		RegistrationNumber:         p.String(ParamRegistrationNumber),
		CustomerName:               p.String(ParamCustomerName),
		PolicyHolderName:           p.String(ParamPolicyHolderName),
		UserID:                     p.String(ParamUserID),
		IsNewUser:                  p.Bool(ParamIsNewUser),
		PolicyActive:               p.Bool(ParamPolicyActive),
		IncidentDescription:        p.String(ParamIncidentDescription),
		IncidentType:               CaseType(strings.ToUpper(p.String(ParamIncidentType))),
		Location:                   p.String(ParamLocation),
		NeedsGeolocation:           p.Bool(ParamNeedsGeolocation),
		FinalDestination:           p.String(ParamFinalDestination),
		IsInsuredPerson:            p.OptionalBool(ParamIsInsuredPerson),
		IsDestinationOutPerfecture: p.Bool(ParamIsDestinationOutPerfecture),
		GeolocationLinkSent:        p.String(ParamGeolocationLinkSent),
	}
	if s.UserID == "" {
		s.UserID = p.String(ParamPolicyID)
	}
	if v, ok := p.Raw(ParamSchemaVersion); ok {
		switch t := v.(type) {
		case float64:
			s.Version = int(t)
		case int:
			s.Version = t
		}
	}
	if !s.IncidentType.Valid() {
		s.IncidentType = CaseTypeUnclassified
	}
	return s
}
