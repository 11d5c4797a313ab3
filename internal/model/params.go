package model

import (
	"strconv"
	"strings"
)

// Session parameter keys. These names are part of the wire contract with the
// dialogue service and must not change.
const (
	ParamCaseID                     = "case_id"
	ParamRegistrationNumber         = "registration_number"
	ParamCustomerName               = "customer_name"
	ParamPolicyHolderName           = "policy_holder_name"
	ParamUserID                     = "user_id"
	ParamPolicyID                   = "policy_id"
	ParamIsNewUser                  = "is_new_user"
	ParamPolicyActive               = "policy_active"
	ParamIncidentDescription        = "incident_description"
	ParamIncidentType               = "incident_type"
	ParamLocation                   = "location"
	ParamNeedsGeolocation           = "needs_geolocation"
	ParamFinalDestination           = "final_destination"
	ParamIsInsuredPerson            = "is_insured_person"
	ParamIsDestinationOutPerfecture = "is_destination_out_perfecture"
	ParamGeolocationLinkSent        = "geolocation_link_sent"
	ParamNeedsSwornDeclaration      = "needs_sworn_declaration"
	ParamIsFastCase                 = "is_fast_case"
	ParamVehicleInfo                = "vehicle_info"
	ParamPolicyStartDate            = "policy_start_date"
	ParamPolicyEndDate              = "policy_end_date"
	ParamPolicyVerifiedAt           = "policy_verified_at"
	ParamFinalizedAt                = "finalized_at"
	ParamWebhookError               = "webhook-error"
	ParamSchemaVersion              = "session_schema_version"
	ParamChatStep                   = "chat_step"
)

// Params is the caller-held session parameter bag as it travels on the wire.
// A key mapped to nil in a delta means the caller should clear it.
type Params map[string]any

// Raw returns the value stored under key.
func (p Params) Raw(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p[key]
	return v, ok
}

// String returns the value under key as trimmed text. Numbers and booleans
// are formatted; structured values use their "original" field when the
// dialogue service sends one.
func (p Params) String(key string) string {
	v, ok := p.Raw(key)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		if orig, ok := t["original"].(string); ok {
			return strings.TrimSpace(orig)
		}
	}
	return ""
}

// Bool returns the value under key as a boolean. Strings "true" and "1" and
// non-zero numbers count as true.
func (p Params) Bool(key string) bool {
	v, ok := p.Raw(key)
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return false
}

// OptionalBool returns nil when key is absent or null.
func (p Params) OptionalBool(key string) *bool {
	v, ok := p.Raw(key)
	if !ok || v == nil {
		return nil
	}
	b := p.Bool(key)
	return &b
}

// Has reports whether key carries a usable value. Empty and whitespace-only
// strings count as missing.
func (p Params) Has(key string) bool {
	v, ok := p.Raw(key)
	if !ok || v == nil {
		return false
	}
	if _, isString := v.(string); isString {
		return p.String(key) != ""
	}
	if m, isMap := v.(map[string]any); isMap {
		return len(m) > 0
	}
	return true
}

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge returns a copy of p with delta applied. Keys mapped to nil in the
// delta are removed.
func (p Params) Merge(delta Params) Params {
	out := p.Clone()
	for k, v := range delta {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}
