package model

import (
	"time"
)

// CaseType is the classification of an incident.
type CaseType string

const (
	CaseTypeAccident     CaseType = "AC"
	CaseTypeRoadside     CaseType = "RA"
	CaseTypeOther        CaseType = "OTHER"
	CaseTypeUnclassified CaseType = ""
)

// Valid reports whether c is one of the known case types.
func (c CaseType) Valid() bool {
	switch c {
	case CaseTypeAccident, CaseTypeRoadside, CaseTypeOther:
		return true
	}
	return false
}

// Classified reports whether c is an in-scope classification (AC or RA).
func (c CaseType) Classified() bool {
	return c == CaseTypeAccident || c == CaseTypeRoadside
}

// Incident is a single insurance case. Its ID doubles as the case reference
// shown to the caller.
type Incident struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    string    `json:"user_id"`

	RegistrationNumber         *string   `json:"registration_number"`
	Location                   *string   `json:"location"`
	Description                *string   `json:"description"`
	CaseType                   *CaseType `json:"case_type"`
	FinalVehicleDestination    *string   `json:"final_vehicle_destination"`
	PossibleVehicleMalfunction *string   `json:"possible_vehicle_malfunction"`
	PossibleProblemResolution  *string   `json:"possible_problem_resolution"`
	RecommendedGarage          *string   `json:"recommended_garage"`

	IsDestinationOutPerfecture     *bool    `json:"is_destination_out_perfecture"`
	DelayVoucherIssued             *bool    `json:"delay_voucher_issued"`
	GeolocationLinkSent            *string  `json:"geolocation_link_sent"`
	ResponsibleDeclarationRequired *string  `json:"responsible_declaration_required"`
	IsFastCase                     *bool    `json:"is_fast_case"`
	IsFraudCase                    *int     `json:"is_fraud_case"`
	CommunicationQuality           *string  `json:"communication_quality"`
	CaseSummary                    *string  `json:"case_summary"`
	Images                         []string `json:"images"`
}

// Type returns the case type or CaseTypeUnclassified.
func (i *Incident) Type() CaseType {
	if i == nil || i.CaseType == nil {
		return CaseTypeUnclassified
	}
	return *i.CaseType
}

// IncidentPatch carries a partial incident update. Nil fields are left
// unchanged. Identity and ownership are not part of a patch.
type IncidentPatch struct {
	RegistrationNumber         *string   `json:"registration_number,omitempty"`
	Location                   *string   `json:"location,omitempty"`
	Description                *string   `json:"description,omitempty"`
	CaseType                   *CaseType `json:"case_type,omitempty"`
	FinalVehicleDestination    *string   `json:"final_vehicle_destination,omitempty"`
	PossibleVehicleMalfunction *string   `json:"possible_vehicle_malfunction,omitempty"`
	PossibleProblemResolution  *string   `json:"possible_problem_resolution,omitempty"`
	RecommendedGarage          *string   `json:"recommended_garage,omitempty"`

	IsDestinationOutPerfecture     *bool    `json:"is_destination_out_perfecture,omitempty"`
	DelayVoucherIssued             *bool    `json:"delay_voucher_issued,omitempty"`
	GeolocationLinkSent            *string  `json:"geolocation_link_sent,omitempty"`
	ResponsibleDeclarationRequired *string  `json:"responsible_declaration_required,omitempty"`
	IsFastCase                     *bool    `json:"is_fast_case,omitempty"`
	IsFraudCase                    *int     `json:"is_fraud_case,omitempty"`
	CommunicationQuality           *string  `json:"communication_quality,omitempty"`
	CaseSummary                    *string  `json:"case_summary,omitempty"`
	Images                         []string `json:"images,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p IncidentPatch) Empty() bool {
	return p.RegistrationNumber == nil &&
		p.Location == nil &&
		p.Description == nil &&
		p.CaseType == nil &&
		p.FinalVehicleDestination == nil &&
		p.PossibleVehicleMalfunction == nil &&
		p.PossibleProblemResolution == nil &&
		p.RecommendedGarage == nil &&
		p.IsDestinationOutPerfecture == nil &&
		p.DelayVoucherIssued == nil &&
		p.GeolocationLinkSent == nil &&
		p.ResponsibleDeclarationRequired == nil &&
		p.IsFastCase == nil &&
		p.IsFraudCase == nil &&
		p.CommunicationQuality == nil &&
		p.CaseSummary == nil &&
		p.Images == nil
}

// Apply copies the set fields of the patch onto i.
func (p IncidentPatch) Apply(i *Incident) {
	if p.RegistrationNumber != nil {
		i.RegistrationNumber = p.RegistrationNumber
	}
	if p.Location != nil {
		i.Location = p.Location
	}
	if p.Description != nil {
		i.Description = p.Description
	}
	if p.CaseType != nil {
		i.CaseType = p.CaseType
	}
	if p.FinalVehicleDestination != nil {
		i.FinalVehicleDestination = p.FinalVehicleDestination
	}
	if p.PossibleVehicleMalfunction != nil {
		i.PossibleVehicleMalfunction = p.PossibleVehicleMalfunction
	}
	if p.PossibleProblemResolution != nil {
		i.PossibleProblemResolution = p.PossibleProblemResolution
	}
	if p.RecommendedGarage != nil {
		i.RecommendedGarage = p.RecommendedGarage
	}
	if p.IsDestinationOutPerfecture != nil {
		i.IsDestinationOutPerfecture = p.IsDestinationOutPerfecture
	}
	if p.DelayVoucherIssued != nil {
		i.DelayVoucherIssued = p.DelayVoucherIssued
	}
	if p.GeolocationLinkSent != nil {
		i.GeolocationLinkSent = p.GeolocationLinkSent
	}
	if p.ResponsibleDeclarationRequired != nil {
		i.ResponsibleDeclarationRequired = p.ResponsibleDeclarationRequired
	}
	if p.IsFastCase != nil {
		i.IsFastCase = p.IsFastCase
	}
	if p.IsFraudCase != nil {
		i.IsFraudCase = p.IsFraudCase
	}
	if p.CommunicationQuality != nil {
		i.CommunicationQuality = p.CommunicationQuality
	}
	if p.CaseSummary != nil {
		i.CaseSummary = p.CaseSummary
	}
	if p.Images != nil {
		i.Images = append([]string(nil), p.Images...)
	}
}
