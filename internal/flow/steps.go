package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hellas-direct/intake-assistant/internal/model"
	"github.com/hellas-direct/intake-assistant/internal/rules"
	"github.com/hellas-direct/intake-assistant/internal/store"
	"github.com/hellas-direct/intake-assistant/pkg/metrics"
)

func (o *Orchestrator) greeting(_ context.Context, _ *stepContext) (stepResult, error) {
	return say(msgGreeting, model.Params{model.ParamSchemaVersion: model.SessionSchemaVersion}), nil
}

func (o *Orchestrator) collectRegistration(ctx context.Context, sc *stepContext) (stepResult, error) {
	reg := sc.session.RegistrationNumber
	now := o.opts.Now()

	user, created, err := o.resolveUser(ctx, reg, now)
	if err != nil {
		return stepResult{}, err
	}

	if !created && !user.PolicyActive(now) {
		sc.log.Info("policy inactive", zap.String("user_id", user.ID))
		return say(fmt.Sprintf(msgPolicyInactive, reg), nil), nil
	}

	delta := model.Params{
		model.ParamRegistrationNumber: reg,
		model.ParamUserID:             user.ID,
		model.ParamPolicyID:           user.ID,
		model.ParamVehicleInfo:        reg,
		model.ParamPolicyVerifiedAt:   now.UTC().Format(time.RFC3339),
	}

	var msg string
	if created {
		delta[model.ParamPolicyHolderName] = nil
		delta[model.ParamPolicyActive] = false
		delta[model.ParamIsNewUser] = true
		msg = fmt.Sprintf(msgNewVehicle, reg)
	} else {
		if name := user.DisplayName(); name != "" {
			delta[model.ParamPolicyHolderName] = name
		} else {
			delta[model.ParamPolicyHolderName] = nil
		}
		delta[model.ParamPolicyActive] = true
		delta[model.ParamIsNewUser] = false
		delta[model.ParamPolicyStartDate] = user.StartingDate.UTC().Format(time.RFC3339)
		delta[model.ParamPolicyEndDate] = user.EndingAt.UTC().Format(time.RFC3339)
		msg = fmt.Sprintf(msgPolicyActive, reg)
	}

	if sc.session.CaseID != "" {
		o.reassignIncident(ctx, sc, sc.session.CaseID, user.ID, reg)
	}

	return say(msg, delta), nil
}

// resolveUser looks the registration number up and creates a user when none
// exists. A concurrent creation of the same number is resolved by re-reading.
func (o *Orchestrator) resolveUser(ctx context.Context, reg string, now time.Time) (*model.User, bool, error) {
	user, err := o.store.GetUserByRegistrationNumber(ctx, reg)
	if err != nil {
		return nil, false, fmt.Errorf("lookup user: %w", err)
	}
	if user != nil {
		return user, false, nil
	}

	user, err = o.store.CreateUser(ctx, model.UserPatch{
		RegistrationNumber: model.Ptr(reg),
		StartingDate:       model.Ptr(now),
	})
	if errors.Is(err, store.ErrDuplicate) {
		user, err = o.store.GetUserByRegistrationNumber(ctx, reg)
		if err != nil {
			return nil, false, fmt.Errorf("lookup user after duplicate: %w", err)
		}
		if user == nil {
			return nil, false, fmt.Errorf("user %s vanished after duplicate insert", reg)
		}
		return user, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return user, true, nil
}

// reassignIncident moves an existing case to the identified user. Failures
// are logged only.
func (o *Orchestrator) reassignIncident(ctx context.Context, sc *stepContext, caseID, userID, reg string) {
	log := sc.log.WithIncident(caseID)

	inc, err := o.store.GetIncidentByID(ctx, caseID)
	if err != nil {
		log.Warn("failed to load incident for reassignment", zap.Error(err))
		return
	}
	if inc == nil {
		return
	}

	if _, err := o.store.UpdateIncident(ctx, caseID, model.IncidentPatch{RegistrationNumber: model.Ptr(reg)}); err != nil {
		log.Warn("failed to update incident registration number", zap.Error(err))
	}
	if inc.UserID == userID {
		return
	}
	if _, err := o.store.ReassignIncident(ctx, caseID, userID); err != nil {
		log.Warn("failed to reassign incident", zap.Error(err))
		return
	}
	o.publish(ctx, sc, caseID, model.EventTypeReassigned, inc.Type(), map[string]any{"user_id": userID})
}

func (o *Orchestrator) collectCustomerName(ctx context.Context, sc *stepContext) (stepResult, error) {
	s := sc.session

	if s.IsNewUser {
		if _, err := o.store.UpdateUser(ctx, s.UserID, model.UserPatch{FullName: model.Ptr(s.CustomerName)}); err != nil {
			sc.log.Warn("failed to store customer name", zap.String("user_id", s.UserID), zap.Error(err))
		}
	}

	inc, err := o.existingIncident(ctx, sc, s.CaseID)
	if err != nil {
		return stepResult{}, err
	}
	if inc != nil && inc.UserID != s.UserID {
		if _, err := o.store.ReassignIncident(ctx, inc.ID, s.UserID); err != nil {
			sc.log.Warn("failed to reassign incident", zap.String("case_id", inc.ID), zap.Error(err))
		}
	}
	if inc == nil {
		patch := model.IncidentPatch{
			DelayVoucherIssued: model.Ptr(false),
			IsFastCase:         model.Ptr(false),
		}
		if s.RegistrationNumber != "" {
			patch.RegistrationNumber = model.Ptr(s.RegistrationNumber)
		}
		inc, err = o.store.CreateIncident(ctx, s.UserID, patch)
		if err != nil {
			return stepResult{}, fmt.Errorf("create incident: %w", err)
		}
		sc.log.Info("incident created", zap.String("case_id", inc.ID))
		o.publish(ctx, sc, inc.ID, model.EventTypeCreated, model.CaseTypeUnclassified, nil)
	}

	insured := s.IsNewUser || s.PolicyHolderName == "" || rules.IsInsuredPerson(s.CustomerName, s.PolicyHolderName)

	var msg string
	switch {
	case s.IsNewUser:
		msg = fmt.Sprintf(msgThanksNewUser, s.CustomerName, inc.ID)
	case insured:
		msg = fmt.Sprintf(msgThanksInsured, s.CustomerName, inc.ID)
	default:
		msg = fmt.Sprintf(msgThanksOnBehalf, s.CustomerName, s.PolicyHolderName, inc.ID)
	}

	return say(msg, model.Params{
		model.ParamCaseID:          inc.ID,
		model.ParamIsInsuredPerson: insured,
	}), nil
}

// existingIncident returns the incident at caseID, or nil when there is no
// case id or no such incident.
func (o *Orchestrator) existingIncident(ctx context.Context, sc *stepContext, caseID string) (*model.Incident, error) {
	if caseID == "" {
		return nil, nil
	}
	inc, err := o.store.GetIncidentByID(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("load incident %s: %w", caseID, err)
	}
	if inc == nil {
		sc.log.Debug("case id in session has no incident", zap.String("case_id", caseID))
	}
	return inc, nil
}

func (o *Orchestrator) classifyIncident(ctx context.Context, sc *stepContext) (stepResult, error) {
	s := sc.session

	inc, err := o.existingIncident(ctx, sc, s.CaseID)
	if err != nil {
		return stepResult{}, err
	}
	if inc != nil && inc.Type().Classified() {
		return classificationReply(inc.Type()), nil
	}

	caseType := rules.ClassifyCaseType(s.IncidentDescription)
	metrics.RecordClassification(string(caseType))
	sc.log.Info("incident classified", zap.String("case_type", string(caseType)))

	if inc != nil {
		_, err := o.store.UpdateIncident(ctx, inc.ID, model.IncidentPatch{
			CaseType:    model.Ptr(caseType),
			Description: model.Ptr(s.IncidentDescription),
		})
		if err != nil {
			sc.log.Warn("failed to store classification", zap.String("case_id", inc.ID), zap.Error(err))
		} else {
			o.publish(ctx, sc, inc.ID, model.EventTypeClassified, caseType, nil)
		}
	}

	return classificationReply(caseType), nil
}

func classificationReply(caseType model.CaseType) stepResult {
	switch caseType {
	case model.CaseTypeAccident:
		return say(msgAccident, model.Params{model.ParamIncidentType: string(caseType)})
	case model.CaseTypeRoadside:
		return say(msgRoadside, model.Params{model.ParamIncidentType: string(caseType)})
	}
	return say(msgOutOfScope, nil)
}

func (o *Orchestrator) collectLocation(ctx context.Context, sc *stepContext) (stepResult, error) {
	s := sc.session
	needs := rules.NeedsGeolocationLink(s.Location)
	link := ""

	inc, err := o.existingIncident(ctx, sc, s.CaseID)
	if err != nil {
		sc.log.Warn("failed to load incident", zap.Error(err))
	}
	if inc != nil {
		patch := model.IncidentPatch{Location: model.Ptr(s.Location)}
		if needs {
			if existing := model.Deref(inc.GeolocationLinkSent); existing != "" {
				link = existing
			} else {
				link = o.opts.GeolocationURL
				patch.GeolocationLinkSent = model.Ptr(link)
			}
		}
		if _, err := o.store.UpdateIncident(ctx, inc.ID, patch); err != nil {
			sc.log.Warn("failed to store location", zap.String("case_id", inc.ID), zap.Error(err))
		}
	} else if needs {
		link = o.opts.GeolocationURL
	}

	delta := model.Params{
		model.ParamLocation:         s.Location,
		model.ParamNeedsGeolocation: needs,
	}
	if needs {
		delta[model.ParamGeolocationLinkSent] = link
		return say(fmt.Sprintf(msgLocationWithLink, link), delta), nil
	}
	return say(msgLocationNoLink, delta), nil
}

func (o *Orchestrator) collectDestination(ctx context.Context, sc *stepContext) (stepResult, error) {
	s := sc.session
	if s.CaseID != "" {
		_, err := o.store.UpdateIncident(ctx, s.CaseID, model.IncidentPatch{
			FinalVehicleDestination: model.Ptr(s.FinalDestination),
		})
		if err != nil {
			sc.log.Warn("failed to store destination", zap.String("case_id", s.CaseID), zap.Error(err))
		}
	}
	return say(msgDestinationConfirmed, model.Params{model.ParamFinalDestination: s.FinalDestination}), nil
}

func (o *Orchestrator) collectACDetails(ctx context.Context, sc *stepContext) (stepResult, error) {
	if sc.session.IncidentType != model.CaseTypeAccident {
		return o.collectRADetails(ctx, sc)
	}
	return say(msgAskInjuries, nil), nil
}

func (o *Orchestrator) collectRADetails(_ context.Context, _ *stepContext) (stepResult, error) {
	return say(msgAskMalfunction, nil), nil
}

// caseView merges persisted incident fields over the session values. The
// description is the exception: the session copy accumulates detail answers
// after classification, so a non-empty session description wins.
type caseView struct {
	caseType    model.CaseType
	description string
	location    string
	destination string
	reg         string
}

func viewOf(inc *model.Incident, s model.Session) caseView {
	v := caseView{
		caseType:    s.IncidentType,
		description: s.IncidentDescription,
		location:    s.Location,
		destination: s.FinalDestination,
		reg:         s.RegistrationNumber,
	}
	if inc == nil {
		return v
	}
	if t := inc.Type(); t != model.CaseTypeUnclassified {
		v.caseType = t
	}
	if d := model.Deref(inc.Description); d != "" && strings.TrimSpace(v.description) == "" {
		v.description = d
	}
	if l := model.Deref(inc.Location); l != "" {
		v.location = l
	}
	if d := model.Deref(inc.FinalVehicleDestination); d != "" {
		v.destination = d
	}
	if r := model.Deref(inc.RegistrationNumber); r != "" {
		v.reg = r
	}
	return v
}

func (o *Orchestrator) processRules(ctx context.Context, sc *stepContext) (stepResult, error) {
	s := sc.session

	inc, err := o.existingIncident(ctx, sc, s.CaseID)
	if err != nil {
		return stepResult{}, err
	}
	v := viewOf(inc, s)

	var (
		notices []string
		patch   model.IncidentPatch
		delta   = model.Params{}
	)

	if rules.IsDifferentPrefecture(v.location, v.destination) {
		notices = append(notices, noticeCrossPrefecture)
		delta[model.ParamIsDestinationOutPerfecture] = true
		if inc == nil || !model.Deref(inc.IsDestinationOutPerfecture) {
			patch.IsDestinationOutPerfecture = model.Ptr(true)
		}
	}

	if rules.NeedsGeolocationLink(v.location) && (inc == nil || model.Deref(inc.GeolocationLinkSent) == "") && s.GeolocationLinkSent == "" {
		link := o.opts.GeolocationURL
		notices = append(notices, fmt.Sprintf(noticeGeolocation, link))
		patch.GeolocationLinkSent = model.Ptr(link)
		delta[model.ParamGeolocationLinkSent] = link
	}

	if rules.NeedsSwornDeclaration(v.description, v.location) && (inc == nil || model.Deref(inc.ResponsibleDeclarationRequired) == "") {
		link := strings.TrimRight(o.opts.DeclarationBaseURL, "/") + "/" + s.CaseID
		notices = append(notices, fmt.Sprintf(noticeDeclaration, link))
		patch.ResponsibleDeclarationRequired = model.Ptr(link)
		delta[model.ParamNeedsSwornDeclaration] = true
	}

	fraud := 0
	if rules.HasFraudIndicators(s.CustomerName, s.PolicyHolderName, v.description) {
		fraud = 1
		sc.log.Warn("fraud indicators present", zap.String("case_id", s.CaseID))
	}
	if fraud == 1 || inc == nil || inc.IsFraudCase == nil {
		patch.IsFraudCase = model.Ptr(fraud)
	}

	if rules.IsUndergroundLocation(v.location) {
		notices = append(notices, noticeUnderground)
	}

	if inc != nil && v.description != "" && v.description != model.Deref(inc.Description) {
		patch.Description = model.Ptr(v.description)
	}

	if o.towedBefore(ctx, sc, inc, v.reg) {
		notices = append(notices, noticeSecondTow)
	}

	if inc != nil {
		if _, err := o.store.UpdateIncident(ctx, inc.ID, patch); err != nil {
			sc.log.Warn("failed to store rule results", zap.String("case_id", inc.ID), zap.Error(err))
		} else {
			o.publish(ctx, sc, inc.ID, model.EventTypeRulesApplied, v.caseType, map[string]any{"notices": len(notices)})
		}
	}

	return say(rulesMessage(notices), delta), nil
}

// towedBefore reports whether an older incident for the same vehicle already
// recorded a garage.
func (o *Orchestrator) towedBefore(ctx context.Context, sc *stepContext, current *model.Incident, reg string) bool {
	if reg == "" {
		return false
	}
	incidents, err := o.store.ListIncidentsByRegistrationNumber(ctx, reg)
	if err != nil {
		sc.log.Warn("failed to list previous incidents", zap.Error(err))
		return false
	}
	for _, prev := range olderThan(incidents, current, sc.session.CaseID) {
		if model.Deref(prev.RecommendedGarage) != "" {
			return true
		}
	}
	return false
}

// olderThan returns the incidents listed after the current one in a
// newest-first list. When the current incident is not in the list, creation
// time decides.
func olderThan(newestFirst []model.Incident, current *model.Incident, caseID string) []model.Incident {
	if current == nil {
		out := make([]model.Incident, 0, len(newestFirst))
		for _, inc := range newestFirst {
			if inc.ID != caseID {
				out = append(out, inc)
			}
		}
		return out
	}
	for i, inc := range newestFirst {
		if inc.ID == current.ID {
			return newestFirst[i+1:]
		}
	}
	var out []model.Incident
	for _, inc := range newestFirst {
		if inc.CreatedAt.Before(current.CreatedAt) {
			out = append(out, inc)
		}
	}
	return out
}

func (o *Orchestrator) finalizeCase(ctx context.Context, sc *stepContext) (stepResult, error) {
	s := sc.session

	inc, err := o.store.GetIncidentByID(ctx, s.CaseID)
	if err != nil {
		return stepResult{}, fmt.Errorf("load incident %s: %w", s.CaseID, err)
	}
	if inc == nil {
		return say(msgFinalizeNotFound, nil), nil
	}
	v := viewOf(inc, s)

	malfunction := rules.DetermineMalfunction(v.caseType, v.description)
	resolution := rules.DetermineResolution(v.caseType, malfunction)
	towing := rules.DetermineTowingNeed(v.caseType, v.description)
	fast := v.caseType == model.CaseTypeAccident && rules.IsFastTrackCase(v.description)

	patch := model.IncidentPatch{
		PossibleVehicleMalfunction: model.Ptr(malfunction),
		PossibleProblemResolution:  model.Ptr(resolution),
		IsFastCase:                 model.Ptr(fast),
	}
	if v.caseType.Valid() {
		patch.CaseType = model.Ptr(v.caseType)
	}
	if v.description != "" {
		patch.Description = model.Ptr(v.description)
	}
	if v.location != "" {
		patch.Location = model.Ptr(v.location)
	}
	if v.destination != "" {
		patch.FinalVehicleDestination = model.Ptr(v.destination)
	}
	garage := ""
	if towing && o.garages != nil {
		garage = o.garages.Recommend(v.location)
		patch.RecommendedGarage = model.Ptr(garage)
	}

	preview := *inc
	patch.Apply(&preview)
	summary := caseSummary(string(v.caseType), s.CustomerName, v.location, v.destination, v.description, malfunction, rules.Tags(&preview))
	patch.CaseSummary = model.Ptr(summary)

	if _, err := o.store.UpdateIncident(ctx, inc.ID, patch); err != nil {
		sc.log.Error("failed to finalize incident", zap.String("case_id", inc.ID), zap.Error(err))
		return say(msgFinalizeFailed, nil), nil
	}
	sc.log.Info("incident finalized",
		zap.String("case_id", inc.ID),
		zap.String("case_type", string(v.caseType)),
		zap.Bool("towing", towing),
		zap.Bool("fast_track", fast),
	)
	o.publish(ctx, sc, inc.ID, model.EventTypeFinalized, v.caseType, map[string]any{
		"malfunction": malfunction,
		"towing":      towing,
		"fast_track":  fast,
	})

	var b strings.Builder
	fmt.Fprintf(&b, msgFinalizeHeader, s.CustomerName, inc.ID)
	switch v.caseType {
	case model.CaseTypeAccident:
		b.WriteString(msgFinalizeAccident)
		if fast {
			b.WriteString(msgFinalizeFastTrack)
		}
	case model.CaseTypeRoadside:
		b.WriteString(msgFinalizeRoadside)
		if garage != "" {
			fmt.Fprintf(&b, msgFinalizeGarage, garage)
		}
	}

	return say(strings.TrimSpace(b.String()), model.Params{
		model.ParamCaseID:      nil,
		model.ParamFinalizedAt: o.opts.Now().UTC().Format(time.RFC3339),
		model.ParamIsFastCase:  fast,
	}), nil
}
