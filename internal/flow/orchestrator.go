// Package flow implements the tag-driven conversation state machine behind
// the dialogue webhook.
package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hellas-direct/intake-assistant/internal/model"
	"github.com/hellas-direct/intake-assistant/internal/store"
	"github.com/hellas-direct/intake-assistant/pkg/logger"
	"github.com/hellas-direct/intake-assistant/pkg/metrics"
	"github.com/hellas-direct/intake-assistant/pkg/tracing"
)

// Step outcomes reported to metrics.
const (
	outcomeOK       = "ok"
	outcomeReprompt = "reprompt"
	outcomeAbort    = "abort"
	outcomeError    = "error"
	outcomeUnknown  = "unknown"
)

// Recommender picks a partner garage for a location.
type Recommender interface {
	Recommend(location string) string
}

// EventPublisher receives incident lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event model.IncidentEvent) error
}

// Options configures links and the clock.
type Options struct {
	GeolocationURL     string
	DeclarationBaseURL string
	Now                func() time.Time
}

// Turn is one inbound webhook call.
type Turn struct {
	Tag           string
	SessionID     string
	Text          string
	LanguageCode  string
	Params        model.Params
	CorrelationID string
}

// Reply is what the orchestrator hands back to the transport. Params is a
// delta; keys mapped to nil must be cleared by the caller.
type Reply struct {
	Messages []string
	Params   model.Params
	Failed   bool
}

type stepResult struct {
	messages []string
	delta    model.Params
}

func say(msg string, delta model.Params) stepResult {
	return stepResult{messages: []string{msg}, delta: delta}
}

type stepContext struct {
	turn    Turn
	params  model.Params
	session model.Session
	log     *logger.Logger
}

type stepFunc func(ctx context.Context, sc *stepContext) (stepResult, error)

// Orchestrator routes turns to step handlers.
type Orchestrator struct {
	store   store.Gateway
	garages Recommender
	events  EventPublisher
	log     *logger.Logger
	tracer  trace.Tracer
	opts    Options
	steps   map[string]stepFunc
}

// New creates an orchestrator. events may be nil.
func New(gw store.Gateway, garages Recommender, events EventPublisher, log *logger.Logger, opts Options) *Orchestrator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.NewNop()
	}
	o := &Orchestrator{
		store:   gw,
		garages: garages,
		events:  events,
		log:     log,
		tracer:  tracing.Tracer("github.com/hellas-direct/intake-assistant/internal/flow"),
		opts:    opts,
	}
	o.steps = map[string]stepFunc{
		StepGreeting:            o.greeting,
		StepCollectRegistration: o.collectRegistration,
		StepCollectCustomerName: o.collectCustomerName,
		StepClassifyIncident:    o.classifyIncident,
		StepCollectLocation:     o.collectLocation,
		StepCollectDestination:  o.collectDestination,
		StepCollectACDetails:    o.collectACDetails,
		StepCollectRADetails:    o.collectRADetails,
		StepProcessRules:        o.processRules,
		StepFinalizeCase:        o.finalizeCase,
	}
	return o
}

// Known reports whether tag names a step.
func (o *Orchestrator) Known(tag string) bool {
	_, ok := o.steps[tag]
	return ok
}

// HandleStep runs one turn. It never returns an error: failures become the
// standard apology reply with the webhook-error flag set.
func (o *Orchestrator) HandleStep(ctx context.Context, t Turn) (reply Reply) {
	start := time.Now()
	log := o.log.WithTurn(t.CorrelationID, t.SessionID, t.Tag)

	// Tags come from callers; only known ones become label values.
	step, ok := o.steps[t.Tag]
	label := t.Tag
	if !ok {
		label = outcomeUnknown
	}

	ctx, span := o.tracer.Start(ctx, "flow."+label, trace.WithAttributes(
		attribute.String("flow.step", label),
		attribute.String("flow.session_id", t.SessionID),
	))
	outcome := outcomeOK
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			log.Error("step panicked", zap.Error(err))
			span.RecordError(err)
			reply = failed()
			outcome = outcomeError
		}
		span.SetAttributes(attribute.String("flow.outcome", outcome))
		span.End()
		metrics.RecordStep(label, outcome, time.Since(start).Seconds())
	}()

	if !ok {
		log.Debug("unknown step tag")
		outcome = outcomeUnknown
		return Reply{Messages: []string{msgNotUnderstood}, Params: model.Params{}}
	}

	params := t.Params
	if params == nil {
		params = model.Params{}
	}

	if req, missing := unmet(t.Tag, params); missing {
		log.Debug("step precondition not met", zap.Stringer("kind", req.kind))
		if req.kind == abort {
			outcome = outcomeAbort
		} else {
			outcome = outcomeReprompt
		}
		return Reply{Messages: []string{req.reply}, Params: model.Params{}}
	}

	sc := &stepContext{
		turn:    t,
		params:  params,
		session: model.DecodeSession(params),
		log:     log,
	}
	res, err := step(ctx, sc)
	if err != nil {
		log.Error("step failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		outcome = outcomeError
		return failed()
	}

	if res.delta == nil {
		res.delta = model.Params{}
	}
	return Reply{Messages: res.messages, Params: res.delta}
}

func failed() Reply {
	return Reply{
		Messages: []string{msgInternalError},
		Params:   model.Params{model.ParamWebhookError: true},
		Failed:   true,
	}
}

// publish sends a lifecycle event. Failures are logged only.
func (o *Orchestrator) publish(ctx context.Context, sc *stepContext, incidentID string, typ model.EventType, caseType model.CaseType, meta map[string]any) {
	if o.events == nil || incidentID == "" {
		return
	}
	event := model.IncidentEvent{
		ID:         uuid.Must(uuid.NewV7()).String(),
		IncidentID: incidentID,
		SessionID:  sc.turn.SessionID,
		Type:       typ,
		CaseType:   caseType,
		Metadata:   meta,
		CreatedAt:  o.opts.Now().UTC(),
	}
	if err := o.events.Publish(ctx, event); err != nil {
		sc.log.Warn("failed to publish incident event",
			zap.String("incident_id", incidentID),
			zap.String("event_type", string(typ)),
			zap.Error(err),
		)
	}
}
