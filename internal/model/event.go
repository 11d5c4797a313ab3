package model

import (
	"time"
)

// EventType represents the type of incident lifecycle event.
type EventType string

const (
	EventTypeCreated      EventType = "created"
	EventTypeReassigned   EventType = "reassigned"
	EventTypeClassified   EventType = "classified"
	EventTypeRulesApplied EventType = "rules_applied"
	EventTypeFinalized    EventType = "finalized"
	EventTypeImageAdded   EventType = "image_added"
)

// IncidentEvent is published whenever the flow changes an incident in a way
// the operations dashboard cares about.
type IncidentEvent struct {
	ID         string         `json:"id"`
	IncidentID string         `json:"incident_id"`
	SessionID  string         `json:"session_id,omitempty"`
	Type       EventType      `json:"type"`
	CaseType   CaseType       `json:"case_type,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	Sequence   uint64         `json:"sequence,omitempty"`
}
