// Package store persists users and incidents.
package store

import (
	"context"
	"errors"

	"github.com/hellas-direct/intake-assistant/internal/model"
)

var (
	// ErrNotFound is returned by updates that target a missing row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a registration number is already taken.
	ErrDuplicate = errors.New("duplicate registration number")
	// ErrInvalidInput is returned for calls missing a required argument.
	ErrInvalidInput = errors.New("invalid input")
)

var (
	_ Gateway = (*MemoryStore)(nil)
	_ Gateway = (*PostgresStore)(nil)
)

// Gateway is the data-access contract the conversation flow depends on.
// Lookups return nil, nil when nothing matches. Calls are never retried.
type Gateway interface {
	CreateUser(ctx context.Context, fields model.UserPatch) (*model.User, error)
	UpdateUser(ctx context.Context, id string, fields model.UserPatch) (*model.User, error)
	GetUserByRegistrationNumber(ctx context.Context, registrationNumber string) (*model.User, error)

	CreateIncident(ctx context.Context, userID string, fields model.IncidentPatch) (*model.Incident, error)
	UpdateIncident(ctx context.Context, id string, fields model.IncidentPatch) (*model.Incident, error)
	ReassignIncident(ctx context.Context, id, userID string) (*model.Incident, error)
	GetIncidentByID(ctx context.Context, id string) (*model.Incident, error)
	// ListIncidentsByRegistrationNumber returns newest first.
	ListIncidentsByRegistrationNumber(ctx context.Context, registrationNumber string) ([]model.Incident, error)

	Ping(ctx context.Context) error
}
