package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hellas-direct/intake-assistant/internal/model"
)

// MemoryStore keeps users and incidents in process. It backs local
// development when no database is configured, and the tests.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]*model.User
	byRegNo   map[string]string
	incidents map[string]*model.Incident
	order     map[string]uint64
	seq       uint64
	now       func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]*model.User),
		byRegNo:   make(map[string]string),
		incidents: make(map[string]*model.Incident),
		order:     make(map[string]uint64),
		now:       time.Now,
	}
}

// WithClock overrides the creation timestamp source.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func regKey(registrationNumber string) string {
	return strings.TrimSpace(registrationNumber)
}

// CreateUser inserts a user. A taken registration number yields ErrDuplicate.
func (s *MemoryStore) CreateUser(ctx context.Context, fields model.UserPatch) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fields.RegistrationNumber != nil {
		if _, taken := s.byRegNo[regKey(*fields.RegistrationNumber)]; taken {
			return nil, fmt.Errorf("create user %q: %w", *fields.RegistrationNumber, ErrDuplicate)
		}
	}

	user := &model.User{
		ID:        uuid.Must(uuid.NewV7()).String(),
		CreatedAt: s.now().UTC(),
	}
	fields.Apply(user)
	s.users[user.ID] = user
	if user.RegistrationNumber != nil {
		s.byRegNo[regKey(*user.RegistrationNumber)] = user.ID
	}

	out := *user
	return &out, nil
}

// UpdateUser applies a partial update.
func (s *MemoryStore) UpdateUser(ctx context.Context, id string, fields model.UserPatch) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("update user %s: %w", id, ErrNotFound)
	}

	if fields.RegistrationNumber != nil {
		key := regKey(*fields.RegistrationNumber)
		if owner, taken := s.byRegNo[key]; taken && owner != id {
			return nil, fmt.Errorf("update user %s: %w", id, ErrDuplicate)
		}
		if user.RegistrationNumber != nil {
			delete(s.byRegNo, regKey(*user.RegistrationNumber))
		}
		s.byRegNo[key] = id
	}
	fields.Apply(user)

	out := *user
	return &out, nil
}

// GetUserByRegistrationNumber returns nil, nil when no user matches.
func (s *MemoryStore) GetUserByRegistrationNumber(ctx context.Context, registrationNumber string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byRegNo[regKey(registrationNumber)]
	if !ok {
		return nil, nil
	}
	out := *s.users[id]
	return &out, nil
}

// CreateIncident inserts an incident owned by userID.
func (s *MemoryStore) CreateIncident(ctx context.Context, userID string, fields model.IncidentPatch) (*model.Incident, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("create incident: user id is required: %w", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, fmt.Errorf("create incident: owner %s: %w", userID, ErrNotFound)
	}

	inc := &model.Incident{
		ID:        uuid.Must(uuid.NewV7()).String(),
		CreatedAt: s.now().UTC(),
		UserID:    userID,
	}
	fields.Apply(inc)
	s.seq++
	s.incidents[inc.ID] = inc
	s.order[inc.ID] = s.seq

	return cloneIncident(inc), nil
}

// UpdateIncident applies a partial update.
func (s *MemoryStore) UpdateIncident(ctx context.Context, id string, fields model.IncidentPatch) (*model.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inc, ok := s.incidents[id]
	if !ok {
		return nil, fmt.Errorf("update incident %s: %w", id, ErrNotFound)
	}
	fields.Apply(inc)
	return cloneIncident(inc), nil
}

// ReassignIncident moves an incident to a different owner.
func (s *MemoryStore) ReassignIncident(ctx context.Context, id, userID string) (*model.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inc, ok := s.incidents[id]
	if !ok {
		return nil, fmt.Errorf("reassign incident %s: %w", id, ErrNotFound)
	}
	if _, ok := s.users[userID]; !ok {
		return nil, fmt.Errorf("reassign incident %s: owner %s: %w", id, userID, ErrNotFound)
	}
	inc.UserID = userID
	return cloneIncident(inc), nil
}

// GetIncidentByID returns nil, nil when the incident does not exist.
func (s *MemoryStore) GetIncidentByID(ctx context.Context, id string) (*model.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inc, ok := s.incidents[id]
	if !ok {
		return nil, nil
	}
	return cloneIncident(inc), nil
}

// ListIncidentsByRegistrationNumber returns matching incidents, newest first.
func (s *MemoryStore) ListIncidentsByRegistrationNumber(ctx context.Context, registrationNumber string) ([]model.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := regKey(registrationNumber)
	var out []model.Incident
	for _, inc := range s.incidents {
		if inc.RegistrationNumber != nil && regKey(*inc.RegistrationNumber) == key {
			out = append(out, *cloneIncident(inc))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.order[out[i].ID] > s.order[out[j].ID]
	})
	return out, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func cloneIncident(inc *model.Incident) *model.Incident {
	out := *inc
	if inc.Images != nil {
		out.Images = append([]string(nil), inc.Images...)
	}
	return &out
}
