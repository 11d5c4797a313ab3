// Package model defines the data structures shared by the intake assistant.
package model

import (
	"time"
)

// User is a policy holder or vehicle registrant.
type User struct {
	ID                 string     `json:"id"`
	CreatedAt          time.Time  `json:"created_at"`
	FullName           *string    `json:"full_name"`
	RegistrationNumber *string    `json:"registration_number"`
	AFM                *string    `json:"afm"`
	PhoneNumber        *string    `json:"phone_number"`
	Email              *string    `json:"email"`
	Address            *string    `json:"address"`
	StartingDate       *time.Time `json:"starting_date"`
	EndingAt           *time.Time `json:"ending_at"`
}

// PolicyActive reports whether the policy window covers now.
// Both ends of the window are inclusive; a missing end means inactive.
func (u *User) PolicyActive(now time.Time) bool {
	if u == nil || u.StartingDate == nil || u.EndingAt == nil {
		return false
	}
	return !now.Before(*u.StartingDate) && !now.After(*u.EndingAt)
}

// DisplayName returns the full name or an empty string.
func (u *User) DisplayName() string {
	if u == nil || u.FullName == nil {
		return ""
	}
	return *u.FullName
}

// UserPatch carries a partial user update. Nil fields are left unchanged.
type UserPatch struct {
	FullName           *string    `json:"full_name,omitempty"`
	RegistrationNumber *string    `json:"registration_number,omitempty"`
	AFM                *string    `json:"afm,omitempty"`
	PhoneNumber        *string    `json:"phone_number,omitempty"`
	Email              *string    `json:"email,omitempty"`
	Address            *string    `json:"address,omitempty"`
	StartingDate       *time.Time `json:"starting_date,omitempty"`
	EndingAt           *time.Time `json:"ending_at,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p == UserPatch{}
}

// Apply copies the set fields of the patch onto u.
func (p UserPatch) Apply(u *User) {
	if p.FullName != nil {
		u.FullName = p.FullName
	}
	if p.RegistrationNumber != nil {
		u.RegistrationNumber = p.RegistrationNumber
	}
	if p.AFM != nil {
		u.AFM = p.AFM
	}
	if p.PhoneNumber != nil {
		u.PhoneNumber = p.PhoneNumber
	}
	if p.Email != nil {
		u.Email = p.Email
	}
	if p.Address != nil {
		u.Address = p.Address
	}
	if p.StartingDate != nil {
		u.StartingDate = p.StartingDate
	}
	if p.EndingAt != nil {
		u.EndingAt = p.EndingAt
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns the pointed-to value or the zero value.
func Deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
