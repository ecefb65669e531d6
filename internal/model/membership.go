package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MembershipRole string

const (
	RoleMember   MembershipRole = "member"
	RoleStaff    MembershipRole = "staff"
	RoleAdmin    MembershipRole = "admin"
	RoleDirector MembershipRole = "director"
)

// Membership is a user's identity within one club or tournament scope.
// Attempts are keyed against memberships, not raw user ids.
type Membership struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	UserID       uint           `json:"user_id" gorm:"not null;index"`
	ScopeKind    ScopeKind      `json:"scope_kind" gorm:"not null"`
	ClubID       *uint          `json:"club_id,omitempty" gorm:"index"`
	TournamentID *uint          `json:"tournament_id,omitempty" gorm:"index"`
	Role         MembershipRole `json:"role" gorm:"not null;default:'member'"`

	// EventIDs lists tournament events the member is assigned to take.
	EventIDs datatypes.JSONSlice[uint] `json:"event_ids,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsPrivileged reports whether the role bypasses assignment, password and
// max-attempt checks. Scheduling checks still apply.
func (m *Membership) IsPrivileged() bool {
	return m.Role == RoleAdmin || m.Role == RoleStaff || m.Role == RoleDirector
}

// AssignedToEvent reports whether the member may sit tests of the given event.
func (m *Membership) AssignedToEvent(eventID uint) bool {
	for _, id := range m.EventIDs {
		if id == eventID {
			return true
		}
	}
	return false
}
