package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type AttemptStatus string

const (
	AttemptNotStarted AttemptStatus = "NOT_STARTED"
	AttemptInProgress AttemptStatus = "IN_PROGRESS"
	AttemptSubmitted  AttemptStatus = "SUBMITTED"
	AttemptGraded     AttemptStatus = "GRADED"
)

// IsTerminal reports whether the status counts against max-attempts and
// releases the active-attempt slot.
func (s AttemptStatus) IsTerminal() bool {
	return s == AttemptSubmitted || s == AttemptGraded
}

// attemptRank orders statuses so transitions can never regress.
func attemptRank(s AttemptStatus) int {
	switch s {
	case AttemptNotStarted:
		return 0
	case AttemptInProgress:
		return 1
	case AttemptSubmitted:
		return 2
	case AttemptGraded:
		return 3
	}
	return -1
}

// CanTransitionTo enforces the monotonic lifecycle
// NOT_STARTED -> IN_PROGRESS -> {SUBMITTED | GRADED} -> GRADED.
func (s AttemptStatus) CanTransitionTo(next AttemptStatus) bool {
	return attemptRank(next) > attemptRank(s)
}

type Attempt struct {
	ID           uint `gorm:"primarykey" json:"id"`
	TestID       uint `json:"test_id" gorm:"not null;index"`
	Test         Test `json:"test,omitempty" gorm:"foreignKey:TestID"`
	MembershipID uint `json:"membership_id" gorm:"not null;index"`

	Status AttemptStatus `json:"status" gorm:"not null;default:'IN_PROGRESS'"`

	// ActiveKey is "<membership>:<test>" while the attempt is non-terminal and
	// NULL afterwards. The unique index is what guarantees at most one live
	// attempt per (membership, test) even under concurrent starts.
	ActiveKey *string `json:"-" gorm:"uniqueIndex"`

	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`

	GradeEarned     *float64 `json:"grade_earned,omitempty"`
	ProctoringScore *float64 `json:"proctoring_score,omitempty"`

	TabSwitchCount     int `json:"tab_switch_count" gorm:"default:0"`
	TimeOffPageSeconds int `json:"time_off_page_seconds" gorm:"default:0"`

	// Forensic metadata captured at start and submit; never used as identity.
	StartFingerprint  string `json:"-"`
	StartIP           string `json:"-" gorm:"size:45"`
	StartUserAgent    string `json:"-" gorm:"type:text"`
	SubmitFingerprint string `json:"-"`
	SubmitIP          string `json:"-" gorm:"size:45"`
	SubmitUserAgent   string `json:"-" gorm:"type:text"`

	Answers []Answer `json:"answers,omitempty" gorm:"foreignKey:AttemptID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ActiveKeyFor builds the uniqueness guard value for a live attempt.
func ActiveKeyFor(membershipID, testID uint) string {
	return fmt.Sprintf("%d:%d", membershipID, testID)
}
