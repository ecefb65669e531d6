package model

import (
	"time"

	"gorm.io/gorm"
)

type TestStatus string

const (
	TestStatusDraft     TestStatus = "DRAFT"
	TestStatusPublished TestStatus = "PUBLISHED"
	TestStatusClosed    TestStatus = "CLOSED"
)

type ScopeKind string

const (
	ScopeClub            ScopeKind = "club"
	ScopeTournamentEvent ScopeKind = "tournament_event"
)

type ScoreReleaseMode string

const (
	ReleaseNone           ScoreReleaseMode = "NONE"
	ReleaseScoreOnly      ScoreReleaseMode = "SCORE_ONLY"
	ReleaseScoreWithWrong ScoreReleaseMode = "SCORE_WITH_WRONG"
	ReleaseFullTest       ScoreReleaseMode = "FULL_TEST"
)

// Test is the single definition entity for both club-owned and
// tournament-event-owned tests; ScopeKind discriminates ownership.
type Test struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Title        string    `json:"title" gorm:"not null"`
	Description  string    `json:"description,omitempty"`
	ScopeKind    ScopeKind `json:"scope_kind" gorm:"not null;index"`
	ClubID       *uint     `json:"club_id,omitempty" gorm:"index"`
	TournamentID *uint     `json:"tournament_id,omitempty" gorm:"index"`
	EventID      *uint     `json:"event_id,omitempty"`

	Status          TestStatus `json:"status" gorm:"not null;default:'DRAFT'"`
	StartAt         *time.Time `json:"start_at,omitempty"`
	EndAt           *time.Time `json:"end_at,omitempty"`
	AllowLateUntil  *time.Time `json:"allow_late_until,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	MaxAttempts     *int       `json:"max_attempts,omitempty"` // nil = unlimited

	ScoreReleaseMode ScoreReleaseMode `json:"score_release_mode" gorm:"not null;default:'NONE'"`
	ReleaseScoresAt  *time.Time       `json:"release_scores_at,omitempty"`
	ScoresReleased   bool             `json:"scores_released" gorm:"default:false"`

	PasswordHash *string `json:"-"`

	Questions []Question     `json:"questions,omitempty" gorm:"foreignKey:TestID"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *Test) HasPassword() bool {
	return t.PasswordHash != nil && *t.PasswordHash != ""
}
