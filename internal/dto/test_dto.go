package dto

import (
	"time"

	"github.com/scioarena/scioarena/internal/model"
)

// OptionCreateDTO is used within QuestionCreateDTO for admin test creation.
type OptionCreateDTO struct {
	Label           string `json:"label" binding:"required"`
	IsCorrect       bool   `json:"is_correct"`
	OrderInQuestion int    `json:"order_in_question" binding:"required,min=1"`
}

// QuestionCreateDTO is used within TestCreateDTO for admin test creation.
type QuestionCreateDTO struct {
	Type             string            `json:"type" binding:"required,oneof=MCQ_SINGLE MCQ_MULTI SHORT_TEXT LONG_TEXT NUMERIC"`
	PromptMd         string            `json:"prompt_md" binding:"required"`
	Points           float64           `json:"points" binding:"required,gt=0"`
	OrderInTest      int               `json:"order_in_test" binding:"required,min=1"`
	CorrectText      *string           `json:"correct_text,omitempty"`
	NumericAnswer    *float64          `json:"numeric_answer,omitempty"`
	NumericTolerance *float64          `json:"numeric_tolerance,omitempty"`
	Explanation      *string           `json:"explanation,omitempty"`
	Options          []OptionCreateDTO `json:"options,omitempty" binding:"omitempty,dive"`
}

// TestCreateDTO is for admins to create a new draft test with its questions.
type TestCreateDTO struct {
	Title            string              `json:"title" binding:"required"`
	Description      string              `json:"description,omitempty"`
	ScopeKind        string              `json:"scope_kind" binding:"required,oneof=club tournament_event"`
	ClubID           *uint               `json:"club_id,omitempty"`
	TournamentID     *uint               `json:"tournament_id,omitempty"`
	EventID          *uint               `json:"event_id,omitempty"`
	StartAt          *time.Time          `json:"start_at,omitempty"`
	EndAt            *time.Time          `json:"end_at,omitempty"`
	AllowLateUntil   *time.Time          `json:"allow_late_until,omitempty"`
	DurationMinutes  int                 `json:"duration_minutes"`
	MaxAttempts      *int                `json:"max_attempts,omitempty"`
	ScoreReleaseMode string              `json:"score_release_mode" binding:"omitempty,oneof=NONE SCORE_ONLY SCORE_WITH_WRONG FULL_TEST"`
	ReleaseScoresAt  *time.Time          `json:"release_scores_at,omitempty"`
	Password         *string             `json:"password,omitempty"`
	Questions        []QuestionCreateDTO `json:"questions" binding:"required,min=1,dive"`
}

// OptionResponseDTO hides IsCorrect unless the caller may see answer keys.
type OptionResponseDTO struct {
	ID              uint   `json:"id"`
	Label           string `json:"label"`
	IsCorrect       *bool  `json:"is_correct,omitempty"`
	OrderInQuestion int    `json:"order_in_question"`
}

type QuestionResponseDTO struct {
	ID               uint               `json:"id"`
	TestID           uint               `json:"test_id"`
	Type             model.QuestionType `json:"type"`
	PromptMd         string             `json:"prompt_md"`
	Points           float64            `json:"points"`
	OrderInTest      int                `json:"order_in_test"`
	NumericTolerance *float64           `json:"numeric_tolerance,omitempty"`

	// Answer-key fields, present only in staff views.
	CorrectText   *string  `json:"correct_text,omitempty"`
	NumericAnswer *float64 `json:"numeric_answer,omitempty"`
	Explanation   *string  `json:"explanation,omitempty"`

	Options []OptionResponseDTO `json:"options,omitempty"`
}

type TestResponseDTO struct {
	ID               uint                   `json:"id"`
	Title            string                 `json:"title"`
	Description      string                 `json:"description,omitempty"`
	ScopeKind        model.ScopeKind        `json:"scope_kind"`
	ClubID           *uint                  `json:"club_id,omitempty"`
	TournamentID     *uint                  `json:"tournament_id,omitempty"`
	EventID          *uint                  `json:"event_id,omitempty"`
	Status           model.TestStatus       `json:"status"`
	StartAt          *time.Time             `json:"start_at,omitempty"`
	EndAt            *time.Time             `json:"end_at,omitempty"`
	AllowLateUntil   *time.Time             `json:"allow_late_until,omitempty"`
	DurationMinutes  int                    `json:"duration_minutes"`
	MaxAttempts      *int                   `json:"max_attempts,omitempty"`
	ScoreReleaseMode model.ScoreReleaseMode `json:"score_release_mode"`
	ReleaseScoresAt  *time.Time             `json:"release_scores_at,omitempty"`
	HasPassword      bool                   `json:"has_password"`
	Questions        []QuestionResponseDTO  `json:"questions,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

// TestSummaryDTO is used for listing tests available to users.
type TestSummaryDTO struct {
	ID            uint             `json:"id"`
	Title         string           `json:"title"`
	Description   string           `json:"description,omitempty"`
	ScopeKind     model.ScopeKind  `json:"scope_kind"`
	Status        model.TestStatus `json:"status"`
	StartAt       *time.Time       `json:"start_at,omitempty"`
	EndAt         *time.Time       `json:"end_at,omitempty"`
	QuestionCount int              `json:"question_count"`
	CreatedAt     time.Time        `json:"created_at"`
}

type ErrorResponse struct {
	Code    string   `json:"code,omitempty"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}
