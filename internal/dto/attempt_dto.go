package dto

import (
	"encoding/json"
	"time"

	"github.com/scioarena/scioarena/internal/model"
)

// StartAttemptDTO carries what a client sends to start or resume an attempt.
type StartAttemptDTO struct {
	Fingerprint string  `json:"fingerprint,omitempty"`
	Password    *string `json:"password,omitempty"`
}

// AnswerUpsertDTO is one answer to a question; exactly one payload field is
// meaningful depending on the question type.
type AnswerUpsertDTO struct {
	QuestionID        uint     `json:"question_id" binding:"required"`
	SelectedOptionIDs []uint   `json:"selected_option_ids,omitempty"`
	NumericAnswer     *float64 `json:"numeric_answer,omitempty"`
	AnswerText        string   `json:"answer_text,omitempty"`
}

// ProctorEventDTO is one behavioral signal observed by the client.
type ProctorEventDTO struct {
	Kind       string          `json:"kind" binding:"required"`
	OccurredAt time.Time       `json:"occurred_at" binding:"required"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// SubmitAttemptDTO carries the final answer state and the trailing batch of
// proctor events recorded since the last flush.
type SubmitAttemptDTO struct {
	Fingerprint   string            `json:"fingerprint,omitempty"`
	Answers       []AnswerUpsertDTO `json:"answers,omitempty" binding:"omitempty,dive"`
	ProctorEvents []ProctorEventDTO `json:"proctor_events,omitempty" binding:"omitempty,dive"`
}

type AnswerResponseDTO struct {
	ID                uint                `json:"id"`
	QuestionID        uint                `json:"question_id"`
	Question          QuestionResponseDTO `json:"question,omitempty"`
	SelectedOptionIDs []uint              `json:"selected_option_ids,omitempty"`
	NumericAnswer     *float64            `json:"numeric_answer,omitempty"`
	AnswerText        string              `json:"answer_text,omitempty"`
	PointsAwarded     *float64            `json:"points_awarded,omitempty"`
	NeedsManualGrade  bool                `json:"needs_manual_grade"`
	GradedAt          *time.Time          `json:"graded_at,omitempty"`
	GraderNote        string              `json:"grader_note,omitempty"`
}

type AttemptDetailDTO struct {
	ID                 uint                `json:"id"`
	TestID             uint                `json:"test_id"`
	TestTitle          string              `json:"test_title,omitempty"`
	MembershipID       uint                `json:"membership_id"`
	Status             model.AttemptStatus `json:"status"`
	StartedAt          time.Time           `json:"started_at"`
	SubmittedAt        *time.Time          `json:"submitted_at,omitempty"`
	GradeEarned        *float64            `json:"grade_earned,omitempty"`
	ProctoringScore    *float64            `json:"proctoring_score,omitempty"`
	TabSwitchCount     int                 `json:"tab_switch_count"`
	TimeOffPageSeconds int                 `json:"time_off_page_seconds"`
	Answers            []AnswerResponseDTO `json:"answers,omitempty"`
}

type AttemptSummaryDTO struct {
	ID              uint                `json:"id"`
	TestID          uint                `json:"test_id"`
	MembershipID    uint                `json:"membership_id"`
	Status          model.AttemptStatus `json:"status"`
	StartedAt       time.Time           `json:"started_at"`
	SubmittedAt     *time.Time          `json:"submitted_at,omitempty"`
	GradeEarned     *float64            `json:"grade_earned,omitempty"`
	ProctoringScore *float64            `json:"proctoring_score,omitempty"`
}

// SubmitResultDTO is the submit response payload.
type SubmitResultDTO struct {
	Attempt            AttemptDetailDTO `json:"attempt"`
	NeedsManualGrading bool             `json:"needs_manual_grading"`
	ProctoringScore    float64          `json:"proctoring_score"`
}

// AttemptResultDTO is the score-release-filtered student view. When Released
// is false every other field is absent.
type AttemptResultDTO struct {
	Released        bool                   `json:"released"`
	ReleaseMode     model.ScoreReleaseMode `json:"release_mode,omitempty"`
	AttemptID       uint                   `json:"attempt_id,omitempty"`
	Status          model.AttemptStatus    `json:"status,omitempty"`
	GradeEarned     *float64               `json:"grade_earned,omitempty"`
	MaxPoints       *float64               `json:"max_points,omitempty"`
	ProctoringScore *float64               `json:"proctoring_score,omitempty"`
	Answers         []AnswerResponseDTO    `json:"answers,omitempty"`
}
