package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SuggestionStatus string

const (
	SuggestionPending   SuggestionStatus = "pending"
	SuggestionCompleted SuggestionStatus = "completed"
	SuggestionFailed    SuggestionStatus = "failed"
)

// AiGradingSuggestion holds at most one advisory AI score per answer.
// Re-requesting a suggestion supersedes the existing row in place.
type AiGradingSuggestion struct {
	ID        uint `gorm:"primarykey" json:"id"`
	AttemptID uint `json:"attempt_id" gorm:"not null;index"`
	AnswerID  uint `json:"answer_id" gorm:"not null;uniqueIndex"`

	SuggestedPoints *float64 `json:"suggested_points,omitempty"`
	MaxPoints       float64  `json:"max_points"`

	Summary         string `json:"summary,omitempty" gorm:"type:text"`
	Strengths       string `json:"strengths,omitempty" gorm:"type:text"`
	Gaps            string `json:"gaps,omitempty" gorm:"type:text"`
	RubricAlignment string `json:"rubric_alignment,omitempty" gorm:"type:text"`

	// RawResponse carries the provider payload; for multi-part questions it
	// encodes the per-part breakdown (see service.PartSuggestion).
	RawResponse datatypes.JSON `json:"raw_response,omitempty"`

	Status SuggestionStatus `json:"status" gorm:"not null;default:'pending'"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
