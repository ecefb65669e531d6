package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Answer is one per (attempt, question), upserted rather than duplicated.
type Answer struct {
	ID         uint     `gorm:"primarykey" json:"id"`
	AttemptID  uint     `json:"attempt_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`
	QuestionID uint     `json:"question_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`
	Question   Question `json:"question,omitempty" gorm:"foreignKey:QuestionID"`

	SelectedOptionIDs datatypes.JSONSlice[uint] `json:"selected_option_ids,omitempty"`
	NumericAnswer     *float64                  `json:"numeric_answer,omitempty"`
	AnswerText        string                    `json:"answer_text,omitempty" gorm:"type:text"`

	PointsAwarded    *float64   `json:"points_awarded,omitempty"`
	NeedsManualGrade bool       `json:"needs_manual_grade" gorm:"default:false"`
	GradedAt         *time.Time `json:"graded_at,omitempty"`
	GraderNote       string     `json:"grader_note,omitempty" gorm:"type:text"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
