package model

import (
	"time"

	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionMCQSingle QuestionType = "MCQ_SINGLE"
	QuestionMCQMulti  QuestionType = "MCQ_MULTI"
	QuestionShortText QuestionType = "SHORT_TEXT"
	QuestionLongText  QuestionType = "LONG_TEXT"
	QuestionNumeric   QuestionType = "NUMERIC"
)

type Question struct {
	ID          uint         `gorm:"primarykey" json:"id"`
	TestID      uint         `json:"test_id" gorm:"not null;uniqueIndex:idx_question_order"`
	Type        QuestionType `json:"type" gorm:"not null"`
	PromptMd    string       `json:"prompt_md" gorm:"type:text;not null"`
	Points      float64      `json:"points" gorm:"not null"`
	OrderInTest int          `json:"order_in_test" gorm:"not null;uniqueIndex:idx_question_order"`

	// CorrectText holds the answer key for auto-gradable text questions.
	// For fill-in-the-blank prompts the per-blank keys are joined by " | ".
	CorrectText      *string  `json:"-" gorm:"type:text"`
	NumericAnswer    *float64 `json:"-"`
	NumericTolerance *float64 `json:"numeric_tolerance,omitempty"`
	Explanation      *string  `json:"explanation,omitempty" gorm:"type:text"`

	Options []Option `json:"options,omitempty" gorm:"foreignKey:QuestionID"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type Option struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	QuestionID      uint           `json:"question_id" gorm:"not null;index"`
	Label           string         `json:"label" gorm:"not null"`
	IsCorrect       bool           `json:"is_correct" gorm:"not null;default:false"`
	OrderInQuestion int            `json:"order_in_question" gorm:"not null"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// CorrectOptionIDs returns the set of option ids flagged correct.
func (q *Question) CorrectOptionIDs() map[uint]bool {
	ids := make(map[uint]bool)
	for _, o := range q.Options {
		if o.IsCorrect {
			ids[o.ID] = true
		}
	}
	return ids
}
