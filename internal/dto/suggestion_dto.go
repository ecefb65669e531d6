package dto

import (
	"encoding/json"

	"github.com/scioarena/scioarena/internal/model"
)

// SuggestionRequestDTO asks for AI grading suggestions for one answer or for
// every answer of the attempt that needs manual grading.
type SuggestionRequestDTO struct {
	AnswerID  *uint `json:"answer_id,omitempty"` // nil means "all"
	PartIndex *int  `json:"part_index,omitempty"`
}

type SuggestionDTO struct {
	ID              uint                   `json:"id"`
	AttemptID       uint                   `json:"attempt_id"`
	AnswerID        uint                   `json:"answer_id"`
	SuggestedPoints *float64               `json:"suggested_points,omitempty"`
	MaxPoints       float64                `json:"max_points"`
	Summary         string                 `json:"summary,omitempty"`
	Strengths       string                 `json:"strengths,omitempty"`
	Gaps            string                 `json:"gaps,omitempty"`
	RubricAlignment string                 `json:"rubric_alignment,omitempty"`
	RawResponse     json.RawMessage        `json:"raw_response,omitempty"`
	Status          model.SuggestionStatus `json:"status"`
}
