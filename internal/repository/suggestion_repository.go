package repository

import (
	"errors"

	"github.com/scioarena/scioarena/internal/model"
	"gorm.io/gorm"
)

type SuggestionRepository interface {
	Save(suggestion *model.AiGradingSuggestion) error
	FindByAnswerID(answerID uint) (*model.AiGradingSuggestion, error)
	FindByAttemptID(attemptID uint) ([]model.AiGradingSuggestion, error)
}

type suggestionRepository struct {
	db *gorm.DB
}

func NewSuggestionRepository(db *gorm.DB) SuggestionRepository {
	return &suggestionRepository{db: db}
}

func (r *suggestionRepository) Save(suggestion *model.AiGradingSuggestion) error {
	return r.db.Save(suggestion).Error
}

// FindByAnswerID returns nil when no suggestion exists for the answer yet.
func (r *suggestionRepository) FindByAnswerID(answerID uint) (*model.AiGradingSuggestion, error) {
	var suggestion model.AiGradingSuggestion
	err := r.db.Where("answer_id = ?", answerID).First(&suggestion).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &suggestion, nil
}

func (r *suggestionRepository) FindByAttemptID(attemptID uint) ([]model.AiGradingSuggestion, error) {
	var suggestions []model.AiGradingSuggestion
	err := r.db.Where("attempt_id = ?", attemptID).Find(&suggestions).Error
	return suggestions, err
}
