package repository

import (
	"errors"

	"github.com/scioarena/scioarena/internal/model"
	"gorm.io/gorm"
)

type AnswerRepository interface {
	Save(answer *model.Answer) error
	FindByID(id uint) (*model.Answer, error)
	FindByAttemptID(attemptID uint) ([]model.Answer, error)
	FindByAttemptAndQuestion(attemptID, questionID uint) (*model.Answer, error)
}

type answerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) Save(answer *model.Answer) error {
	return r.db.Save(answer).Error
}

func (r *answerRepository) FindByID(id uint) (*model.Answer, error) {
	var answer model.Answer
	if err := r.db.Preload("Question.Options").First(&answer, id).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

func (r *answerRepository) FindByAttemptID(attemptID uint) ([]model.Answer, error) {
	var answers []model.Answer
	err := r.db.
		Preload("Question.Options").
		Where("attempt_id = ?", attemptID).
		Find(&answers).Error
	return answers, err
}

// FindByAttemptAndQuestion returns nil when no answer has been stored yet.
func (r *answerRepository) FindByAttemptAndQuestion(attemptID, questionID uint) (*model.Answer, error) {
	var answer model.Answer
	err := r.db.Where("attempt_id = ? AND question_id = ?", attemptID, questionID).First(&answer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &answer, nil
}
