package repository

import (
	"errors"

	"github.com/scioarena/scioarena/internal/model"
	"gorm.io/gorm"
)

type AttemptRepository interface {
	Create(attempt *model.Attempt) error
	Save(attempt *model.Attempt) error
	FindByID(id uint) (*model.Attempt, error)
	FindByIDWithDetails(id uint) (*model.Attempt, error)
	FindActive(membershipID, testID uint) (*model.Attempt, error)
	CountTerminal(membershipID, testID uint) (int64, error)
	FindAllByTest(testID uint) ([]model.Attempt, error)
	FindAllByTestAndMembership(testID, membershipID uint) ([]model.Attempt, error)
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Create(attempt *model.Attempt) error {
	return r.db.Create(attempt).Error
}

func (r *attemptRepository) Save(attempt *model.Attempt) error {
	return r.db.Save(attempt).Error
}

func (r *attemptRepository) FindByID(id uint) (*model.Attempt, error) {
	var attempt model.Attempt
	if err := r.db.First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) FindByIDWithDetails(id uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.db.
		Preload("Test").
		Preload("Answers.Question.Options").
		First(&attempt, id).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// FindActive returns the single non-terminal attempt for the pair, or nil.
func (r *attemptRepository) FindActive(membershipID, testID uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.db.
		Where("membership_id = ? AND test_id = ? AND status IN ?",
			membershipID, testID, []model.AttemptStatus{model.AttemptNotStarted, model.AttemptInProgress}).
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) CountTerminal(membershipID, testID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Attempt{}).
		Where("membership_id = ? AND test_id = ? AND status IN ?",
			membershipID, testID, []model.AttemptStatus{model.AttemptSubmitted, model.AttemptGraded}).
		Count(&count).Error
	return count, err
}

func (r *attemptRepository) FindAllByTest(testID uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.db.
		Preload("Answers.Question").
		Where("test_id = ?", testID).
		Order("started_at DESC").
		Find(&attempts).Error
	return attempts, err
}

func (r *attemptRepository) FindAllByTestAndMembership(testID, membershipID uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.db.
		Where("test_id = ? AND membership_id = ?", testID, membershipID).
		Order("started_at DESC").
		Find(&attempts).Error
	return attempts, err
}
