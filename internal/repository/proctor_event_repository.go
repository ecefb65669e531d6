package repository

import (
	"github.com/scioarena/scioarena/internal/model"
	"gorm.io/gorm"
)

type ProctorEventRepository interface {
	CreateBatch(events []model.ProctorEvent) error
	FindByAttemptID(attemptID uint) ([]model.ProctorEvent, error)
}

type proctorEventRepository struct {
	db *gorm.DB
}

func NewProctorEventRepository(db *gorm.DB) ProctorEventRepository {
	return &proctorEventRepository{db: db}
}

func (r *proctorEventRepository) CreateBatch(events []model.ProctorEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.Create(&events).Error
}

func (r *proctorEventRepository) FindByAttemptID(attemptID uint) ([]model.ProctorEvent, error) {
	var events []model.ProctorEvent
	err := r.db.
		Where("attempt_id = ?", attemptID).
		Order("occurred_at ASC").
		Find(&events).Error
	return events, err
}
