package model

import "time"

// AuditLog records engine state transitions. Writes are fire-and-forget;
// a failed write never rolls back the operation it describes.
type AuditLog struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Action      string    `json:"action" gorm:"not null;index"`
	ActorUserID uint      `json:"actor_user_id" gorm:"index"`
	TestID      *uint     `json:"test_id,omitempty" gorm:"index"`
	AttemptID   *uint     `json:"attempt_id,omitempty" gorm:"index"`
	Detail      string    `json:"detail,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
}
