package model

import (
	"time"

	"gorm.io/datatypes"
)

type ProctorEventKind string

const (
	ProctorTabSwitch      ProctorEventKind = "tab_switch"
	ProctorWindowBlur     ProctorEventKind = "window_blur"
	ProctorFullscreenExit ProctorEventKind = "fullscreen_exit"
	ProctorCopyPaste      ProctorEventKind = "copy_paste"
	ProctorRightClick     ProctorEventKind = "right_click"
	ProctorTimeOffPage    ProctorEventKind = "time_off_page"
)

// ProctorEvent is append-only; rows are never updated or deleted.
type ProctorEvent struct {
	ID         uint             `gorm:"primarykey" json:"id"`
	AttemptID  uint             `json:"attempt_id" gorm:"not null;index"`
	Kind       ProctorEventKind `json:"kind" gorm:"not null"`
	OccurredAt time.Time        `json:"occurred_at" gorm:"not null;index"`
	Metadata   datatypes.JSON   `json:"metadata,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}
