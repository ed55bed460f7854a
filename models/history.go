package models

import "time"

// History is the immutable archive of a completed task. Rows are written once,
// at the moment of approval, and never updated or deleted.
type History struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TaskID       uint      `gorm:"not null;index" json:"task_id"`
	Title        string    `gorm:"size:150;not null" json:"title"`
	Description  string    `gorm:"type:text;not null" json:"description"`
	RewardPoints int       `gorm:"not null" json:"reward_points"`
	Status       string    `gorm:"type:varchar(30);not null;default:'completed'" json:"status"`
	RequesterID  uint      `gorm:"not null;index" json:"requester_id"`
	HelperID     *uint     `gorm:"index" json:"helper_id,omitempty"`
	CompletedAt  time.Time `gorm:"not null" json:"completed_at"`
	CreatedAt    time.Time `json:"-"`
}

func (History) TableName() string {
	return "histories"
}
