package models

import "time"

// Task statuses. A task never carries "completed" in the live table: approval
// moves the row into history atomically.
const (
	TaskStatusPending             = "pending"
	TaskStatusInProgress          = "in-progress"
	TaskStatusPendingVerification = "pending-verification"
)

// Task is a favor posted by a resident. While the row exists, RewardPoints
// have already been debited from the requester (implicit escrow).
type Task struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	Title                 string    `gorm:"size:150;not null" json:"title"`
	Description           string    `gorm:"type:text;not null" json:"description"`
	RewardPoints          int       `gorm:"not null" json:"reward_points"`
	Status                string    `gorm:"type:varchar(30);not null;default:'pending';index" json:"status"`
	RequesterID           uint      `gorm:"not null;index" json:"requester_id"`
	HelperID              *uint     `gorm:"index" json:"helper_id,omitempty"`
	CompletionRequestedBy *string   `gorm:"size:20" json:"completion_requested_by,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"-"`
}

func (Task) TableName() string {
	return "tasks"
}
