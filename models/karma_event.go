package models

import "time"

// Karma event kinds mirror the lifecycle transitions that move points.
const (
	KarmaEventEscrow     = "escrow"     // debit at task creation
	KarmaEventRefund     = "refund"     // credit back on delete / reward decrease
	KarmaEventReward     = "reward"     // credit to helper on approval
	KarmaEventAdjustment = "adjustment" // extra debit on reward increase
)

// KarmaEvent is an append-only audit record of a single ledger movement.
// Balances are never derived from events; the users.karma_points column is the
// sole source of truth. Events are written inside the same transaction as the
// movement they describe.
type KarmaEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	TaskID    *uint     `gorm:"index" json:"task_id,omitempty"`
	Amount    int       `gorm:"not null" json:"amount"` // signed: negative = debit
	Kind      string    `gorm:"type:varchar(20);not null" json:"kind"`
	RefID     string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"ref_id"`
	Message   string    `gorm:"type:text" json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (KarmaEvent) TableName() string {
	return "karma_events"
}
