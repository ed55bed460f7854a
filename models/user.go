package models

import "time"

// StartingKarma is granted to every resident at registration.
const StartingKarma = 100

type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Email       string    `gorm:"size:191;uniqueIndex;not null" json:"email"`
	Password    string    `gorm:"size:255;not null" json:"-"`
	RoomNo      string    `gorm:"size:20;not null" json:"room_no"`
	KarmaPoints int       `gorm:"not null;default:100" json:"karma_points"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

func (User) TableName() string {
	return "users"
}
