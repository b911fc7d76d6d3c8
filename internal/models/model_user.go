package models

import "time"

// User is a FanRealms account. Reconciliation matches provider customers back
// to users by email, so Email is unique.
type User struct {
	ID        string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Email     string    `gorm:"column:email;type:varchar(255);not null;uniqueIndex" json:"email"`
	Username  string    `gorm:"column:username;type:varchar(64);not null" json:"username"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "app_user"
}
