package models

import "time"

// CustomerMapping links a user to their billing-provider customer. Created
// once on first subscribe and reused for every later subscription.
type CustomerMapping struct {
	ID               string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID           string    `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"user_id"`
	StripeCustomerID string    `gorm:"column:stripe_customer_id;type:varchar(128);not null" json:"stripe_customer_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (CustomerMapping) TableName() string {
	return "customer_mapping"
}
