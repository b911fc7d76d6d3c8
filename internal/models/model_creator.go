package models

import "time"

// Creator is a user who publishes tiers and receives subscription payouts.
type Creator struct {
	ID          string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID      string `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"user_id"`
	DisplayName string `gorm:"column:display_name;type:varchar(128);not null" json:"display_name"`
	// StripeAccountID is the connected account receiving the destination
	// transfer on every subscription invoice. Nil until the creator finishes
	// payment onboarding; subscribing to such a creator fails.
	StripeAccountID *string   `gorm:"column:stripe_account_id;type:varchar(128);default:null" json:"stripe_account_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Creator) TableName() string {
	return "creator"
}

func (c *Creator) PaymentsConfigured() bool {
	return c != nil && c.StripeAccountID != nil && *c.StripeAccountID != ""
}
