package models

import (
	"time"

	"github.com/fanrealms/billing/pkg/types"
)

// Subscription mirrors a billing-provider subscription for one (user, creator,
// tier) triple. The provider is the system of record for recurring-charge
// state; rows here are a shadow refreshed on writes and by reconciliation.
type Subscription struct {
	ID                   string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID               string                   `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_user_creator_tier,priority:1;uniqueIndex:udx_active_per_creator,priority:1,where:status = 'active'" json:"user_id"`
	CreatorID            string                   `gorm:"column:creator_id;type:uuid;not null;uniqueIndex:idx_user_creator_tier,priority:2;uniqueIndex:udx_active_per_creator,priority:2,where:status = 'active'" json:"creator_id"`
	TierID               string                   `gorm:"column:tier_id;type:uuid;not null;uniqueIndex:idx_user_creator_tier,priority:3" json:"tier_id"`
	StripeSubscriptionID string                   `gorm:"column:stripe_subscription_id;type:varchar(128);index" json:"stripe_subscription_id"`
	StripeCustomerID     string                   `gorm:"column:stripe_customer_id;type:varchar(128)" json:"stripe_customer_id"`
	Status               types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	// AmountCents is the monthly charge at the subscribed tier, denormalized so
	// the UI does not need a tier join for badges.
	AmountCents        int64      `gorm:"column:amount_cents;type:bigint;not null" json:"amount_cents"`
	CurrentPeriodStart *time.Time `gorm:"column:current_period_start;default:null" json:"current_period_start"`
	CurrentPeriodEnd   *time.Time `gorm:"column:current_period_end;default:null" json:"current_period_end"`
	CancelAtPeriodEnd  bool       `gorm:"column:cancel_at_period_end;not null;default:false" json:"cancel_at_period_end"`
	// CancelAt is set when the subscription was canceled immediately.
	CancelAt  *time.Time `gorm:"column:cancel_at;default:null" json:"cancel_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Tier *Tier `gorm:"foreignKey:TierID" json:"tier,omitempty"`
}

func (Subscription) TableName() string {
	return "subscription"
}

func (s *Subscription) Active() bool {
	return s != nil && s.Status == types.SubscriptionStatusActive
}
