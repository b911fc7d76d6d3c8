package models

import "time"

// Tier is a creator-defined monthly membership level.
type Tier struct {
	ID          string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	CreatorID   string `gorm:"column:creator_id;type:uuid;not null;index" json:"creator_id"`
	Title       string `gorm:"column:title;type:varchar(128);not null" json:"title"`
	Description string `gorm:"column:description;type:text" json:"description"`
	// PriceCents is the monthly price. Provider prices are immutable, so a
	// price change clears StripePriceID and the next subscribe mints a new one.
	PriceCents int64 `gorm:"column:price_cents;type:bigint;not null" json:"price_cents"`
	// StripePriceID is created lazily on first use and reused for every
	// subscriber at the current price.
	StripePriceID *string   `gorm:"column:stripe_price_id;type:varchar(128);default:null" json:"stripe_price_id"`
	Active        bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Tier) TableName() string {
	return "tier"
}

func (t *Tier) HasProviderPrice() bool {
	return t != nil && t.StripePriceID != nil && *t.StripePriceID != ""
}
