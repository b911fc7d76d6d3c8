package models

import "time"

// CreatorDailySnapshot is a per-creator daily snapshot of subscriber state for
// analytics. One row per creator per day.
type CreatorDailySnapshot struct {
	ID        string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	CreatorID string `gorm:"column:creator_id;type:uuid;not null;uniqueIndex:idx_creator_snapshot_date,priority:1" json:"creator_id"`
	// SnapshotDate is the day in YYYY-MM-DD form.
	SnapshotDate      string `gorm:"column:snapshot_date;uniqueIndex:idx_creator_snapshot_date,priority:2" json:"snapshot_date"`
	ActiveSubscribers int64  `gorm:"column:active_subscribers;type:bigint;not null" json:"active_subscribers"`
	// MRRCents is monthly recurring revenue across active subscriptions.
	MRRCents          int64     `gorm:"column:mrr_cents;type:bigint;not null" json:"mrr_cents"`
	SnapshotCreatedAt time.Time `gorm:"column:snapshot_created_at" json:"snapshot_created_at"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (CreatorDailySnapshot) TableName() string {
	return "creator_daily_snapshot"
}
