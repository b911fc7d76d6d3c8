package statistics

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fanrealms/billing/internal/models"
	"github.com/fanrealms/billing/pkg/tool"
	"github.com/fanrealms/billing/pkg/types"
)

// Service aggregates subscriber statistics for creator dashboards.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

type TierStat struct {
	TierID            string `json:"tier_id"`
	Title             string `json:"title"`
	ActiveSubscribers int64  `json:"active_subscribers"`
	MRRCents          int64  `json:"mrr_cents"`
}

type CreatorStats struct {
	CreatorID         string      `json:"creator_id"`
	ActiveSubscribers int64       `json:"active_subscribers"`
	MRRCents          int64       `json:"mrr_cents"`
	Tiers             []*TierStat `json:"tiers"`
}

// GetCreatorStats computes the creator's current subscriber counts and monthly
// recurring revenue from active ledger rows, grouped by tier.
func (s *Service) GetCreatorStats(ctx context.Context, creatorID string) (*CreatorStats, error) {
	var perTier []*TierStat
	err := s.db.WithContext(ctx).Table("subscription").
		Select("subscription.tier_id as tier_id, tier.title as title, count(*) as active_subscribers, sum(subscription.amount_cents) as mrr_cents").
		Joins("JOIN tier ON tier.id = subscription.tier_id").
		Where("subscription.creator_id = ? AND subscription.status = ?", creatorID, types.SubscriptionStatusActive).
		Group("subscription.tier_id, tier.title").
		Order("mrr_cents desc").
		Scan(&perTier).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate creator stats: %w", err)
	}

	return &CreatorStats{
		CreatorID:         creatorID,
		ActiveSubscribers: lo.SumBy(perTier, func(t *TierStat) int64 { return t.ActiveSubscribers }),
		MRRCents:          lo.SumBy(perTier, func(t *TierStat) int64 { return t.MRRCents }),
		Tiers:             perTier,
	}, nil
}

// SaveCreatorDailySnapshot upserts today's snapshot for the creator. Repeated
// runs on the same day overwrite the earlier value.
func (s *Service) SaveCreatorDailySnapshot(ctx context.Context, creatorID string, snapshotDate time.Time) error {
	stats, err := s.GetCreatorStats(ctx, creatorID)
	if err != nil {
		return err
	}
	snap := &models.CreatorDailySnapshot{
		ID:                tool.GenerateUUIDV7(),
		CreatorID:         creatorID,
		SnapshotDate:      snapshotDate.Format(time.DateOnly),
		ActiveSubscribers: stats.ActiveSubscribers,
		MRRCents:          stats.MRRCents,
		SnapshotCreatedAt: time.Now(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "creator_id"}, {Name: "snapshot_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"active_subscribers", "mrr_cents", "snapshot_created_at", "updated_at"}),
	}).Create(snap).Error
	if err != nil {
		return fmt.Errorf("failed to save creator snapshot: %w", err)
	}
	return nil
}

// GetCreatorHistory returns daily snapshots in [from, to] ascending by date.
func (s *Service) GetCreatorHistory(ctx context.Context, creatorID string, from, to time.Time) ([]*models.CreatorDailySnapshot, error) {
	var snaps []*models.CreatorDailySnapshot
	err := s.db.WithContext(ctx).
		Where("creator_id = ? AND snapshot_date >= ? AND snapshot_date <= ?",
			creatorID, from.Format(time.DateOnly), to.Format(time.DateOnly)).
		Order("snapshot_date asc").
		Find(&snaps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load creator history: %w", err)
	}
	return snaps, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
