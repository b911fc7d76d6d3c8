package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fanrealms/billing/internal/models"
	"github.com/fanrealms/billing/pkg/logctx"
	"github.com/fanrealms/billing/pkg/tool"
)

var (
	ErrTierNotFound   = errors.New("tier not found")
	ErrNotTierOwner   = errors.New("tier does not belong to this creator")
	ErrInvalidPricing = errors.New("tier price must be positive")
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

type CreateTierRequest struct {
	CreatorID   string
	Title       string
	Description string
	PriceCents  int64
}

type UpdateTierRequest struct {
	CreatorID   string
	TierID      string
	Title       *string
	Description *string
	PriceCents  *int64
	Active      *bool
}

func (s *Service) CreateTier(ctx context.Context, req *CreateTierRequest) (*models.Tier, error) {
	if req.PriceCents <= 0 {
		return nil, ErrInvalidPricing
	}
	tier := &models.Tier{
		ID:          tool.GenerateUUIDV7(),
		CreatorID:   req.CreatorID,
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Active:      true,
	}
	if err := s.db.WithContext(ctx).Create(tier).Error; err != nil {
		return nil, fmt.Errorf("failed to create tier: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("tier created", "creator_id", req.CreatorID, "tier_id", tier.ID)
	return tier, nil
}

// UpdateTier applies a partial update. Changing the price clears the cached
// provider price id: provider prices are immutable, so the next subscribe
// mints a fresh one at the new amount.
func (s *Service) UpdateTier(ctx context.Context, req *UpdateTierRequest) (*models.Tier, error) {
	var tier models.Tier
	if err := s.db.WithContext(ctx).Where("id = ?", req.TierID).First(&tier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTierNotFound
		}
		return nil, fmt.Errorf("failed to load tier: %w", err)
	}
	if tier.CreatorID != req.CreatorID {
		return nil, ErrNotTierOwner
	}

	updates := map[string]any{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if req.PriceCents != nil && *req.PriceCents != tier.PriceCents {
		if *req.PriceCents <= 0 {
			return nil, ErrInvalidPricing
		}
		updates["price_cents"] = *req.PriceCents
		updates["stripe_price_id"] = nil
	}
	if len(updates) == 0 {
		return &tier, nil
	}

	if err := s.db.WithContext(ctx).Model(&tier).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update tier: %w", err)
	}
	if err := s.db.WithContext(ctx).Where("id = ?", req.TierID).First(&tier).Error; err != nil {
		return nil, fmt.Errorf("failed to reload tier: %w", err)
	}
	return &tier, nil
}

func (s *Service) ListCreatorTiers(ctx context.Context, creatorID string, includeInactive bool) ([]*models.Tier, error) {
	q := s.db.WithContext(ctx).Where("creator_id = ?", creatorID).Order("price_cents asc")
	if !includeInactive {
		q = q.Where("active = ?", true)
	}
	var tiers []*models.Tier
	if err := q.Find(&tiers).Error; err != nil {
		return nil, fmt.Errorf("failed to list tiers: %w", err)
	}
	return tiers, nil
}

// CreatorByUser resolves the creator profile owned by a user, used by the
// handlers to authorize creator-only operations.
func (s *Service) CreatorByUser(ctx context.Context, userID string) (*models.Creator, error) {
	var creator models.Creator
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&creator).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load creator profile: %w", err)
	}
	return &creator, nil
}
