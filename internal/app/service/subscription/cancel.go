package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v78"
	"gorm.io/gorm"

	"github.com/fanrealms/billing/internal/models"
	"github.com/fanrealms/billing/pkg/logctx"
	"github.com/fanrealms/billing/pkg/types"
)

// Cancel ends the active subscription for (user, creator, tier), either
// immediately or at period end. The provider call happens before the local
// write so the ledger always reflects the provider's cancellation mode.
func (s *Service) Cancel(ctx context.Context, req *CancelRequest) (*CancelResult, error) {
	var row models.Subscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND creator_id = ? AND tier_id = ? AND status = ?",
			req.UserID, req.CreatorID, req.TierID, types.SubscriptionStatusActive).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to locate subscription: %w", err)
	}

	before := row

	if req.Immediate {
		if _, err := s.billing.CancelSubscription(ctx, row.StripeSubscriptionID); err != nil {
			return nil, fmt.Errorf("failed to cancel provider subscription: %w", err)
		}
		applyImmediateCancel(&row, time.Now().UTC())
	} else {
		providerSub, err := s.billing.SetCancelAtPeriodEnd(ctx, row.StripeSubscriptionID, true)
		if err != nil {
			return nil, fmt.Errorf("failed to schedule provider cancellation: %w", err)
		}
		applyDeferredCancel(&row, providerSub)
	}

	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}

	s.logChange(ctx, types.SubscriptionChangeReasonCancel, &before, &row)
	logctx.FromCtx(ctx, s.log).Infow("subscription canceled",
		"user_id", req.UserID, "creator_id", req.CreatorID, "tier_id", req.TierID,
		"immediate", req.Immediate)

	return &CancelResult{CreatorID: req.CreatorID, TierID: req.TierID, Immediate: req.Immediate}, nil
}

// applyImmediateCancel marks the row canceled as of now. Access ends at once,
// so the period end is cleared.
func applyImmediateCancel(row *models.Subscription, at time.Time) {
	row.Status = types.SubscriptionStatusCanceled
	row.CancelAtPeriodEnd = false
	row.CurrentPeriodEnd = nil
	row.CancelAt = &at
}

// applyDeferredCancel mirrors the provider's period-end cancellation: the row
// stays active and access continues until the provider-reported period end.
func applyDeferredCancel(row *models.Subscription, providerSub *stripe.Subscription) {
	row.CancelAtPeriodEnd = true
	if providerSub != nil {
		row.CurrentPeriodEnd = timeFromUnix(providerSub.CurrentPeriodEnd)
	}
}
