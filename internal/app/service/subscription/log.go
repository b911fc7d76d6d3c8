package subscription

import (
	"context"

	"gorm.io/datatypes"

	"github.com/fanrealms/billing/internal/models"
	"github.com/fanrealms/billing/pkg/logctx"
	"github.com/fanrealms/billing/pkg/tool"
	"github.com/fanrealms/billing/pkg/types"
)

// logChange writes a before/after change log row asynchronously; failures are
// logged, never returned. The write outlives the request, so cancellation is
// detached while trace values are kept.
func (s *Service) logChange(ctx context.Context, reason types.SubscriptionChangeReason, before, after *models.Subscription) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ref := after
		if ref == nil {
			ref = before
		}
		if ref == nil {
			return
		}
		entry := &models.SubscriptionLog{
			ID:        tool.GenerateUUIDV7(),
			UserID:    ref.UserID,
			CreatorID: ref.CreatorID,
			Reason:    reason,
			Before:    datatypes.NewJSONType(before),
			After:     datatypes.NewJSONType(after),
			Extra: datatypes.JSONMap{
				"stripe_subscription_id": ref.StripeSubscriptionID,
			},
		}
		if err := s.db.WithContext(ctx).Save(entry).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save subscription log: %v", err)
		}
	}()
}
