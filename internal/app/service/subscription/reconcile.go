package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	stripe "github.com/stripe/stripe-go/v78"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fanrealms/billing/internal/models"
	"github.com/fanrealms/billing/pkg/logctx"
	"github.com/fanrealms/billing/pkg/tool"
	"github.com/fanrealms/billing/pkg/types"
)

// ListCreatorSubscribers refreshes the ledger from the provider for every tier
// of the creator, then returns the creator's active rows. The ledger is a
// derived cache here; the provider listing is authoritative. Safe to repeat:
// each provider subscription lands via an upsert on (user, creator, tier).
func (s *Service) ListCreatorSubscribers(ctx context.Context, creatorID string) ([]*models.Subscription, error) {
	var tiers []*models.Tier
	if err := s.db.WithContext(ctx).
		Where("creator_id = ? AND stripe_price_id IS NOT NULL", creatorID).
		Find(&tiers).Error; err != nil {
		return nil, fmt.Errorf("failed to load tiers: %w", err)
	}

	for _, tier := range tiers {
		if err := s.reconcileTier(ctx, creatorID, tier); err != nil {
			return nil, err
		}
	}

	rows, err := s.activeRowsForCreator(ctx, creatorID, true)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		// Detail joins can come up empty on partially migrated data; fall back
		// to raw rows with nil relations rather than failing the caller.
		return s.activeRowsForCreator(ctx, creatorID, false)
	}
	return rows, nil
}

// reconcileTier pulls every provider subscription referencing the tier's price
// and upserts the active ones into the ledger.
func (s *Service) reconcileTier(ctx context.Context, creatorID string, tier *models.Tier) error {
	log := logctx.FromCtx(ctx, s.log)

	providerSubs, err := s.billing.ListSubscriptionsByPrice(ctx, *tier.StripePriceID)
	if err != nil {
		return err
	}
	active := lo.Filter(providerSubs, func(sub *stripe.Subscription, _ int) bool {
		return sub.Status == stripe.SubscriptionStatusActive
	})

	for _, providerSub := range active {
		if providerSub.Customer == nil {
			continue
		}
		customer, err := s.billing.GetCustomer(ctx, providerSub.Customer.ID)
		if err != nil || customer == nil || customer.Deleted {
			log.Warnw("skipping subscription with unusable customer",
				"provider_subscription_id", providerSub.ID, "err", err)
			continue
		}

		user, err := s.userByEmail(ctx, customer.Email)
		if err != nil {
			return err
		}
		if user == nil {
			// Orphaned provider state: a paying customer with no local account.
			// Skipped, but loudly, so it can be investigated.
			log.Warnw("no local user for billing email",
				"provider_subscription_id", providerSub.ID, "customer_id", customer.ID)
			continue
		}

		row := mirrorProviderSubscription(user.ID, creatorID, tier, customer.ID, providerSub)
		if err := s.upsertLedgerRow(ctx, row); err != nil {
			return err
		}
		s.logChange(ctx, types.SubscriptionChangeReasonReconcile, nil, row)
	}
	return nil
}

func (s *Service) userByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, nil
	}
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}
	return &user, nil
}

func (s *Service) upsertLedgerRow(ctx context.Context, row *models.Subscription) error {
	// A provider-active subscription supersedes any active row the pair holds
	// at another tier (drift from a half-applied tier switch). Retire it first
	// so the active-per-creator index accepts the upsert.
	if err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND creator_id = ? AND tier_id <> ? AND status = ?",
			row.UserID, row.CreatorID, row.TierID, types.SubscriptionStatusActive).
		Update("status", types.SubscriptionStatusCanceled).Error; err != nil {
		return fmt.Errorf("failed to retire superseded subscription: %w", err)
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "creator_id"}, {Name: "tier_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"stripe_subscription_id", "stripe_customer_id", "status", "amount_cents",
			"current_period_start", "current_period_end", "cancel_at_period_end", "cancel_at",
			"updated_at",
		}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert ledger row: %w", err)
	}
	return nil
}

func (s *Service) activeRowsForCreator(ctx context.Context, creatorID string, withDetail bool) ([]*models.Subscription, error) {
	q := s.db.WithContext(ctx).
		Where("creator_id = ? AND status = ?", creatorID, types.SubscriptionStatusActive).
		Order("created_at desc")
	if withDetail {
		q = q.Preload("User").Preload("Tier")
	}
	var rows []*models.Subscription
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	if withDetail {
		rows = lo.Filter(rows, func(r *models.Subscription, _ int) bool {
			return r.User != nil && r.Tier != nil
		})
	}
	return rows, nil
}

// mirrorProviderSubscription builds a ledger row from the provider's view.
// Status is forced active: callers only pass provider-active subscriptions.
func mirrorProviderSubscription(userID, creatorID string, tier *models.Tier, customerID string, providerSub *stripe.Subscription) *models.Subscription {
	row := &models.Subscription{
		ID:                   tool.GenerateUUIDV7(),
		UserID:               userID,
		CreatorID:            creatorID,
		TierID:               tier.ID,
		StripeSubscriptionID: providerSub.ID,
		StripeCustomerID:     customerID,
		Status:               types.SubscriptionStatusActive,
		AmountCents:          tier.PriceCents,
		CurrentPeriodStart:   timeFromUnix(providerSub.CurrentPeriodStart),
		CurrentPeriodEnd:     timeFromUnix(providerSub.CurrentPeriodEnd),
		CancelAtPeriodEnd:    providerSub.CancelAtPeriodEnd,
		CancelAt:             timeFromUnix(providerSub.CancelAt),
	}
	return row
}
