package subscription

import (
	"context"
	"errors"
	"fmt"

	stripe "github.com/stripe/stripe-go/v78"
	"gorm.io/gorm"

	"github.com/fanrealms/billing/internal/models"
	"github.com/fanrealms/billing/internal/platform/billing"
	"github.com/fanrealms/billing/pkg/logctx"
	"github.com/fanrealms/billing/pkg/tool"
	"github.com/fanrealms/billing/pkg/types"
)

// Subscribe ensures the user ends up with exactly one active subscription to
// the tier's creator, at the requested tier. Three cases:
//   - no active subscription to the creator: open a provider subscription in
//     default_incomplete mode and record an incomplete ledger row;
//   - already active at the same tier: informational no-op;
//   - active at a different tier: re-price the existing provider subscription
//     with an immediate proration invoice and update the ledger row in place.
func (s *Service) Subscribe(ctx context.Context, userID, tierID string) (*SubscribeResult, error) {
	tier, creator, err := s.loadTierAndCreator(ctx, tierID)
	if err != nil {
		return nil, err
	}
	if !creator.PaymentsConfigured() {
		return nil, ErrCreatorPaymentsNotConfigured
	}

	existing, err := s.findActiveByPair(ctx, s.db, userID, creator.ID)
	if err != nil {
		return nil, err
	}

	switch {
	case existing == nil:
		return s.startSubscription(ctx, userID, tier, creator)
	case existing.TierID == tier.ID:
		logctx.FromCtx(ctx, s.log).Infow("already subscribed at tier", "user_id", userID, "tier_id", tier.ID)
		return &SubscribeResult{
			Outcome:     SubscribeOutcomeAlreadySubscribed,
			AmountCents: existing.AmountCents,
			TierName:    tier.Title,
		}, nil
	default:
		return s.switchTier(ctx, existing, tier)
	}
}

func (s *Service) loadTierAndCreator(ctx context.Context, tierID string) (*models.Tier, *models.Creator, error) {
	var tier models.Tier
	if err := s.db.WithContext(ctx).Where("id = ?", tierID).First(&tier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrTierNotFound
		}
		return nil, nil, fmt.Errorf("failed to load tier: %w", err)
	}
	var creator models.Creator
	if err := s.db.WithContext(ctx).Where("id = ?", tier.CreatorID).First(&creator).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load creator %s: %w", tier.CreatorID, err)
	}
	return &tier, &creator, nil
}

// startSubscription is the no-existing-subscription path.
func (s *Service) startSubscription(ctx context.Context, userID string, tier *models.Tier, creator *models.Creator) (*SubscribeResult, error) {
	log := logctx.FromCtx(ctx, s.log)

	// Stale incomplete/canceled rows from earlier attempts block the upsert
	// key; a retry starts clean.
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND creator_id = ? AND status <> ?", userID, creator.ID, types.SubscriptionStatusActive).
		Delete(&models.Subscription{}).Error; err != nil {
		return nil, fmt.Errorf("failed to clean up stale subscriptions: %w", err)
	}

	customerID, err := s.ensureCustomer(ctx, userID)
	if err != nil {
		return nil, err
	}

	priceID, err := s.ensureTierPrice(ctx, tier)
	if err != nil {
		return nil, err
	}

	providerSub, err := s.billing.CreateSubscription(ctx, &billing.CreateSubscriptionRequest{
		CustomerID:           customerID,
		PriceID:              priceID,
		FeePercent:           s.cfg.PlatformFeePercent,
		DestinationAccountID: *creator.StripeAccountID,
		Metadata: map[string]string{
			"user_id":    userID,
			"creator_id": creator.ID,
			"tier_id":    tier.ID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create provider subscription: %w", err)
	}

	secret := paymentClientSecret(providerSub)
	if providerSub.Status == stripe.SubscriptionStatusIncomplete && secret == "" {
		// Nothing the client can pay against; discard the provider object so a
		// retry does not accumulate dead subscriptions.
		if _, cancelErr := s.billing.CancelSubscription(ctx, providerSub.ID); cancelErr != nil {
			log.Errorw("failed to discard unpayable subscription", "subscription_id", providerSub.ID, "err", cancelErr)
		}
		return nil, ErrPaymentSetupIncomplete
	}

	row := &models.Subscription{
		ID:                   tool.GenerateUUIDV7(),
		UserID:               userID,
		CreatorID:            creator.ID,
		TierID:               tier.ID,
		StripeSubscriptionID: providerSub.ID,
		StripeCustomerID:     customerID,
		Status:               types.SubscriptionStatusIncomplete,
		AmountCents:          tier.PriceCents,
		CurrentPeriodStart:   timeFromUnix(providerSub.CurrentPeriodStart),
		CurrentPeriodEnd:     timeFromUnix(providerSub.CurrentPeriodEnd),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// The active-per-creator index is the authoritative conflict
			// signal; a concurrent subscribe won. Discard ours.
			if _, cancelErr := s.billing.CancelSubscription(ctx, providerSub.ID); cancelErr != nil {
				log.Errorw("failed to discard conflicting subscription", "subscription_id", providerSub.ID, "err", cancelErr)
			}
			return nil, ErrSubscriptionConflict
		}
		return nil, fmt.Errorf("failed to persist subscription: %w", err)
	}

	s.logChange(ctx, types.SubscriptionChangeReasonSubscribe, nil, row)
	log.Infow("subscription started", "user_id", userID, "creator_id", creator.ID, "tier_id", tier.ID, "provider_subscription_id", providerSub.ID)

	return &SubscribeResult{
		Outcome:        SubscribeOutcomeStarted,
		ClientSecret:   secret,
		SubscriptionID: providerSub.ID,
		AmountCents:    tier.PriceCents,
		TierName:       tier.Title,
	}, nil
}

// switchTier re-prices the caller's existing provider subscription rather than
// opening a second one, with an immediate proration invoice.
func (s *Service) switchTier(ctx context.Context, existing *models.Subscription, tier *models.Tier) (*SubscribeResult, error) {
	priceID, err := s.ensureTierPrice(ctx, tier)
	if err != nil {
		return nil, err
	}

	if _, err := s.billing.UpdateSubscriptionPrice(ctx, existing.StripeSubscriptionID, priceID); err != nil {
		return nil, fmt.Errorf("failed to re-price provider subscription: %w", err)
	}

	before := *existing
	existing.TierID = tier.ID
	existing.AmountCents = tier.PriceCents
	if err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ?", existing.ID).
		Updates(map[string]any{"tier_id": tier.ID, "amount_cents": tier.PriceCents}).Error; err != nil {
		return nil, fmt.Errorf("failed to update subscription tier: %w", err)
	}

	s.logChange(ctx, types.SubscriptionChangeReasonTierChange, &before, existing)
	logctx.FromCtx(ctx, s.log).Infow("subscription tier switched",
		"user_id", existing.UserID, "creator_id", existing.CreatorID,
		"from_tier", before.TierID, "to_tier", tier.ID)

	return &SubscribeResult{
		Outcome:        SubscribeOutcomeTierChanged,
		SubscriptionID: existing.StripeSubscriptionID,
		AmountCents:    tier.PriceCents,
		TierName:       tier.Title,
	}, nil
}

// ensureCustomer returns the user's provider customer id, creating the
// customer and mapping on first use.
func (s *Service) ensureCustomer(ctx context.Context, userID string) (string, error) {
	var mapping models.CustomerMapping
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&mapping).Error
	if err == nil {
		return mapping.StripeCustomerID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to query customer mapping: %w", err)
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return "", fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	customer, err := s.billing.CreateCustomer(ctx, user.Email, user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to create provider customer: %w", err)
	}
	mapping = models.CustomerMapping{
		ID:               tool.GenerateUUIDV7(),
		UserID:           userID,
		StripeCustomerID: customer.ID,
	}
	if err := s.db.WithContext(ctx).Create(&mapping).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Concurrent first subscribe created the mapping; reuse theirs.
			var won models.CustomerMapping
			if qerr := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&won).Error; qerr == nil {
				return won.StripeCustomerID, nil
			}
		}
		return "", fmt.Errorf("failed to persist customer mapping: %w", err)
	}
	return customer.ID, nil
}

// ensureTierPrice returns the tier's provider price id, minting and caching it
// on first use. Once set it is reused for every subscriber at that price.
func (s *Service) ensureTierPrice(ctx context.Context, tier *models.Tier) (string, error) {
	if tier.HasProviderPrice() {
		return *tier.StripePriceID, nil
	}
	price, err := s.billing.CreateMonthlyPrice(ctx, tier.Title, tier.PriceCents, s.cfg.Currency)
	if err != nil {
		return "", fmt.Errorf("failed to create provider price: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Tier{}).
		Where("id = ?", tier.ID).
		Update("stripe_price_id", price.ID).Error; err != nil {
		return "", fmt.Errorf("failed to cache price on tier: %w", err)
	}
	tier.StripePriceID = &price.ID
	return price.ID, nil
}

// paymentClientSecret extracts the payable intent's client secret, if any.
func paymentClientSecret(sub *stripe.Subscription) string {
	if sub == nil || sub.LatestInvoice == nil || sub.LatestInvoice.PaymentIntent == nil {
		return ""
	}
	return sub.LatestInvoice.PaymentIntent.ClientSecret
}
