package subscription

import (
	"testing"
	"time"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanrealms/billing/internal/models"
	"github.com/fanrealms/billing/pkg/types"
)

func TestMirrorProviderSubscription(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	tier := &models.Tier{ID: "tier-1", PriceCents: 1000}

	providerSub := &stripe.Subscription{
		ID:                 "sub_123",
		Status:             stripe.SubscriptionStatusActive,
		CurrentPeriodStart: start.Unix(),
		CurrentPeriodEnd:   end.Unix(),
		CancelAtPeriodEnd:  true,
	}

	row := mirrorProviderSubscription("user-1", "creator-1", tier, "cus_9", providerSub)

	assert.Equal(t, "user-1", row.UserID)
	assert.Equal(t, "creator-1", row.CreatorID)
	assert.Equal(t, "tier-1", row.TierID)
	assert.Equal(t, "sub_123", row.StripeSubscriptionID)
	assert.Equal(t, "cus_9", row.StripeCustomerID)
	// Callers only pass provider-active subscriptions; status is forced.
	assert.Equal(t, types.SubscriptionStatusActive, row.Status)
	assert.Equal(t, int64(1000), row.AmountCents)
	require.NotNil(t, row.CurrentPeriodStart)
	assert.Equal(t, start, *row.CurrentPeriodStart)
	require.NotNil(t, row.CurrentPeriodEnd)
	assert.Equal(t, end, *row.CurrentPeriodEnd)
	assert.True(t, row.CancelAtPeriodEnd)
	assert.Nil(t, row.CancelAt)
	assert.NotEmpty(t, row.ID)
}

func TestMirrorProviderSubscription_Deterministic(t *testing.T) {
	// Two mirrors of the same provider state must be field-identical except for
	// the generated row id; the upsert keeps reconciliation idempotent.
	tier := &models.Tier{ID: "tier-1", PriceCents: 500}
	providerSub := &stripe.Subscription{
		ID:                 "sub_1",
		Status:             stripe.SubscriptionStatusActive,
		CurrentPeriodStart: 1756684800,
		CurrentPeriodEnd:   1759276800,
	}

	a := mirrorProviderSubscription("u", "c", tier, "cus", providerSub)
	b := mirrorProviderSubscription("u", "c", tier, "cus", providerSub)

	a.ID, b.ID = "", ""
	assert.Equal(t, a, b)
}

func TestTimeFromUnix(t *testing.T) {
	assert.Nil(t, timeFromUnix(0))

	got := timeFromUnix(1756684800)
	require.NotNil(t, got)
	assert.Equal(t, time.Unix(1756684800, 0).UTC(), *got)
}
