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

func TestApplyImmediateCancel(t *testing.T) {
	now := time.Now().UTC()
	periodEnd := now.Add(20 * 24 * time.Hour)
	row := &models.Subscription{
		Status:            types.SubscriptionStatusActive,
		CancelAtPeriodEnd: true,
		CurrentPeriodEnd:  &periodEnd,
	}

	applyImmediateCancel(row, now)

	assert.Equal(t, types.SubscriptionStatusCanceled, row.Status)
	assert.False(t, row.CancelAtPeriodEnd)
	assert.Nil(t, row.CurrentPeriodEnd)
	require.NotNil(t, row.CancelAt)
	assert.Equal(t, now, *row.CancelAt)
}

func TestApplyDeferredCancel(t *testing.T) {
	periodEnd := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		providerSub *stripe.Subscription
		wantEnd     *time.Time
	}{
		{
			name:        "mirrors provider period end",
			providerSub: &stripe.Subscription{CurrentPeriodEnd: periodEnd.Unix()},
			wantEnd:     &periodEnd,
		},
		{
			name:        "zero period end stays nil",
			providerSub: &stripe.Subscription{},
			wantEnd:     nil,
		},
		{
			name:        "nil provider subscription keeps local state",
			providerSub: nil,
			wantEnd:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := &models.Subscription{Status: types.SubscriptionStatusActive}
			applyDeferredCancel(row, tt.providerSub)

			// Access continues until period end, so the row stays active.
			assert.Equal(t, types.SubscriptionStatusActive, row.Status)
			assert.True(t, row.CancelAtPeriodEnd)
			assert.Nil(t, row.CancelAt)
			if tt.wantEnd == nil {
				assert.Nil(t, row.CurrentPeriodEnd)
			} else {
				require.NotNil(t, row.CurrentPeriodEnd)
				assert.Equal(t, *tt.wantEnd, *row.CurrentPeriodEnd)
			}
		})
	}
}
