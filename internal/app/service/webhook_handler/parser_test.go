package webhook_handler

import (
	"testing"
	"time"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanrealms/billing/pkg/types"
)

func TestParseEvent_NoSecret(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "invoice.payment_succeeded",
		"data": {"object": {"subscription": "sub_1"}}
	}`)

	event, err := parseEvent(payload, "", "")
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, "invoice.payment_succeeded", string(event.Type))
	assert.NotEmpty(t, event.Data.Raw)
}

func TestParseEvent_InvalidPayload(t *testing.T) {
	_, err := parseEvent([]byte("not json"), "", "")
	assert.Error(t, err)
}

func TestParseEvent_BadSignature(t *testing.T) {
	payload := []byte(`{"id": "evt_1", "type": "invoice.paid"}`)
	_, err := parseEvent(payload, "t=1,v1=deadbeef", "whsec_test")
	assert.ErrorContains(t, err, "invalid webhook signature")
}

func TestInvoicePeriod(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		invoice *stripe.Invoice
		wantNil bool
	}{
		{name: "nil invoice", invoice: nil, wantNil: true},
		{name: "no lines", invoice: &stripe.Invoice{}, wantNil: true},
		{
			name: "line without period",
			invoice: &stripe.Invoice{Lines: &stripe.InvoiceLineItemList{
				Data: []*stripe.InvoiceLineItem{{}},
			}},
			wantNil: true,
		},
		{
			name: "billed period present",
			invoice: &stripe.Invoice{Lines: &stripe.InvoiceLineItemList{
				Data: []*stripe.InvoiceLineItem{{
					Period: &stripe.Period{Start: start.Unix(), End: end.Unix()},
				}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotStart, gotEnd := invoicePeriod(tt.invoice)
			if tt.wantNil {
				assert.Nil(t, gotStart)
				assert.Nil(t, gotEnd)
				return
			}
			require.NotNil(t, gotStart)
			require.NotNil(t, gotEnd)
			assert.Equal(t, start, *gotStart)
			assert.Equal(t, end, *gotEnd)
		})
	}
}

func TestSubscriptionMirrorUpdates(t *testing.T) {
	t.Run("active with periods", func(t *testing.T) {
		updates := subscriptionMirrorUpdates(&stripe.Subscription{
			Status:             stripe.SubscriptionStatusActive,
			CurrentPeriodStart: 1756684800,
			CurrentPeriodEnd:   1759276800,
			CancelAtPeriodEnd:  true,
			CancelAt:           1759276800,
		})

		assert.Equal(t, types.SubscriptionStatusActive, updates["status"])
		assert.Equal(t, true, updates["cancel_at_period_end"])
		assert.Contains(t, updates, "current_period_start")
		assert.Contains(t, updates, "current_period_end")
		assert.Contains(t, updates, "cancel_at")
	})

	t.Run("canceled", func(t *testing.T) {
		updates := subscriptionMirrorUpdates(&stripe.Subscription{
			Status: stripe.SubscriptionStatusCanceled,
		})
		assert.Equal(t, types.SubscriptionStatusCanceled, updates["status"])
	})

	t.Run("incomplete does not move status", func(t *testing.T) {
		updates := subscriptionMirrorUpdates(&stripe.Subscription{
			Status: stripe.SubscriptionStatusIncomplete,
		})
		assert.NotContains(t, updates, "status")
	})
}
