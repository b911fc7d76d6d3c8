package webhook_handler

import (
	"encoding/json"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/fanrealms/billing/pkg/types"
)

// parseEvent verifies the payload signature when a webhook secret is
// configured; without one (local development) it decodes the payload as-is.
func parseEvent(payload []byte, sigHeader, secret string) (*stripe.Event, error) {
	if secret != "" {
		event, err := webhook.ConstructEvent(payload, sigHeader, secret)
		if err != nil {
			return nil, fmt.Errorf("invalid webhook signature: %w", err)
		}
		return &event, nil
	}
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}
	return &event, nil
}

// invoicePeriod extracts the billed period from the invoice's first line.
func invoicePeriod(invoice *stripe.Invoice) (*time.Time, *time.Time) {
	if invoice == nil || invoice.Lines == nil || len(invoice.Lines.Data) == 0 {
		return nil, nil
	}
	period := invoice.Lines.Data[0].Period
	if period == nil || period.Start == 0 {
		return nil, nil
	}
	start := time.Unix(period.Start, 0).UTC()
	end := time.Unix(period.End, 0).UTC()
	return &start, &end
}

// subscriptionMirrorUpdates maps a provider subscription state onto ledger
// columns. Status only moves active<->canceled here; incomplete rows wait for
// their first paid invoice.
func subscriptionMirrorUpdates(sub *stripe.Subscription) map[string]any {
	updates := map[string]any{
		"cancel_at_period_end": sub.CancelAtPeriodEnd,
	}
	if sub.CurrentPeriodStart > 0 {
		start := time.Unix(sub.CurrentPeriodStart, 0).UTC()
		updates["current_period_start"] = &start
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		updates["current_period_end"] = &end
	}
	switch sub.Status {
	case stripe.SubscriptionStatusActive:
		updates["status"] = types.SubscriptionStatusActive
	case stripe.SubscriptionStatusCanceled:
		updates["status"] = types.SubscriptionStatusCanceled
	}
	if sub.CancelAt > 0 {
		cancelAt := time.Unix(sub.CancelAt, 0).UTC()
		updates["cancel_at"] = &cancelAt
	}
	return updates
}
