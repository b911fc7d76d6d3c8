package webhook_handler

import (
	"context"
	"encoding/json"
	"fmt"

	stripe "github.com/stripe/stripe-go/v78"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fanrealms/billing/internal/app/service/event_log"
	"github.com/fanrealms/billing/internal/models"
	cfgpkg "github.com/fanrealms/billing/pkg/config"
	"github.com/fanrealms/billing/pkg/logctx"
	"github.com/fanrealms/billing/pkg/types"
)

// Handler consumes billing-provider webhook events and drives the ledger
// transitions that are out of the request handlers' hands: payment
// confirmation (incomplete -> active) and provider-side cancellations.
type Handler struct {
	cfg      *cfgpkg.Config
	db       *gorm.DB
	log      *zap.SugaredLogger
	eventLog *event_log.Service
}

func New(cfg *cfgpkg.Config, db *gorm.DB, log *zap.SugaredLogger, el *event_log.Service) *Handler {
	return &Handler{cfg: cfg, db: db, log: log, eventLog: el}
}

// HandleEvent verifies, parses and dispatches one raw webhook payload.
func (h *Handler) HandleEvent(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := parseEvent(payload, sigHeader, h.cfg.Stripe.WebhookSecret)
	if err != nil {
		return err
	}

	entry := &models.WebhookEventLog{
		EventID:   event.ID,
		EventType: string(event.Type),
		Data:      datatypes.JSON(payload),
		Status:    models.WebhookEventLogStatusReceived,
	}
	if tid, ok := ctx.Value("traceID").(string); ok {
		entry.TraceID = tid
	}

	subID, handleErr := h.dispatch(ctx, event)
	if subID != "" {
		entry.StripeSubscriptionID = &subID
	}
	if handleErr != nil {
		entry.Status = models.WebhookEventLogStatusHandleFailed
		result := datatypes.JSON(fmt.Sprintf(`{"error":%q}`, handleErr.Error()))
		entry.Result = &result
	} else {
		entry.Status = models.WebhookEventLogStatusHandled
	}
	h.eventLog.Save(ctx, entry)

	return handleErr
}

// dispatch routes the event to a ledger transition. Unknown event types are
// acknowledged and ignored. Returns the provider subscription id when the
// event carried one.
func (h *Handler) dispatch(ctx context.Context, event *stripe.Event) (string, error) {
	switch event.Type {
	case "invoice.payment_succeeded", "invoice.paid":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return "", fmt.Errorf("failed to decode invoice event: %w", err)
		}
		if invoice.Subscription == nil {
			return "", nil
		}
		return invoice.Subscription.ID, h.activateSubscription(ctx, invoice.Subscription.ID, &invoice)
	case "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return "", fmt.Errorf("failed to decode subscription event: %w", err)
		}
		return sub.ID, h.mirrorSubscription(ctx, &sub)
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return "", fmt.Errorf("failed to decode subscription event: %w", err)
		}
		return sub.ID, h.markCanceled(ctx, sub.ID)
	default:
		logctx.FromCtx(ctx, h.log).Debugw("ignoring webhook event", "type", event.Type)
		return "", nil
	}
}

// activateSubscription flips an incomplete ledger row to active once its first
// invoice is paid. Later invoices hit an already-active row and only refresh
// the billing period.
func (h *Handler) activateSubscription(ctx context.Context, providerSubID string, invoice *stripe.Invoice) error {
	updates := map[string]any{"status": types.SubscriptionStatusActive}
	if start, end := invoicePeriod(invoice); start != nil {
		updates["current_period_start"] = start
		updates["current_period_end"] = end
	}
	res := h.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("stripe_subscription_id = ? AND status <> ?", providerSubID, types.SubscriptionStatusCanceled).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to activate subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		logctx.FromCtx(ctx, h.log).Warnw("paid invoice for unknown subscription", "provider_subscription_id", providerSubID)
	}
	return nil
}

// mirrorSubscription copies the provider's cancellation scheduling and billing
// period onto the ledger row.
func (h *Handler) mirrorSubscription(ctx context.Context, sub *stripe.Subscription) error {
	updates := subscriptionMirrorUpdates(sub)
	res := h.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("stripe_subscription_id = ?", sub.ID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to mirror subscription update: %w", res.Error)
	}
	return nil
}

func (h *Handler) markCanceled(ctx context.Context, providerSubID string) error {
	res := h.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("stripe_subscription_id = ?", providerSubID).
		Updates(map[string]any{
			"status":               types.SubscriptionStatusCanceled,
			"cancel_at_period_end": false,
			"current_period_end":   nil,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark subscription canceled: %w", res.Error)
	}
	return nil
}
