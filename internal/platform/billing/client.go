package billing

import (
	"context"

	stripe "github.com/stripe/stripe-go/v78"
)

// CreateSubscriptionRequest carries everything needed to open a provider
// subscription with a destination transfer to the creator's account.
type CreateSubscriptionRequest struct {
	CustomerID string
	PriceID    string
	// FeePercent is the platform's application fee on each invoice.
	FeePercent float64
	// DestinationAccountID receives the remainder of each invoice.
	DestinationAccountID string
	// Metadata is attached to the provider subscription (user/creator/tier ids).
	Metadata map[string]string
}

// Client is the narrow surface of the billing provider this service uses.
// Implementations must be safe for concurrent use. The production
// implementation wraps stripe-go; tests substitute a fake.
type Client interface {
	// CreateCustomer creates a provider customer for a user.
	CreateCustomer(ctx context.Context, email, userID string) (*stripe.Customer, error)
	// GetCustomer fetches a provider customer by id.
	GetCustomer(ctx context.Context, customerID string) (*stripe.Customer, error)
	// CreateMonthlyPrice mints an immutable recurring monthly price.
	CreateMonthlyPrice(ctx context.Context, productName string, amountCents int64, currency string) (*stripe.Price, error)
	// CreateSubscription opens a subscription with payment_behavior
	// default_incomplete and latest_invoice.payment_intent expanded.
	CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*stripe.Subscription, error)
	// UpdateSubscriptionPrice swaps the subscription's single line item to a new
	// price, prorating and invoicing the difference immediately.
	UpdateSubscriptionPrice(ctx context.Context, subscriptionID, newPriceID string) (*stripe.Subscription, error)
	// CancelSubscription cancels immediately. Also used to discard a
	// just-created subscription whose payment setup turned out incomplete.
	CancelSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
	// SetCancelAtPeriodEnd schedules or unschedules a period-end cancellation.
	SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*stripe.Subscription, error)
	// ListSubscriptionsByPrice returns every provider subscription referencing
	// the price, in any status.
	ListSubscriptionsByPrice(ctx context.Context, priceID string) ([]*stripe.Subscription, error)
}
