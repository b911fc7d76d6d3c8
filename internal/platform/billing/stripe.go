package billing

import (
	"context"
	"fmt"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"go.uber.org/zap"

	cfgpkg "github.com/fanrealms/billing/pkg/config"
)

// StripeClient implements Client on top of stripe-go. The underlying API
// client is constructed once and injected; there is no package-level key.
type StripeClient struct {
	api *client.API
	log *zap.SugaredLogger
}

func NewStripeClient(cfg *cfgpkg.Config, log *zap.SugaredLogger) (*StripeClient, error) {
	if cfg.Stripe.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is empty")
	}
	api := &client.API{}
	api.Init(cfg.Stripe.SecretKey, nil)
	return &StripeClient{api: api, log: log}, nil
}

func (c *StripeClient) CreateCustomer(ctx context.Context, email, userID string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(email),
	}
	params.AddMetadata("user_id", userID)
	return c.api.Customers.New(params)
}

func (c *StripeClient) GetCustomer(ctx context.Context, customerID string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{Params: stripe.Params{Context: ctx}}
	return c.api.Customers.Get(customerID, params)
}

func (c *StripeClient) CreateMonthlyPrice(ctx context.Context, productName string, amountCents int64, currency string) (*stripe.Price, error) {
	params := &stripe.PriceParams{
		Params:      stripe.Params{Context: ctx},
		Currency:    stripe.String(currency),
		UnitAmount:  stripe.Int64(amountCents),
		Recurring:   &stripe.PriceRecurringParams{Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth))},
		ProductData: &stripe.PriceProductDataParams{Name: stripe.String(productName)},
	}
	return c.api.Prices.New(params)
}

func (c *StripeClient) CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Params:   stripe.Params{Context: ctx},
		Customer: stripe.String(req.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(req.PriceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
	}
	if req.FeePercent > 0 {
		params.ApplicationFeePercent = stripe.Float64(req.FeePercent)
	}
	if req.DestinationAccountID != "" {
		params.TransferData = &stripe.SubscriptionTransferDataParams{
			Destination: stripe.String(req.DestinationAccountID),
		}
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.AddExpand("latest_invoice.payment_intent")
	return c.api.Subscriptions.New(params)
}

func (c *StripeClient) UpdateSubscriptionPrice(ctx context.Context, subscriptionID, newPriceID string) (*stripe.Subscription, error) {
	current, err := c.api.Subscriptions.Get(subscriptionID, &stripe.SubscriptionParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve subscription %s: %w", subscriptionID, err)
	}
	if current.Items == nil || len(current.Items.Data) == 0 {
		return nil, fmt.Errorf("subscription %s has no line items", subscriptionID)
	}
	params := &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
		Items: []*stripe.SubscriptionItemsParams{
			{ID: stripe.String(current.Items.Data[0].ID), Price: stripe.String(newPriceID)},
		},
		ProrationBehavior: stripe.String("always_invoice"),
	}
	return c.api.Subscriptions.Update(subscriptionID, params)
}

func (c *StripeClient) CancelSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionCancelParams{Params: stripe.Params{Context: ctx}}
	return c.api.Subscriptions.Cancel(subscriptionID, params)
}

func (c *StripeClient) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Params:            stripe.Params{Context: ctx},
		CancelAtPeriodEnd: stripe.Bool(cancel),
	}
	return c.api.Subscriptions.Update(subscriptionID, params)
}

func (c *StripeClient) ListSubscriptionsByPrice(ctx context.Context, priceID string) ([]*stripe.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		ListParams: stripe.ListParams{Context: ctx},
		Price:      stripe.String(priceID),
		Status:     stripe.String("all"),
	}
	var subs []*stripe.Subscription
	iter := c.api.Subscriptions.List(params)
	for iter.Next() {
		subs = append(subs, iter.Subscription())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions for price %s: %w", priceID, err)
	}
	return subs, nil
}
