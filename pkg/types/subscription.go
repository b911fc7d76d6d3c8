package types

type SubscriptionStatus string

const (
	// SubscriptionStatusIncomplete means the provider subscription exists but the
	// first payment has not been confirmed yet.
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
)

type SubscriptionChangeReason string

const (
	SubscriptionChangeReasonSubscribe  SubscriptionChangeReason = "subscribe"
	SubscriptionChangeReasonTierChange SubscriptionChangeReason = "tierChange"
	SubscriptionChangeReasonCancel     SubscriptionChangeReason = "cancel"
	SubscriptionChangeReasonReconcile  SubscriptionChangeReason = "reconcile"
)
