package subscription

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fanrealms/billing/internal/models"
	"github.com/fanrealms/billing/internal/platform/billing"
	"github.com/fanrealms/billing/pkg/config"
	"github.com/fanrealms/billing/pkg/tool"
	"github.com/fanrealms/billing/pkg/types"
)

// fakeBilling records every provider call so tests can assert which mutations
// a lifecycle operation performed.
type fakeBilling struct {
	mu sync.Mutex

	subStatus    stripe.SubscriptionStatus
	clientSecret string
	periodStart  int64
	periodEnd    int64

	customersByID map[string]*stripe.Customer
	subsByPrice   map[string][]*stripe.Subscription

	customersCreated []string
	pricesCreated    []*stripe.Price
	subsCreated      []*stripe.Subscription
	subsCanceled     []string
	priceUpdates     map[string]string
	deferredCancels  map[string]bool
	lastCreateReq    *billing.CreateSubscriptionRequest
}

var _ billing.Client = (*fakeBilling)(nil)

func newFakeBilling() *fakeBilling {
	return &fakeBilling{
		subStatus:       stripe.SubscriptionStatusIncomplete,
		clientSecret:    "pi_secret_test",
		customersByID:   map[string]*stripe.Customer{},
		subsByPrice:     map[string][]*stripe.Subscription{},
		priceUpdates:    map[string]string{},
		deferredCancels: map[string]bool{},
	}
}

func (f *fakeBilling) CreateCustomer(ctx context.Context, email, userID string) (*stripe.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customersCreated = append(f.customersCreated, email)
	customer := &stripe.Customer{ID: fmt.Sprintf("cus_%d", len(f.customersCreated)), Email: email}
	f.customersByID[customer.ID] = customer
	return customer, nil
}

func (f *fakeBilling) GetCustomer(ctx context.Context, customerID string) (*stripe.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.customersByID[customerID]; ok {
		return c, nil
	}
	return &stripe.Customer{ID: customerID}, nil
}

func (f *fakeBilling) CreateMonthlyPrice(ctx context.Context, productName string, amountCents int64, currency string) (*stripe.Price, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	price := &stripe.Price{ID: fmt.Sprintf("price_%d", len(f.pricesCreated)+1), UnitAmount: amountCents}
	f.pricesCreated = append(f.pricesCreated, price)
	return price, nil
}

func (f *fakeBilling) CreateSubscription(ctx context.Context, req *billing.CreateSubscriptionRequest) (*stripe.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCreateReq = req
	sub := &stripe.Subscription{
		ID:                 fmt.Sprintf("sub_%d", len(f.subsCreated)+1),
		Status:             f.subStatus,
		CurrentPeriodStart: f.periodStart,
		CurrentPeriodEnd:   f.periodEnd,
	}
	if f.clientSecret != "" {
		sub.LatestInvoice = &stripe.Invoice{
			PaymentIntent: &stripe.PaymentIntent{ClientSecret: f.clientSecret},
		}
	}
	f.subsCreated = append(f.subsCreated, sub)
	return sub, nil
}

func (f *fakeBilling) UpdateSubscriptionPrice(ctx context.Context, subscriptionID, newPriceID string) (*stripe.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceUpdates[subscriptionID] = newPriceID
	return &stripe.Subscription{ID: subscriptionID, Status: stripe.SubscriptionStatusActive}, nil
}

func (f *fakeBilling) CancelSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subsCanceled = append(f.subsCanceled, subscriptionID)
	return &stripe.Subscription{ID: subscriptionID, Status: stripe.SubscriptionStatusCanceled}, nil
}

func (f *fakeBilling) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*stripe.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deferredCancels[subscriptionID] = cancel
	return &stripe.Subscription{
		ID:                subscriptionID,
		Status:            stripe.SubscriptionStatusActive,
		CancelAtPeriodEnd: cancel,
		CurrentPeriodEnd:  f.periodEnd,
	}, nil
}

func (f *fakeBilling) ListSubscriptionsByPrice(ctx context.Context, priceID string) ([]*stripe.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subsByPrice[priceID], nil
}

func newTestService(t *testing.T) (*Service, *fakeBilling, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps every query on the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Creator{}, &models.Tier{},
		&models.Subscription{}, &models.SubscriptionLog{}, &models.CustomerMapping{},
	))
	fake := newFakeBilling()
	cfg := &config.Config{PlatformFeePercent: 10, Currency: "usd"}
	return NewService(cfg, db, zap.NewNop().Sugar(), fake), fake, db
}

type fixture struct {
	user    *models.User
	creator *models.Creator
	tier    *models.Tier
}

func seedCatalog(t *testing.T, db *gorm.DB, priceCents int64) fixture {
	t.Helper()
	user := &models.User{ID: tool.GenerateUUIDV7(), Email: "fan@example.com", Username: "fan"}
	owner := &models.User{ID: tool.GenerateUUIDV7(), Email: "creator@example.com", Username: "creator"}
	acct := "acct_1"
	creator := &models.Creator{ID: tool.GenerateUUIDV7(), UserID: owner.ID, DisplayName: "Creator", StripeAccountID: &acct}
	tier := &models.Tier{ID: tool.GenerateUUIDV7(), CreatorID: creator.ID, Title: "Gold", PriceCents: priceCents, Active: true}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(owner).Error)
	require.NoError(t, db.Create(creator).Error)
	require.NoError(t, db.Create(tier).Error)
	return fixture{user: user, creator: creator, tier: tier}
}

func seedActiveRow(t *testing.T, db *gorm.DB, fx fixture, providerSubID string) *models.Subscription {
	t.Helper()
	row := &models.Subscription{
		ID:                   tool.GenerateUUIDV7(),
		UserID:               fx.user.ID,
		CreatorID:            fx.creator.ID,
		TierID:               fx.tier.ID,
		StripeSubscriptionID: providerSubID,
		StripeCustomerID:     "cus_seed",
		Status:               types.SubscriptionStatusActive,
		AmountCents:          fx.tier.PriceCents,
	}
	require.NoError(t, db.Create(row).Error)
	return row
}

func TestSubscribe_StartsNewSubscription(t *testing.T) {
	svc, fake, db := newTestService(t)
	fx := seedCatalog(t, db, 1000)

	res, err := svc.Subscribe(context.Background(), fx.user.ID, fx.tier.ID)
	require.NoError(t, err)

	assert.Equal(t, SubscribeOutcomeStarted, res.Outcome)
	assert.Equal(t, "pi_secret_test", res.ClientSecret)
	assert.Equal(t, int64(1000), res.AmountCents)
	assert.Equal(t, "Gold", res.TierName)

	var row models.Subscription
	require.NoError(t, db.Where("user_id = ? AND creator_id = ?", fx.user.ID, fx.creator.ID).First(&row).Error)
	assert.Equal(t, types.SubscriptionStatusIncomplete, row.Status)
	assert.Equal(t, res.SubscriptionID, row.StripeSubscriptionID)

	// price minted once and cached on the tier
	require.Len(t, fake.pricesCreated, 1)
	var tier models.Tier
	require.NoError(t, db.Where("id = ?", fx.tier.ID).First(&tier).Error)
	require.NotNil(t, tier.StripePriceID)
	assert.Equal(t, fake.pricesCreated[0].ID, *tier.StripePriceID)

	// customer mapping persisted
	var mapping models.CustomerMapping
	require.NoError(t, db.Where("user_id = ?", fx.user.ID).First(&mapping).Error)
	assert.Equal(t, row.StripeCustomerID, mapping.StripeCustomerID)

	// destination charge carries the platform fee and the creator's account
	require.NotNil(t, fake.lastCreateReq)
	assert.Equal(t, 10.0, fake.lastCreateReq.FeePercent)
	assert.Equal(t, "acct_1", fake.lastCreateReq.DestinationAccountID)
}

func TestSubscribe_ReusesMintedPrice(t *testing.T) {
	svc, fake, db := newTestService(t)
	fx := seedCatalog(t, db, 1000)

	_, err := svc.Subscribe(context.Background(), fx.user.ID, fx.tier.ID)
	require.NoError(t, err)

	other := &models.User{ID: tool.GenerateUUIDV7(), Email: "second@example.com", Username: "second"}
	require.NoError(t, db.Create(other).Error)
	_, err = svc.Subscribe(context.Background(), other.ID, fx.tier.ID)
	require.NoError(t, err)

	assert.Len(t, fake.pricesCreated, 1)
	assert.Len(t, fake.customersCreated, 2)
	assert.Len(t, fake.subsCreated, 2)
}

func TestSubscribe_AlreadySubscribedLeavesProviderUntouched(t *testing.T) {
	svc, fake, db := newTestService(t)
	fx := seedCatalog(t, db, 1000)
	seedActiveRow(t, db, fx, "sub_live")

	res, err := svc.Subscribe(context.Background(), fx.user.ID, fx.tier.ID)
	require.NoError(t, err)

	assert.Equal(t, SubscribeOutcomeAlreadySubscribed, res.Outcome)
	assert.Equal(t, int64(1000), res.AmountCents)

	assert.Empty(t, fake.customersCreated)
	assert.Empty(t, fake.pricesCreated)
	assert.Empty(t, fake.subsCreated)
	assert.Empty(t, fake.subsCanceled)
	assert.Empty(t, fake.priceUpdates)
}

func TestSubscribe_SwitchesTierInPlace(t *testing.T) {
	svc, fake, db := newTestService(t)
	fx := seedCatalog(t, db, 1000)
	seedActiveRow(t, db, fx, "sub_live")

	higher := &models.Tier{ID: tool.GenerateUUIDV7(), CreatorID: fx.creator.ID, Title: "Platinum", PriceCents: 2500, Active: true}
	require.NoError(t, db.Create(higher).Error)

	res, err := svc.Subscribe(context.Background(), fx.user.ID, higher.ID)
	require.NoError(t, err)

	assert.Equal(t, SubscribeOutcomeTierChanged, res.Outcome)
	assert.Equal(t, int64(2500), res.AmountCents)

	// existing provider subscription re-priced, no second one created
	require.Len(t, fake.pricesCreated, 1)
	assert.Equal(t, fake.pricesCreated[0].ID, fake.priceUpdates["sub_live"])
	assert.Empty(t, fake.subsCreated)

	var rows []*models.Subscription
	require.NoError(t, db.Where("user_id = ? AND creator_id = ?", fx.user.ID, fx.creator.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, higher.ID, rows[0].TierID)
	assert.Equal(t, int64(2500), rows[0].AmountCents)
	assert.Equal(t, types.SubscriptionStatusActive, rows[0].Status)
}

func TestSubscribe_DiscardsUnpayableSetup(t *testing.T) {
	svc, fake, db := newTestService(t)
	fx := seedCatalog(t, db, 1000)
	fake.clientSecret = ""

	_, err := svc.Subscribe(context.Background(), fx.user.ID, fx.tier.ID)
	require.ErrorIs(t, err, ErrPaymentSetupIncomplete)

	// the unpayable provider subscription is discarded, nothing recorded
	require.Len(t, fake.subsCreated, 1)
	assert.Equal(t, []string{fake.subsCreated[0].ID}, fake.subsCanceled)
	var count int64
	require.NoError(t, db.Model(&models.Subscription{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSubscribe_AnticipatedFailures(t *testing.T) {
	svc, _, db := newTestService(t)
	fx := seedCatalog(t, db, 1000)

	_, err := svc.Subscribe(context.Background(), fx.user.ID, "missing-tier")
	assert.ErrorIs(t, err, ErrTierNotFound)

	unboarded := &models.Creator{ID: tool.GenerateUUIDV7(), UserID: tool.GenerateUUIDV7(), DisplayName: "New"}
	require.NoError(t, db.Create(unboarded).Error)
	bare := &models.Tier{ID: tool.GenerateUUIDV7(), CreatorID: unboarded.ID, Title: "Basic", PriceCents: 500, Active: true}
	require.NoError(t, db.Create(bare).Error)

	_, err = svc.Subscribe(context.Background(), fx.user.ID, bare.ID)
	assert.ErrorIs(t, err, ErrCreatorPaymentsNotConfigured)
}

func TestCancel_Immediate(t *testing.T) {
	svc, fake, db := newTestService(t)
	fx := seedCatalog(t, db, 1000)
	seedActiveRow(t, db, fx, "sub_live")

	_, err := svc.Cancel(context.Background(), &CancelRequest{
		UserID: fx.user.ID, TierID: fx.tier.ID, CreatorID: fx.creator.ID, Immediate: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"sub_live"}, fake.subsCanceled)

	var row models.Subscription
	require.NoError(t, db.Where("user_id = ?", fx.user.ID).First(&row).Error)
	assert.Equal(t, types.SubscriptionStatusCanceled, row.Status)
	assert.False(t, row.CancelAtPeriodEnd)
	assert.Nil(t, row.CurrentPeriodEnd)
	assert.NotNil(t, row.CancelAt)
}

func TestCancel_Deferred(t *testing.T) {
	svc, fake, db := newTestService(t)
	fx := seedCatalog(t, db, 1000)
	seedActiveRow(t, db, fx, "sub_live")
	fake.periodEnd = time.Now().Add(20 * 24 * time.Hour).Unix()

	_, err := svc.Cancel(context.Background(), &CancelRequest{
		UserID: fx.user.ID, TierID: fx.tier.ID, CreatorID: fx.creator.ID,
	})
	require.NoError(t, err)

	assert.True(t, fake.deferredCancels["sub_live"])
	assert.Empty(t, fake.subsCanceled)

	var row models.Subscription
	require.NoError(t, db.Where("user_id = ?", fx.user.ID).First(&row).Error)
	assert.Equal(t, types.SubscriptionStatusActive, row.Status)
	assert.True(t, row.CancelAtPeriodEnd)
	require.NotNil(t, row.CurrentPeriodEnd)
	assert.Equal(t, fake.periodEnd, row.CurrentPeriodEnd.Unix())
}

func TestCancel_NoActiveSubscription(t *testing.T) {
	svc, _, db := newTestService(t)
	fx := seedCatalog(t, db, 1000)

	_, err := svc.Cancel(context.Background(), &CancelRequest{
		UserID: fx.user.ID, TierID: fx.tier.ID, CreatorID: fx.creator.ID, Immediate: true,
	})
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestUpsertSupersedesActiveRowAtOtherTier(t *testing.T) {
	svc, _, db := newTestService(t)
	fx := seedCatalog(t, db, 1000)
	seedActiveRow(t, db, fx, "sub_old")

	other := &models.Tier{ID: tool.GenerateUUIDV7(), CreatorID: fx.creator.ID, Title: "Platinum", PriceCents: 2500, Active: true}
	require.NoError(t, db.Create(other).Error)

	row := mirrorProviderSubscription(fx.user.ID, fx.creator.ID, other, "cus_1", &stripe.Subscription{
		ID:     "sub_live",
		Status: stripe.SubscriptionStatusActive,
	})
	require.NoError(t, svc.upsertLedgerRow(context.Background(), row))

	var active []*models.Subscription
	require.NoError(t, db.
		Where("user_id = ? AND creator_id = ? AND status = ?", fx.user.ID, fx.creator.ID, types.SubscriptionStatusActive).
		Find(&active).Error)
	require.Len(t, active, 1)
	assert.Equal(t, other.ID, active[0].TierID)
	assert.Equal(t, "sub_live", active[0].StripeSubscriptionID)

	var old models.Subscription
	require.NoError(t, db.Where("tier_id = ?", fx.tier.ID).First(&old).Error)
	assert.Equal(t, types.SubscriptionStatusCanceled, old.Status)
}

func TestListCreatorSubscribers_HealsTierDrift(t *testing.T) {
	svc, fake, db := newTestService(t)
	fx := seedCatalog(t, db, 1000)

	priceA, priceB := "price_a", "price_b"
	require.NoError(t, db.Model(&models.Tier{}).Where("id = ?", fx.tier.ID).Update("stripe_price_id", priceA).Error)
	other := &models.Tier{ID: tool.GenerateUUIDV7(), CreatorID: fx.creator.ID, Title: "Platinum", PriceCents: 2500, Active: true, StripePriceID: &priceB}
	require.NoError(t, db.Create(other).Error)

	// ledger stuck at the old tier while the provider moved to the new one
	seedActiveRow(t, db, fx, "sub_old")
	fake.customersByID["cus_1"] = &stripe.Customer{ID: "cus_1", Email: fx.user.Email}
	fake.subsByPrice[priceB] = []*stripe.Subscription{{
		ID:                 "sub_live",
		Status:             stripe.SubscriptionStatusActive,
		Customer:           &stripe.Customer{ID: "cus_1"},
		CurrentPeriodStart: time.Now().Unix(),
		CurrentPeriodEnd:   time.Now().Add(30 * 24 * time.Hour).Unix(),
	}}

	rows, err := svc.ListCreatorSubscribers(context.Background(), fx.creator.ID)
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, other.ID, rows[0].TierID)
	assert.Equal(t, "sub_live", rows[0].StripeSubscriptionID)

	var old models.Subscription
	require.NoError(t, db.Where("stripe_subscription_id = ?", "sub_old").First(&old).Error)
	assert.Equal(t, types.SubscriptionStatusCanceled, old.Status)
}

func TestChangeLogOutlivesRequest(t *testing.T) {
	svc, _, db := newTestService(t)
	fx := seedCatalog(t, db, 1000)
	seedActiveRow(t, db, fx, "sub_live")

	ctx, cancel := context.WithCancel(context.Background())
	_, err := svc.Cancel(ctx, &CancelRequest{
		UserID: fx.user.ID, TierID: fx.tier.ID, CreatorID: fx.creator.ID, Immediate: true,
	})
	require.NoError(t, err)
	cancel()

	require.Eventually(t, func() bool {
		var count int64
		if err := db.Model(&models.SubscriptionLog{}).
			Where("reason = ?", types.SubscriptionChangeReasonCancel).
			Count(&count).Error; err != nil {
			return false
		}
		return count == 1
	}, 2*time.Second, 10*time.Millisecond)
}
