package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fanrealms/billing/internal/models"
	"github.com/fanrealms/billing/internal/platform/billing"
	"github.com/fanrealms/billing/pkg/config"
	"github.com/fanrealms/billing/pkg/types"
)

// Anticipated failures of the lifecycle operations. Handlers map these to
// client-facing statuses; anything else is a provider or store failure.
var (
	ErrTierNotFound                 = errors.New("tier not found")
	ErrCreatorPaymentsNotConfigured = errors.New("creator has not configured payments")
	ErrSubscriptionNotFound         = errors.New("subscription not found")
	ErrPaymentSetupIncomplete       = errors.New("payment setup incomplete, please try again")
	// ErrSubscriptionConflict is returned when the active-per-creator unique
	// index rejects a row, i.e. a concurrent subscribe won the race.
	ErrSubscriptionConflict = errors.New("an active subscription to this creator already exists")
)

type SubscribeOutcome string

const (
	// SubscribeOutcomeStarted: provider subscription created, payment pending.
	SubscribeOutcomeStarted SubscribeOutcome = "started"
	// SubscribeOutcomeAlreadySubscribed: same tier already active. Informational,
	// not an error, so the UI does not surface a failure state.
	SubscribeOutcomeAlreadySubscribed SubscribeOutcome = "already_subscribed"
	// SubscribeOutcomeTierChanged: existing provider subscription re-priced.
	SubscribeOutcomeTierChanged SubscribeOutcome = "tier_changed"
)

type SubscribeResult struct {
	Outcome SubscribeOutcome `json:"outcome"`
	// ClientSecret lets the caller finish payment setup client-side. Only set
	// for SubscribeOutcomeStarted.
	ClientSecret   string `json:"client_secret,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	AmountCents    int64  `json:"amount_cents"`
	TierName       string `json:"tier_name"`
}

type CancelRequest struct {
	UserID    string
	TierID    string
	CreatorID string
	Immediate bool
}

type CancelResult struct {
	CreatorID string `json:"creator_id"`
	TierID    string `json:"tier_id"`
	Immediate bool   `json:"immediate"`
}

// Manager is the subscription lifecycle surface consumed by the HTTP layer.
type Manager interface {
	Subscribe(ctx context.Context, userID, tierID string) (*SubscribeResult, error)
	Cancel(ctx context.Context, req *CancelRequest) (*CancelResult, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Subscription, error)
	ListCreatorSubscribers(ctx context.Context, creatorID string) ([]*models.Subscription, error)
}

type Service struct {
	cfg     *config.Config
	db      *gorm.DB
	log     *zap.SugaredLogger
	billing billing.Client
}

func NewService(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger, bc billing.Client) *Service {
	return &Service{cfg: cfg, db: db, log: log, billing: bc}
}

// ListForUser returns every ledger row for a user, newest first, with tier and
// creator detail preloaded for the UI.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*models.Subscription, error) {
	var rows []*models.Subscription
	if err := s.db.WithContext(ctx).
		Preload("Tier").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return rows, nil
}

func (s *Service) findActiveByPair(ctx context.Context, tx *gorm.DB, userID, creatorID string) (*models.Subscription, error) {
	var row models.Subscription
	err := tx.WithContext(ctx).
		Where("user_id = ? AND creator_id = ? AND status = ?", userID, creatorID, types.SubscriptionStatusActive).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active subscription: %w", err)
	}
	return &row, nil
}

func timeFromUnix(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
