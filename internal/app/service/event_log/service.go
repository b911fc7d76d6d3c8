package event_log

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fanrealms/billing/internal/models"
	"github.com/fanrealms/billing/pkg/logctx"
	"github.com/fanrealms/billing/pkg/tool"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Save asynchronously persists a webhook event log. Nil input is ignored.
func (s *Service) Save(ctx context.Context, entry *models.WebhookEventLog) {
	go func() {
		if entry == nil {
			return
		}
		if entry.ID == "" {
			entry.ID = tool.GenerateUUIDV7()
		}
		if err := s.db.Save(entry).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save webhook event log: %v", err)
		}
	}()
}
