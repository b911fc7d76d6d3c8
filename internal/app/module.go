package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fanrealms/billing/internal/app/api/server"
	"github.com/fanrealms/billing/internal/app/service/catalog"
	"github.com/fanrealms/billing/internal/app/service/event_log"
	"github.com/fanrealms/billing/internal/app/service/statistics"
	"github.com/fanrealms/billing/internal/app/service/subscription"
	"github.com/fanrealms/billing/internal/app/service/webhook_handler"
	"github.com/fanrealms/billing/internal/platform/billing"
	"github.com/fanrealms/billing/internal/platform/db"
	"github.com/fanrealms/billing/pkg/config"
	"github.com/fanrealms/billing/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	billing.Module,
	server.Module,
	subscription.Module,
	catalog.Module,
	statistics.Module,
	event_log.Module,
	webhook_handler.Module,
)
