package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fanrealms/billing/internal/app/service/statistics"
	"github.com/fanrealms/billing/internal/models"
	"github.com/fanrealms/billing/pkg/response"
	"github.com/fanrealms/billing/pkg/types"
)

type ListSubscriptionsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type SubscriptionItem struct {
	ID                   string                   `json:"id"`
	UserID               string                   `json:"user_id"`
	CreatorID            string                   `json:"creator_id"`
	TierID               string                   `json:"tier_id"`
	StripeSubscriptionID string                   `json:"stripe_subscription_id"`
	StripeCustomerID     string                   `json:"stripe_customer_id"`
	Status               types.SubscriptionStatus `json:"status"`
	AmountCents          int64                    `json:"amount_cents"`
	CurrentPeriodStart   *time.Time               `json:"current_period_start"`
	CurrentPeriodEnd     *time.Time               `json:"current_period_end"`
	CancelAtPeriodEnd    bool                     `json:"cancel_at_period_end"`
	CancelAt             *time.Time               `json:"cancel_at"`
	CreatedAt            time.Time                `json:"created_at"`
	UpdatedAt            time.Time                `json:"updated_at"`
}

type ListSubscriptionsResponse struct {
	Items []*SubscriptionItem `json:"items"`
	Total int64               `json:"total"`
}

// filtersWhere wraps a list of filters to a single clause.Expression
type filtersWhere struct{ filters []*types.CommonFilter }

func (w filtersWhere) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	for i, f := range w.filters {
		if i > 0 {
			builder.WriteString(" AND ")
		}
		f.Build(builder)
	}
}

// @Summary      Admin: list ledger rows
// @Description  Filtered, paginated scan of the subscription ledger.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body ListSubscriptionsRequest true "Filter request"
// @Success      200  {object}  handlers.RespListSubscriptions
// @Router       /api/v1/admin/subscriptions/list [post]
func ApiAdminListSubscriptions(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ListSubscriptionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if req.Size <= 0 {
			req.Size = 20
		}
		if req.From < 0 {
			req.From = 0
		}
		sortBy := req.SortBy
		if sortBy == "" {
			sortBy = "created_at"
		}
		sortOrder := req.SortOrder
		if sortOrder != "asc" && sortOrder != "desc" {
			sortOrder = "desc"
		}

		q := db.WithContext(c.Request.Context()).Model(&models.Subscription{}).
			Where(clause.Where{Exprs: []clause.Expression{filtersWhere{filters: req.Filters}}})

		var total int64
		if err := q.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		var rows []*models.Subscription
		if err := q.Order(sortBy + " " + sortOrder).Offset(req.From).Limit(req.Size).Find(&rows).Error; err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		items := lo.Map(rows, func(r *models.Subscription, _ int) *SubscriptionItem {
			return &SubscriptionItem{
				ID:                   r.ID,
				UserID:               r.UserID,
				CreatorID:            r.CreatorID,
				TierID:               r.TierID,
				StripeSubscriptionID: r.StripeSubscriptionID,
				StripeCustomerID:     r.StripeCustomerID,
				Status:               r.Status,
				AmountCents:          r.AmountCents,
				CurrentPeriodStart:   r.CurrentPeriodStart,
				CurrentPeriodEnd:     r.CurrentPeriodEnd,
				CancelAtPeriodEnd:    r.CancelAtPeriodEnd,
				CancelAt:             r.CancelAt,
				CreatedAt:            r.CreatedAt,
				UpdatedAt:            r.UpdatedAt,
			}
		})
		c.JSON(http.StatusOK, response.OKT(&ListSubscriptionsResponse{Items: items, Total: total}))
	}
}

// @Summary      Admin: snapshot a creator
// @Description  Upserts today's subscriber/MRR snapshot for the creator.
// @Tags         Admin
// @Produce      json
// @Param        creator_id path string true "Creator ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/creators/{creator_id}/snapshot [post]
func ApiAdminSnapshotCreator(stats *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := stats.SaveCreatorDailySnapshot(c.Request.Context(), c.Param("creator_id"), time.Now()); err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(map[string]bool{"ok": true}))
	}
}

func RegisterAdminRoutes(r gin.IRouter, db *gorm.DB, stats *statistics.Service) {
	r.POST("/subscriptions/list", ApiAdminListSubscriptions(db))
	r.POST("/creators/:creator_id/snapshot", ApiAdminSnapshotCreator(stats))
}
