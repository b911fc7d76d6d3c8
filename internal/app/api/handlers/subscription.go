package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fanrealms/billing/internal/app/api/middleware"
	"github.com/fanrealms/billing/internal/app/service/catalog"
	subsvc "github.com/fanrealms/billing/internal/app/service/subscription"
	"github.com/fanrealms/billing/pkg/response"
)

type subscribeRequest struct {
	TierID string `json:"tier_id" binding:"required"`
}

type cancelRequest struct {
	TierID    string `json:"tier_id" binding:"required"`
	CreatorID string `json:"creator_id" binding:"required"`
	Immediate bool   `json:"immediate"`
}

// @Summary      Subscribe to a tier
// @Description  Starts a subscription, switches tier, or reports the caller is already subscribed.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        request body subscribeRequest true "Subscribe request"
// @Success      200  {object}  handlers.RespSubscribeResult
// @Router       /api/v1/subscriptions [post]
func ApiSubscribe(mgr subsvc.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req subscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		res, err := mgr.Subscribe(c.Request.Context(), middleware.CallerID(c), req.TierID)
		if err != nil {
			status, code := subscribeErrorStatus(err)
			c.JSON(status, response.ErrorT[any](code, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func subscribeErrorStatus(err error) (int, response.APIResponseCode) {
	switch {
	case errors.Is(err, subsvc.ErrTierNotFound):
		return http.StatusNotFound, response.APIResponseCodeNotFound
	case errors.Is(err, subsvc.ErrCreatorPaymentsNotConfigured),
		errors.Is(err, subsvc.ErrPaymentSetupIncomplete),
		errors.Is(err, subsvc.ErrSubscriptionConflict):
		return http.StatusBadRequest, response.APIResponseCodeBadRequest
	default:
		return http.StatusInternalServerError, response.APIResponseCodeError
	}
}

// @Summary      Cancel a subscription
// @Description  Cancels immediately or at the end of the current billing period.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        request body cancelRequest true "Cancel request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/subscriptions/cancel [post]
func ApiCancelSubscription(mgr subsvc.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cancelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		res, err := mgr.Cancel(c.Request.Context(), &subsvc.CancelRequest{
			UserID:    middleware.CallerID(c),
			TierID:    req.TierID,
			CreatorID: req.CreatorID,
			Immediate: req.Immediate,
		})
		if err != nil {
			if errors.Is(err, subsvc.ErrSubscriptionNotFound) {
				c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      List own subscriptions
// @Description  Returns every subscription of the caller, newest first.
// @Tags         Subscription
// @Produce      json
// @Success      200  {object}  handlers.RespSubscriptions
// @Router       /api/v1/subscriptions [get]
func ApiListMySubscriptions(mgr subsvc.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := mgr.ListForUser(c.Request.Context(), middleware.CallerID(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      List creator subscribers
// @Description  Reconciles the ledger against the billing provider, then returns the creator's active subscribers. Creator-only.
// @Tags         Subscription
// @Produce      json
// @Param        creator_id path string true "Creator ID"
// @Success      200  {object}  handlers.RespSubscriptions
// @Router       /api/v1/creators/{creator_id}/subscribers [get]
func ApiListCreatorSubscribers(mgr subsvc.Manager, cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		creatorID := c.Param("creator_id")
		caller, err := cat.CreatorByUser(c.Request.Context(), middleware.CallerID(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		if caller == nil || caller.ID != creatorID {
			c.JSON(http.StatusForbidden, response.ErrorT[any](response.APIResponseCodeForbidden, "not your subscriber list"))
			return
		}

		rows, err := mgr.ListCreatorSubscribers(c.Request.Context(), creatorID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

func RegisterSubscriptionRoutes(r gin.IRouter, mgr subsvc.Manager, cat *catalog.Service) {
	r.POST("/subscriptions", ApiSubscribe(mgr))
	r.POST("/subscriptions/cancel", ApiCancelSubscription(mgr))
	r.GET("/subscriptions", ApiListMySubscriptions(mgr))
	r.GET("/creators/:creator_id/subscribers", ApiListCreatorSubscribers(mgr, cat))
}
