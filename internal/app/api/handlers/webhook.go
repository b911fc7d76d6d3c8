package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	wh "github.com/fanrealms/billing/internal/app/service/webhook_handler"
	"github.com/fanrealms/billing/pkg/response"
)

// @Summary      Stripe webhook
// @Description  Receives billing-provider events; payment confirmations and provider-side cancellations flow into the ledger here.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /webhook/stripe [post]
func ApiStripeWebhook(handler *wh.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "failed to read body"))
			return
		}

		if err := handler.HandleEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(map[string]bool{"received": true}))
	}
}

func RegisterWebhookRoutes(r gin.IRouter, handler *wh.Handler) {
	r.POST("/webhook/stripe", ApiStripeWebhook(handler))
}
