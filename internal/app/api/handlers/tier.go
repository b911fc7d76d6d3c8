package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fanrealms/billing/internal/app/api/middleware"
	"github.com/fanrealms/billing/internal/app/service/catalog"
	"github.com/fanrealms/billing/internal/app/service/statistics"
	"github.com/fanrealms/billing/pkg/response"
)

type createTierRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents" binding:"required"`
}

type updateTierRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	PriceCents  *int64  `json:"price_cents"`
	Active      *bool   `json:"active"`
}

// resolveCreator loads the caller's creator profile or writes a 403.
func resolveCreator(c *gin.Context, cat *catalog.Service) (string, bool) {
	caller, err := cat.CreatorByUser(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
		return "", false
	}
	if caller == nil {
		c.JSON(http.StatusForbidden, response.ErrorT[any](response.APIResponseCodeForbidden, "caller is not a creator"))
		return "", false
	}
	return caller.ID, true
}

// @Summary      Create a tier
// @Tags         Catalog
// @Accept       json
// @Produce      json
// @Param        request body createTierRequest true "Tier definition"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/tiers [post]
func ApiCreateTier(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createTierRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		creatorID, ok := resolveCreator(c, cat)
		if !ok {
			return
		}

		tier, err := cat.CreateTier(c.Request.Context(), &catalog.CreateTierRequest{
			CreatorID:   creatorID,
			Title:       req.Title,
			Description: req.Description,
			PriceCents:  req.PriceCents,
		})
		if err != nil {
			if errors.Is(err, catalog.ErrInvalidPricing) {
				c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(tier))
	}
}

// @Summary      Update a tier
// @Description  Partial update. A price change invalidates the cached provider price.
// @Tags         Catalog
// @Accept       json
// @Produce      json
// @Param        tier_id path string true "Tier ID"
// @Param        request body updateTierRequest true "Fields to update"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/tiers/{tier_id} [patch]
func ApiUpdateTier(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateTierRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		creatorID, ok := resolveCreator(c, cat)
		if !ok {
			return
		}

		tier, err := cat.UpdateTier(c.Request.Context(), &catalog.UpdateTierRequest{
			CreatorID:   creatorID,
			TierID:      c.Param("tier_id"),
			Title:       req.Title,
			Description: req.Description,
			PriceCents:  req.PriceCents,
			Active:      req.Active,
		})
		if err != nil {
			switch {
			case errors.Is(err, catalog.ErrTierNotFound):
				c.JSON(http.StatusNotFound, response.ErrorT[any](response.APIResponseCodeNotFound, err.Error()))
			case errors.Is(err, catalog.ErrNotTierOwner):
				c.JSON(http.StatusForbidden, response.ErrorT[any](response.APIResponseCodeForbidden, err.Error()))
			case errors.Is(err, catalog.ErrInvalidPricing):
				c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			default:
				c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			}
			return
		}
		c.JSON(http.StatusOK, response.OKT(tier))
	}
}

// @Summary      List a creator's tiers
// @Tags         Catalog
// @Produce      json
// @Param        creator_id path string true "Creator ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/creators/{creator_id}/tiers [get]
func ApiListCreatorTiers(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tiers, err := cat.ListCreatorTiers(c.Request.Context(), c.Param("creator_id"), false)
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(tiers))
	}
}

// @Summary      Creator statistics
// @Description  Active subscriber count and MRR per tier, plus daily history when from/to are given.
// @Tags         Statistics
// @Produce      json
// @Param        creator_id path string true "Creator ID"
// @Success      200  {object}  handlers.RespCreatorStats
// @Router       /api/v1/creators/{creator_id}/stats [get]
func ApiCreatorStats(stats *statistics.Service, cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		creatorID := c.Param("creator_id")
		callerCreatorID, ok := resolveCreator(c, cat)
		if !ok {
			return
		}
		if callerCreatorID != creatorID {
			c.JSON(http.StatusForbidden, response.ErrorT[any](response.APIResponseCodeForbidden, "not your statistics"))
			return
		}

		res, err := stats.GetCreatorStats(c.Request.Context(), creatorID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		out := creatorStatsResponse{CreatorStats: res}
		if from, to, hasRange := historyRange(c); hasRange {
			history, err := stats.GetCreatorHistory(c.Request.Context(), creatorID, from, to)
			if err != nil {
				c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
				return
			}
			out.History = history
		}
		c.JSON(http.StatusOK, response.OKT(out))
	}
}

func historyRange(c *gin.Context) (time.Time, time.Time, bool) {
	fromStr, toStr := c.Query("from"), c.Query("to")
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, false
	}
	from, err1 := time.Parse(time.DateOnly, fromStr)
	to, err2 := time.Parse(time.DateOnly, toStr)
	if err1 != nil || err2 != nil {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func RegisterCatalogRoutes(r gin.IRouter, cat *catalog.Service, stats *statistics.Service) {
	r.POST("/tiers", ApiCreateTier(cat))
	r.PATCH("/tiers/:tier_id", ApiUpdateTier(cat))
	r.GET("/creators/:creator_id/tiers", ApiListCreatorTiers(cat))
	r.GET("/creators/:creator_id/stats", ApiCreatorStats(stats, cat))
}
