package handlers

import (
	"github.com/fanrealms/billing/internal/app/service/statistics"
	subsvc "github.com/fanrealms/billing/internal/app/service/subscription"
	"github.com/fanrealms/billing/internal/models"
	"github.com/fanrealms/billing/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespSubscribeResult wraps SubscribeResult in the standard envelope.
type RespSubscribeResult struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    subsvc.SubscribeResult   `json:"data"`
}

// RespSubscriptions wraps a list of ledger rows in the standard envelope.
type RespSubscriptions struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Subscription    `json:"data"`
}

// RespListSubscriptions wraps the admin scan result in the standard envelope.
type RespListSubscriptions struct {
	Code    response.APIResponseCode  `json:"code"`
	Message string                    `json:"message"`
	Data    ListSubscriptionsResponse `json:"data"`
}

// creatorStatsResponse combines current stats with optional daily history.
type creatorStatsResponse struct {
	*statistics.CreatorStats
	History []*models.CreatorDailySnapshot `json:"history,omitempty"`
}

// RespCreatorStats wraps creator statistics in the standard envelope.
type RespCreatorStats struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    statistics.CreatorStats  `json:"data"`
}
