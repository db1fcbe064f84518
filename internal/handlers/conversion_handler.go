package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"referral-engine/internal/metrics"
	"referral-engine/internal/services"
)

type ConversionHandler struct {
	conversions *services.ConversionService
}

func NewConversionHandler(conversions *services.ConversionService) *ConversionHandler {
	return &ConversionHandler{conversions: conversions}
}

// RecordConversion handles the external conversion event. No
// attribution and already-converted are soft 200 outcomes, not errors.
func (h *ConversionHandler) RecordConversion(c *gin.Context) {
	var req struct {
		ConvertedUserID uint    `json:"converted_user_id" binding:"required"`
		Code            string  `json:"code"`
		Token           string  `json:"token"`
		OrderValue      string  `json:"order_value" binding:"required"`
		ProductID       *string `json:"product_id"`
		SubscriptionID  *string `json:"subscription_id"`
		BillingCycle    int     `json:"billing_cycle"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Code == "" && req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code or token is required"})
		return
	}

	orderValue, err := decimal.NewFromString(req.OrderValue)
	if err != nil || orderValue.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order_value"})
		return
	}

	result, err := h.conversions.RecordConversion(c.Request.Context(), services.RecordConversionInput{
		ConvertedUserID: req.ConvertedUserID,
		Code:            req.Code,
		Token:           req.Token,
		OrderValue:      orderValue,
		ProductID:       req.ProductID,
		SubscriptionID:  req.SubscriptionID,
		BillingCycle:    req.BillingCycle,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record conversion"})
		return
	}

	metrics.Conversions.WithLabelValues(result.Outcome).Inc()

	if result.Outcome != services.OutcomeConverted {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"status":  result.Outcome,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"status":            result.Outcome,
		"earning_id":        result.EarningID,
		"commission_amount": result.CommissionAmount,
		"boost_amount":      result.BoostAmount,
		"total_amount":      result.TotalAmount,
		"tier":              result.Tier,
	})
}
