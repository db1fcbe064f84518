package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"referral-engine/internal/metrics"
	"referral-engine/internal/services"
)

type VisitHandler struct {
	visits *services.VisitService
}

func NewVisitHandler(visits *services.VisitService) *VisitHandler {
	return &VisitHandler{visits: visits}
}

// RecordVisit handles the public visit write path. Server-to-server
// callers send the visitor IP in the body; otherwise the connection
// address is used.
func (h *VisitHandler) RecordVisit(c *gin.Context) {
	var req struct {
		Code        string `json:"code" binding:"required"`
		IP          string `json:"ip"`
		UserAgent   string `json:"user_agent"`
		ReferrerURL string `json:"referrer"`
		LandingURL  string `json:"landing_url"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.IP == "" {
		req.IP = c.ClientIP()
	}
	if req.UserAgent == "" {
		req.UserAgent = c.GetHeader("User-Agent")
	}

	result, err := h.visits.RecordVisit(c.Request.Context(), services.RecordVisitInput{
		Code:        req.Code,
		IPAddress:   req.IP,
		UserAgent:   req.UserAgent,
		ReferrerURL: req.ReferrerURL,
		LandingURL:  req.LandingURL,
	})

	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCode):
			c.JSON(http.StatusNotFound, gin.H{"error": "invalid_code"})
		case errors.Is(err, services.ErrRateLimited):
			metrics.VisitsRateLimited.Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record visit"})
		}
		return
	}

	if result.Deduplicated {
		metrics.VisitsDeduplicated.Inc()
	} else {
		metrics.VisitsRecorded.Inc()
	}

	status := http.StatusCreated
	if result.Deduplicated {
		status = http.StatusOK
	}

	c.JSON(status, gin.H{
		"success":           true,
		"visit_id":          result.VisitID,
		"attribution_token": result.AttributionToken,
	})
}
