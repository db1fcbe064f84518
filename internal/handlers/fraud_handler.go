package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"referral-engine/internal/auth"
	"referral-engine/internal/metrics"
	"referral-engine/internal/services"
)

type FraudHandler struct {
	fraud     *services.FraudService
	whitelist *services.WhitelistService
}

func NewFraudHandler(fraud *services.FraudService, whitelist *services.WhitelistService) *FraudHandler {
	return &FraudHandler{
		fraud:     fraud,
		whitelist: whitelist,
	}
}

// Scan runs the three fraud sections over [from, to].
func (h *FraudHandler) Scan(c *gin.Context) {
	from, err := parseScanTime(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from parameter"})
		return
	}

	to, err := parseScanTime(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to parameter"})
		return
	}

	if !to.After(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be after from"})
		return
	}

	start := time.Now()
	report := h.fraud.Scan(c.Request.Context(), from, to)
	metrics.FraudScanDuration.Observe(time.Since(start).Seconds())

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    report,
	})
}

// AddWhitelistedIP whitelists an IP for the clustering scan.
func (h *FraudHandler) AddWhitelistedIP(c *gin.Context) {
	actorID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		IP     string `json:"ip" binding:"required,ip"`
		Reason string `json:"reason" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.whitelist.Add(c.Request.Context(), req.IP, req.Reason, actorID)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateWhitelistEntry) {
			c.JSON(http.StatusConflict, gin.H{"error": "ip already whitelisted"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to whitelist ip"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    entry,
	})
}

// RemoveWhitelistedIP deletes a whitelist entry.
func (h *FraudHandler) RemoveWhitelistedIP(c *gin.Context) {
	actorID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	ip := c.Param("ip")
	if err := h.whitelist.Remove(c.Request.Context(), ip, actorID); err != nil {
		if errors.Is(err, services.ErrWhitelistEntryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "whitelist entry not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove whitelist entry"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListWhitelistedIPs returns all whitelist entries.
func (h *FraudHandler) ListWhitelistedIPs(c *gin.Context) {
	entries, err := h.whitelist.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list whitelist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    entries,
		"count":   len(entries),
	})
}

// parseScanTime accepts RFC3339 or a bare date.
func parseScanTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
