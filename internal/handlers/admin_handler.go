package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"referral-engine/internal/auth"
	"referral-engine/internal/repository"
	"referral-engine/internal/services"
)

// AdminHandler carries the admin-gated surfaces: tier locks, link
// provisioning, the earnings feed for tax reporting, the notification
// queue for the dispatcher and the audit trail.
type AdminHandler struct {
	repo          *repository.Repository
	tiers         *services.TierService
	links         *services.LinkService
	notifications *services.NotificationService
}

func NewAdminHandler(repo *repository.Repository, tiers *services.TierService, links *services.LinkService, notifications *services.NotificationService) *AdminHandler {
	return &AdminHandler{
		repo:          repo,
		tiers:         tiers,
		links:         links,
		notifications: notifications,
	}
}

// LockTier freezes automatic tier recompute for a referrer.
func (h *AdminHandler) LockTier(c *gin.Context) {
	h.setTierLock(c, true)
}

// UnlockTier clears the manual tier lock.
func (h *AdminHandler) UnlockTier(c *gin.Context) {
	h.setTierLock(c, false)
}

func (h *AdminHandler) setTierLock(c *gin.Context, locked bool) {
	actorID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		ReferrerID uint `json:"referrer_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var err error
	if locked {
		err = h.tiers.Lock(c.Request.Context(), req.ReferrerID, actorID)
	} else {
		err = h.tiers.Unlock(c.Request.Context(), req.ReferrerID, actorID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update tier lock"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"locked":  locked,
	})
}

// ProvisionLink creates a referral link with a generated code.
func (h *AdminHandler) ProvisionLink(c *gin.Context) {
	actorID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		ReferrerID           uint   `json:"referrer_id" binding:"required"`
		LinkType             string `json:"link_type"`
		NotificationsEnabled *bool  `json:"notifications_enabled"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	notificationsEnabled := true
	if req.NotificationsEnabled != nil {
		notificationsEnabled = *req.NotificationsEnabled
	}

	link, err := h.links.ProvisionLink(c.Request.Context(), req.ReferrerID, req.LinkType, notificationsEnabled, actorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to provision link"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    link,
	})
}

// GetEarnings is the read-only feed for the external tax/earnings
// reporting collaborator.
func (h *AdminHandler) GetEarnings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	status := c.Query("status")
	year, _ := strconv.Atoi(c.Query("year"))

	earnings, total, err := h.repo.ListEarnings(c.Request.Context(), status, year, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch earnings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    earnings,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetTier returns a referrer's tier row.
func (h *AdminHandler) GetTier(c *gin.Context) {
	referrerID, err := strconv.ParseUint(c.Param("referrerId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid referrer id"})
		return
	}

	tier, err := h.repo.GetTier(c.Request.Context(), uint(referrerID))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tier not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tier"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    tier,
	})
}

// GetPendingNotifications hands queued records to the dispatcher.
func (h *AdminHandler) GetPendingNotifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	records, err := h.notifications.Pending(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    records,
		"count":   len(records),
	})
}

// MarkNotificationsDispatched acknowledges dispatcher delivery.
func (h *AdminHandler) MarkNotificationsDispatched(c *gin.Context) {
	var req struct {
		IDs []uint `json:"ids" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.notifications.MarkDispatched(c.Request.Context(), req.IDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"updated": updated,
	})
}

// GetAuditLogs returns the administrative audit trail.
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	logs, err := h.repo.ListAuditLogs(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch audit logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    logs,
		"count":   len(logs),
	})
}
