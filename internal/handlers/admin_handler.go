package handlers

import (
	"net/http"
	"strconv"

	"forecast-market/internal/models"
	"forecast-market/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AdminHandler struct {
	db           *gorm.DB
	adminService *services.AdminService
}

func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{
		db:           db,
		adminService: services.NewAdminService(db),
	}
}

// AdminMiddleware checks if user is admin
func (h *AdminHandler) AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		admin, err := h.adminService.GetAdminByUserID(userID.(uint))
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not an admin"})
			c.Abort()
			return
		}

		c.Set("admin_id", admin.ID)
		c.Set("admin_role", admin.Role)
		c.Next()
	}
}

// SuspendMarket pauses a market
func (h *AdminHandler) SuspendMarket(c *gin.Context) {
	h.marketAction(c, h.adminService.SuspendMarket)
}

// CancelMarket voids a market
func (h *AdminHandler) CancelMarket(c *gin.Context) {
	h.marketAction(c, h.adminService.CancelMarket)
}

// ResumeMarket reactivates a suspended market
func (h *AdminHandler) ResumeMarket(c *gin.Context) {
	h.marketAction(c, h.adminService.ResumeMarket)
}

func (h *AdminHandler) marketAction(
	c *gin.Context,
	action func(marketID, adminID uint, reason string) (*models.Market, error),
) {
	adminID := c.GetUint("admin_id")

	marketID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid market ID"})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	market, err := action(uint(marketID), adminID, req.Reason)
	if err != nil {
		respondSettlementError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    market,
	})
}

// GetIssues returns the unresolved operator queue
func (h *AdminHandler) GetIssues(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	issues, err := h.adminService.OpenIssues(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch issues"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    issues,
	})
}

// ResolveIssue marks an operator queue entry handled
func (h *AdminHandler) ResolveIssue(c *gin.Context) {
	if err := h.adminService.ResolveIssue(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetAdminLogs returns recent administrative actions
func (h *AdminHandler) GetAdminLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	var logs []models.AdminLog
	if err := h.db.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    logs,
	})
}
