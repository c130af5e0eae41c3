package handlers

import (
	"net/http"
	"time"

	"forecast-market/internal/services"

	"github.com/gin-gonic/gin"
)

// TriggerHandler exposes the periodic scheduler entry points. Each endpoint
// is callable with no arguments, safe under concurrent invocation, and
// returns a structured batch summary. Callers authenticate with the trigger
// shared secret or an admin session (enforced by middleware on the group).
type TriggerHandler struct {
	settlement *services.SettlementService
	adminID    uint // attributed admin for force-settle sweeps run by cron
}

func NewTriggerHandler(settlement *services.SettlementService, sweepAdminID uint) *TriggerHandler {
	return &TriggerHandler{
		settlement: settlement,
		adminID:    sweepAdminID,
	}
}

// CheckPendingSettlements runs the main scan: auto-accept expired contest
// windows and resolve contests past their vote deadline
func (h *TriggerHandler) CheckPendingSettlements(c *gin.Context) {
	summary := h.settlement.ScanAndAdvance(c.Request.Context(), time.Now())
	c.JSON(http.StatusOK, summary)
}

// ForceSettlePending force-settles every market stuck past its deadlines.
// Manual operational override.
func (h *TriggerHandler) ForceSettlePending(c *gin.Context) {
	summary := h.settlement.ForceSettlePending(c.Request.Context(), time.Now(), h.adminID)
	c.JSON(http.StatusOK, summary)
}

// OracleSweep finalizes markets whose oracle liveness window has elapsed
func (h *TriggerHandler) OracleSweep(c *gin.Context) {
	summary := h.settlement.OracleSweep(c.Request.Context(), time.Now())
	c.JSON(http.StatusOK, summary)
}
