package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"forecast-market/internal/auth"
	"forecast-market/internal/models"
	"forecast-market/internal/repository"
	"forecast-market/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SettlementHandler struct {
	db         *gorm.DB
	repo       *repository.Repository
	settlement *services.SettlementService
	contests   *services.ContestService
}

func NewSettlementHandler(
	db *gorm.DB,
	settlement *services.SettlementService,
	contests *services.ContestService,
) *SettlementHandler {
	return &SettlementHandler{
		db:         db,
		repo:       repository.NewRepository(db),
		settlement: settlement,
		contests:   contests,
	}
}

// ProposeSettlement lets the market creator propose the settlement outcome
// for an expired market
func (h *SettlementHandler) ProposeSettlement(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	marketID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid market ID"})
		return
	}

	var req models.ProposeSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	market, err := h.repo.GetMarketByID(c.Request.Context(), uint(marketID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Market not found"})
		return
	}
	if market.CreatedBy == nil || *market.CreatedBy != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the market creator can propose settlement"})
		return
	}

	updated, err := h.settlement.ProposeSettlement(c.Request.Context(), uint(marketID), req.Outcome, userID)
	if err != nil {
		respondSettlementError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    updated.ToResponse(time.Now()),
	})
}

// OpenContest disputes a proposed settlement with a bond
func (h *SettlementHandler) OpenContest(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	marketID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid market ID"})
		return
	}

	var req models.OpenContestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contest, err := h.contests.OpenContest(c.Request.Context(), uint(marketID), userID, req.BondAmount)
	if err != nil {
		respondSettlementError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    contest,
	})
}

// CastVote records a vote on a contested market outcome
func (h *SettlementHandler) CastVote(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	contestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contest ID"})
		return
	}

	var req models.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vote, err := h.contests.CastVote(c.Request.Context(), contestID, userID, req.Choice)
	if err != nil {
		respondSettlementError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    vote,
	})
}

// GetSettlement returns the settlement view of a market: its current
// (display) status, contest, votes and bonds
func (h *SettlementHandler) GetSettlement(c *gin.Context) {
	marketID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid market ID"})
		return
	}

	ctx := c.Request.Context()

	market, err := h.repo.GetMarketByID(ctx, uint(marketID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Market not found"})
		return
	}

	contest, err := h.repo.GetContestByMarket(ctx, uint(marketID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch contest"})
		return
	}

	bonds, err := h.repo.ListBonds(ctx, uint(marketID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bonds"})
		return
	}

	data := gin.H{
		"market": market.ToResponse(time.Now()),
		"bonds":  bonds,
	}
	if contest != nil {
		votes, _ := h.repo.CountVotes(ctx, contest.ID)
		data["contest"] = contest
		data["vote_count"] = votes
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// ForceSettle immediately finalizes a market using the best available
// outcome, ignoring deadlines. Admin only.
func (h *SettlementHandler) ForceSettle(c *gin.Context) {
	adminID := c.GetUint("admin_id")

	marketID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid market ID"})
		return
	}

	market, err := h.settlement.ForceSettle(c.Request.Context(), uint(marketID), adminID)
	if err != nil {
		respondSettlementError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    market.ToResponse(time.Now()),
	})
}

// EscalateToOracle submits the market question to the external oracle.
// Admin only.
func (h *SettlementHandler) EscalateToOracle(c *gin.Context) {
	marketID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid market ID"})
		return
	}

	requestID, err := h.settlement.EscalateToOracle(c.Request.Context(), uint(marketID))
	if err != nil {
		respondSettlementError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"request_id": requestID,
	})
}

// GetNotifications returns the authenticated user's settlement notifications
func (h *SettlementHandler) GetNotifications(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	notifications, err := h.repo.ListUserNotifications(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    notifications,
	})
}

// respondSettlementError maps the settlement error taxonomy onto HTTP
// statuses: invalid-state and duplicate rejections are client errors,
// pending/unavailable are retryable, the rest are server errors.
func respondSettlementError(c *gin.Context, err error) {
	var invalidState *services.InvalidStateError
	var insufficient *services.InsufficientBalanceError

	switch {
	case errors.As(err, &invalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicateContest),
		errors.Is(err, services.ErrDuplicateVote):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNoOutcomeAvailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrOraclePending):
		c.JSON(http.StatusAccepted, gin.H{"error": err.Error(), "retry": true})
	case errors.Is(err, services.ErrExternalUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "retry": true})
	case err == gorm.ErrRecordNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
