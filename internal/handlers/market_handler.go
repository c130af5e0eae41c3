package handlers

import (
	"net/http"
	"strconv"
	"time"

	"forecast-market/internal/auth"
	"forecast-market/internal/models"
	"forecast-market/internal/repository"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type MarketHandler struct {
	db   *gorm.DB
	repo *repository.Repository
}

func NewMarketHandler(db *gorm.DB) *MarketHandler {
	return &MarketHandler{
		db:   db,
		repo: repository.NewRepository(db),
	}
}

// GetMarkets returns public markets, optionally filtered by status/category
func (h *MarketHandler) GetMarkets(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	category := c.Query("category")
	status := models.MarketStatus(c.Query("status"))

	markets, err := h.repo.ListMarkets(c.Request.Context(), status, category, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch markets"})
		return
	}

	now := time.Now()
	responses := make([]models.MarketResponse, 0, len(markets))
	for i := range markets {
		responses = append(responses, markets[i].ToResponse(now))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    responses,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetMarketByID returns a single market
func (h *MarketHandler) GetMarketByID(c *gin.Context) {
	marketID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid market ID"})
		return
	}

	market, err := h.repo.GetMarketByID(c.Request.Context(), uint(marketID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Market not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    market.ToResponse(time.Now()),
	})
}

// CreateMarket creates a new market
func (h *MarketHandler) CreateMarket(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !req.EndTime.After(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "End time must be in the future"})
		return
	}

	market := models.Market{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Status:      models.MarketStatusActive,
		EndTime:     req.EndTime,
		CreatedBy:   &userID,
		IsPrivate:   req.IsPrivate,
		GroupID:     req.GroupID,
	}

	if err := h.db.Create(&market).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create market"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    market.ToResponse(time.Now()),
	})
}
