package repository

import (
	"context"

	"forecast-market/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository provides read access to settlement state for the HTTP layer
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetMarketByID retrieves a market by ID
func (r *Repository) GetMarketByID(ctx context.Context, marketID uint) (*models.Market, error) {
	var market models.Market
	err := r.db.WithContext(ctx).Where("id = ?", marketID).First(&market).Error
	if err != nil {
		return nil, err
	}
	return &market, nil
}

// ListMarkets retrieves markets filtered by status and category
func (r *Repository) ListMarkets(
	ctx context.Context,
	status models.MarketStatus,
	category string,
	limit int,
	offset int,
) ([]models.Market, error) {
	query := r.db.WithContext(ctx).Model(&models.Market{}).Where("is_private = ?", false)

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var markets []models.Market
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&markets).Error
	if err != nil {
		return nil, err
	}
	return markets, nil
}

// GetContestByID retrieves a contest by ID
func (r *Repository) GetContestByID(ctx context.Context, contestID uuid.UUID) (*models.SettlementContest, error) {
	var contest models.SettlementContest
	err := r.db.WithContext(ctx).Where("id = ?", contestID).First(&contest).Error
	if err != nil {
		return nil, err
	}
	return &contest, nil
}

// GetContestByMarket retrieves the most recent contest for a market, or nil
func (r *Repository) GetContestByMarket(ctx context.Context, marketID uint) (*models.SettlementContest, error) {
	var contest models.SettlementContest
	err := r.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("created_at DESC").
		First(&contest).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contest, nil
}

// CountVotes returns the number of votes cast in a contest
func (r *Repository) CountVotes(ctx context.Context, contestID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ContestVote{}).
		Where("contest_id = ?", contestID).
		Count(&count).Error
	return count, err
}

// ListBonds retrieves all bonds for a market
func (r *Repository) ListBonds(ctx context.Context, marketID uint) ([]models.SettlementBond, error) {
	var bonds []models.SettlementBond
	err := r.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("created_at ASC").
		Find(&bonds).Error
	if err != nil {
		return nil, err
	}
	return bonds, nil
}

// ListUserNotifications retrieves recent notifications for a user
func (r *Repository) ListUserNotifications(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
