package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"forecast-market/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminService handles administrative market actions and the operator queue
type AdminService struct {
	db    *gorm.DB
	bonds *BondService
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db, bonds: NewBondService(db)}
}

// GetAdminByUserID returns the admin record for a user, if any
func (s *AdminService) GetAdminByUserID(userID uint) (*models.AdminUser, error) {
	var admin models.AdminUser
	if err := s.db.Where("user_id = ?", userID).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

// SuspendMarket pauses a market. Reachable only through explicit
// administrative action and guarded by the transition table.
func (s *AdminService) SuspendMarket(marketID, adminID uint, reason string) (*models.Market, error) {
	return s.transitionMarket(marketID, adminID, models.MarketStatusSuspended, "suspend_market", reason)
}

// CancelMarket voids a market. Terminal. Bonds held for a pending or
// contested settlement are refunded to their posters and any open contest is
// expired; a refund failure lands in the operator queue rather than failing
// the cancellation, since the status change has already committed.
func (s *AdminService) CancelMarket(marketID, adminID uint, reason string) (*models.Market, error) {
	market, err := s.transitionMarket(marketID, adminID, models.MarketStatusCancelled, "cancel_market", reason)
	if err != nil {
		return nil, err
	}

	s.releaseSettlementState(context.Background(), marketID)

	return market, nil
}

// releaseSettlementState refunds every held bond for a cancelled market and
// expires its active contest, if any. Each step is best-effort; failures are
// recorded as settlement issues for manual follow-up.
func (s *AdminService) releaseSettlementState(ctx context.Context, marketID uint) {
	held, err := s.bonds.HeldBonds(ctx, marketID)
	if err != nil {
		s.recordIssue(ctx, marketID, "cancel_refund", fmt.Sprintf("failed to list held bonds: %v", err))
		return
	}
	for _, bond := range held {
		if _, err := s.bonds.RefundBond(ctx, bond.ID); err != nil {
			s.recordIssue(ctx, marketID, "cancel_refund",
				fmt.Sprintf("failed to refund bond %s for user %d: %v", bond.ID, bond.PosterID, err))
		}
	}

	err = s.db.WithContext(ctx).Model(&models.SettlementContest{}).
		Where("market_id = ? AND status = ?", marketID, models.ContestStatusActive).
		Update("status", models.ContestStatusExpired).Error
	if err != nil {
		s.recordIssue(ctx, marketID, "cancel_refund", fmt.Sprintf("failed to expire active contest: %v", err))
	}
}

func (s *AdminService) recordIssue(ctx context.Context, marketID uint, step, detail string) {
	issue := &models.SettlementIssue{
		ID:        uuid.New(),
		MarketID:  marketID,
		Step:      step,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(issue).Error; err != nil {
		log.Printf("[AdminService] Failed to record settlement issue for market %d: %v", marketID, err)
	}
}

// ResumeMarket returns a suspended market to active trading
func (s *AdminService) ResumeMarket(marketID, adminID uint, reason string) (*models.Market, error) {
	var market models.Market
	if err := s.db.Where("id = ?", marketID).First(&market).Error; err != nil {
		return nil, fmt.Errorf("failed to load market %d: %w", marketID, err)
	}
	if market.Status != models.MarketStatusSuspended {
		return nil, &InvalidStateError{MarketID: marketID, Status: market.Status, Op: "resume"}
	}

	res := s.db.Model(&models.Market{}).
		Where("id = ? AND status = ?", marketID, models.MarketStatusSuspended).
		Update("status", models.MarketStatusActive)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to resume market %d: %w", marketID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, &InvalidStateError{MarketID: marketID, Status: market.Status, Op: "resume"}
	}

	s.logAction(adminID, "resume_market", marketID, reason)

	if err := s.db.Where("id = ?", marketID).First(&market).Error; err != nil {
		return nil, err
	}
	return &market, nil
}

func (s *AdminService) transitionMarket(
	marketID, adminID uint,
	to models.MarketStatus,
	action, reason string,
) (*models.Market, error) {
	var market models.Market
	if err := s.db.Where("id = ?", marketID).First(&market).Error; err != nil {
		return nil, fmt.Errorf("failed to load market %d: %w", marketID, err)
	}

	sources := models.TransitionSources(to)

	res := s.db.Model(&models.Market{}).
		Where("id = ? AND status IN ?", marketID, sources).
		Update("status", to)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update market %d: %w", marketID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, &InvalidStateError{MarketID: marketID, Status: market.Status, Op: action}
	}

	s.logAction(adminID, action, marketID, reason)

	if err := s.db.Where("id = ?", marketID).First(&market).Error; err != nil {
		return nil, err
	}
	return &market, nil
}

func (s *AdminService) logAction(adminID uint, action string, targetID uint, detail string) {
	entry := &models.AdminLog{
		AdminID:   adminID,
		Action:    action,
		TargetID:  &targetID,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if err := s.db.Create(entry).Error; err != nil {
		log.Printf("[AdminService] Failed to write admin log: %v", err)
	}
}

// OpenIssues returns unresolved settlement issues for the operator queue
func (s *AdminService) OpenIssues(limit int) ([]models.SettlementIssue, error) {
	var issues []models.SettlementIssue
	err := s.db.Where("resolved = ?", false).
		Order("created_at ASC").
		Limit(limit).
		Find(&issues).Error
	if err != nil {
		return nil, err
	}
	return issues, nil
}

// ResolveIssue marks a settlement issue handled
func (s *AdminService) ResolveIssue(issueID string) error {
	res := s.db.Model(&models.SettlementIssue{}).
		Where("id = ?", issueID).
		Update("resolved", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
