package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"forecast-market/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PayoutService computes and applies payouts for a settled market. It runs
// after the authoritative settlement write; each position is processed
// independently so one bad row does not block the rest.
type PayoutService struct {
	db *gorm.DB
}

func NewPayoutService(db *gorm.DB) *PayoutService {
	return &PayoutService{db: db}
}

// ApplyPayouts credits winners, records payout rows and journal entries,
// closes every open position, and enqueues a payout notification per holder.
// Winning shares pay out one unit each. Returns how many positions were
// processed and the first error encountered, if any.
func (s *PayoutService) ApplyPayouts(ctx context.Context, marketID uint, outcome string) (int, error) {
	var positions []models.UserPosition
	if err := s.db.WithContext(ctx).
		Where("market_id = ? AND status = ?", marketID, "OPEN").
		Find(&positions).Error; err != nil {
		return 0, fmt.Errorf("failed to load positions for market %d: %w", marketID, err)
	}

	processed := 0
	var firstErr error

	for _, position := range positions {
		if err := s.applyOne(ctx, marketID, outcome, position); err != nil {
			log.Printf("[PayoutService] Failed to pay out position %s (user %d): %v",
				position.ID, position.UserID, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		processed++
	}

	return processed, firstErr
}

func (s *PayoutService) applyOne(
	ctx context.Context,
	marketID uint,
	outcome string,
	position models.UserPosition,
) error {
	var payout decimal.Decimal
	var pnl decimal.Decimal

	costBasis := position.Quantity.Mul(position.AveragePrice)
	if position.Outcome == outcome {
		payout = position.Quantity
		pnl = payout.Sub(costBasis)
	} else {
		payout = decimal.Zero
		pnl = decimal.Zero.Sub(costBasis)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Closing the position is the idempotency guard: a re-run of the
		// finalize side effects sees no OPEN rows and pays nothing twice.
		res := tx.Model(&models.UserPosition{}).
			Where("id = ? AND status = ?", position.ID, "OPEN").
			Updates(map[string]interface{}{
				"status":     "CLOSED",
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to close position: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		userPayout := &models.UserPayout{
			ID:           uuid.New(),
			UserID:       position.UserID,
			MarketID:     marketID,
			PayoutAmount: payout,
			PnL:          pnl,
			CreatedAt:    time.Now(),
		}
		if err := tx.Create(userPayout).Error; err != nil {
			return fmt.Errorf("failed to create payout record: %w", err)
		}

		if payout.GreaterThan(decimal.Zero) {
			res := tx.Model(&models.User{}).
				Where("id = ?", position.UserID).
				Update("balance", gorm.Expr("balance + ?", payout))
			if res.Error != nil {
				return fmt.Errorf("failed to credit user %d: %w", position.UserID, res.Error)
			}

			journal := &models.Transaction{
				UserID:      position.UserID,
				Type:        models.TransactionTypePayout,
				Amount:      payout,
				MarketID:    &marketID,
				Description: fmt.Sprintf("Settlement payout for market %d (%s)", marketID, outcome),
				CreatedAt:   time.Now(),
			}
			if err := tx.Create(journal).Error; err != nil {
				return fmt.Errorf("failed to record payout transaction: %w", err)
			}
		}

		notification := &models.Notification{
			ID:       uuid.New(),
			UserID:   position.UserID,
			Type:     models.NotificationTypePayout,
			Title:    "Market settled",
			Message:  fmt.Sprintf("Market %d settled %s. Your payout: %s", marketID, outcome, payout.String()),
			MarketID: &marketID,
		}
		if err := tx.Create(notification).Error; err != nil {
			return fmt.Errorf("failed to create payout notification: %w", err)
		}

		log.Printf("[PayoutService] Payout for user %d on market %d: payout=%s pnl=%s",
			position.UserID, marketID, payout.String(), pnl.String())
		return nil
	})
}
