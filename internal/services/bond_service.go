package services

import (
	"context"
	"fmt"
	"time"

	"forecast-market/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BondService tracks settlement bonds. It is the only code path that mutates
// user balances for bond collateral: posting debits, refund/slash credit.
type BondService struct {
	db *gorm.DB
}

func NewBondService(db *gorm.DB) *BondService {
	return &BondService{db: db}
}

// PostBond debits the poster's balance and creates a HELD bond. The debit is
// a conditional update so a concurrent spend cannot take the balance
// negative; if it does not apply, the poster's funds are short.
func (s *BondService) PostBond(
	ctx context.Context,
	marketID uint,
	contestID *uuid.UUID,
	posterID uint,
	amount decimal.Decimal,
) (*models.SettlementBond, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("bond amount must be positive, got %s", amount)
	}

	var bond *models.SettlementBond

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND balance >= ?", posterID, amount).
			Update("balance", gorm.Expr("balance - ?", amount))
		if res.Error != nil {
			return fmt.Errorf("failed to debit poster balance: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return &InsufficientBalanceError{UserID: posterID, Amount: amount.String()}
		}

		bond = &models.SettlementBond{
			ID:        uuid.New(),
			MarketID:  marketID,
			ContestID: contestID,
			PosterID:  posterID,
			Amount:    amount,
			Status:    models.BondStatusHeld,
			CreatedAt: time.Now(),
		}
		if err := tx.Create(bond).Error; err != nil {
			return fmt.Errorf("failed to create bond: %w", err)
		}

		journal := &models.Transaction{
			UserID:      posterID,
			Type:        models.TransactionTypeBondPosted,
			Amount:      amount.Neg(),
			MarketID:    &marketID,
			Description: fmt.Sprintf("Settlement bond posted for market %d", marketID),
			CreatedAt:   time.Now(),
		}
		if err := tx.Create(journal).Error; err != nil {
			return fmt.Errorf("failed to record bond transaction: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return bond, nil
}

// RefundBond returns a held bond to its poster. Calling it on a bond that
// already reached a terminal state is a no-op that returns the existing
// state, so the orchestrator can retry safely.
func (s *BondService) RefundBond(ctx context.Context, bondID uuid.UUID) (*models.SettlementBond, error) {
	return s.settleBond(ctx, bondID, models.BondStatusRefunded, nil)
}

// SlashBond forfeits a held bond and credits its amount to the beneficiary.
// Idempotent the same way RefundBond is.
func (s *BondService) SlashBond(ctx context.Context, bondID uuid.UUID, beneficiaryID uint) (*models.SettlementBond, error) {
	return s.settleBond(ctx, bondID, models.BondStatusSlashed, &beneficiaryID)
}

func (s *BondService) settleBond(
	ctx context.Context,
	bondID uuid.UUID,
	terminal models.BondStatus,
	beneficiaryID *uint,
) (*models.SettlementBond, error) {
	var bond models.SettlementBond

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", bondID).First(&bond).Error; err != nil {
			return fmt.Errorf("failed to load bond %s: %w", bondID, err)
		}

		// Terminal bonds never transition again. Return the existing state so
		// retries converge instead of erroring.
		if bond.Status.IsTerminal() {
			return nil
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":     terminal,
			"settled_at": &now,
		}
		if beneficiaryID != nil {
			updates["beneficiary_id"] = *beneficiaryID
		}

		res := tx.Model(&models.SettlementBond{}).
			Where("id = ? AND status = ?", bondID, models.BondStatusHeld).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to settle bond %s: %w", bondID, res.Error)
		}
		if res.RowsAffected == 0 {
			// Lost the race to a concurrent settle; reload and report it.
			return tx.Where("id = ?", bondID).First(&bond).Error
		}

		creditTo := bond.PosterID
		txType := models.TransactionTypeBondRefunded
		description := fmt.Sprintf("Settlement bond refunded for market %d", bond.MarketID)
		if terminal == models.BondStatusSlashed {
			creditTo = *beneficiaryID
			txType = models.TransactionTypeBondAwarded
			description = fmt.Sprintf("Slashed settlement bond awarded from market %d", bond.MarketID)
		}

		res = tx.Model(&models.User{}).
			Where("id = ?", creditTo).
			Update("balance", gorm.Expr("balance + ?", bond.Amount))
		if res.Error != nil {
			return fmt.Errorf("failed to credit user %d: %w", creditTo, res.Error)
		}

		journal := &models.Transaction{
			UserID:      creditTo,
			Type:        txType,
			Amount:      bond.Amount,
			MarketID:    &bond.MarketID,
			Description: description,
			CreatedAt:   now,
		}
		if err := tx.Create(journal).Error; err != nil {
			return fmt.Errorf("failed to record bond transaction: %w", err)
		}

		bond.Status = terminal
		bond.SettledAt = &now
		bond.BeneficiaryID = beneficiaryID
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &bond, nil
}

// HeldBonds returns all bonds still held for a market
func (s *BondService) HeldBonds(ctx context.Context, marketID uint) ([]models.SettlementBond, error) {
	var bonds []models.SettlementBond
	err := s.db.WithContext(ctx).
		Where("market_id = ? AND status = ?", marketID, models.BondStatusHeld).
		Order("created_at ASC").
		Find(&bonds).Error
	if err != nil {
		return nil, err
	}
	return bonds, nil
}

// HeldBondByPoster returns the held bond a user posted for a market, or nil
func (s *BondService) HeldBondByPoster(ctx context.Context, marketID, posterID uint) (*models.SettlementBond, error) {
	var bond models.SettlementBond
	err := s.db.WithContext(ctx).
		Where("market_id = ? AND poster_id = ? AND status = ?", marketID, posterID, models.BondStatusHeld).
		First(&bond).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bond, nil
}
