package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"forecast-market/internal/models"
)

func createInitiatedMarket(t *testing.T, db *gorm.DB, id uint, creatorID *uint, creatorOutcome string) *models.Market {
	now := time.Now()
	endTime := now.Add(-2 * time.Hour)
	initiatedAt := now.Add(-1 * time.Hour)
	contestDeadline := now.Add(23 * time.Hour)
	market := &models.Market{
		ID:                       id,
		Title:                    "Will it rain tomorrow?",
		Category:                 "Sports",
		Status:                   models.MarketStatusSettlementInitiated,
		EndTime:                  endTime,
		CreatorSettlementOutcome: &creatorOutcome,
		SettlementInitiatedAt:    &initiatedAt,
		ContestDeadline:          &contestDeadline,
		CreatedBy:                creatorID,
	}
	if err := db.Create(market).Error; err != nil {
		t.Fatalf("failed to create market %d: %v", id, err)
	}
	return market
}

func TestOpenContestMarksMarketContested(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewContestService(db, NewBondService(db), testSettlementConfig())

	creatorID := uint(1)
	createTestUser(t, db, creatorID, 100)
	createTestUser(t, db, 2, 100)
	createInitiatedMarket(t, db, 10, &creatorID, models.OutcomeYes)

	contest, err := service.OpenContest(ctx, 10, 2, decimal.NewFromInt(20))
	if err != nil {
		t.Fatalf("OpenContest failed: %v", err)
	}
	if contest.Status != models.ContestStatusActive {
		t.Errorf("expected contest status ACTIVE, got %s", contest.Status)
	}

	var market models.Market
	if err := db.Where("id = ?", 10).First(&market).Error; err != nil {
		t.Fatalf("failed to reload market: %v", err)
	}
	if market.Status != models.MarketStatusContested {
		t.Errorf("expected market status CONTESTED, got %s", market.Status)
	}
	if market.ContestRounds != 1 {
		t.Errorf("expected contest_rounds 1, got %d", market.ContestRounds)
	}

	// Contestant's bond is held and their balance debited.
	if got := userBalance(t, db, 2); !got.Equal(decimal.NewFromInt(80)) {
		t.Errorf("expected contestant balance 80, got %s", got)
	}
	var bond models.SettlementBond
	if err := db.Where("market_id = ? AND poster_id = ?", 10, 2).First(&bond).Error; err != nil {
		t.Fatalf("expected a contestant bond: %v", err)
	}
	if bond.Status != models.BondStatusHeld {
		t.Errorf("expected bond HELD, got %s", bond.Status)
	}
}

func TestOpenContestRejectsSecondContest(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewContestService(db, NewBondService(db), testSettlementConfig())

	creatorID := uint(1)
	createTestUser(t, db, creatorID, 100)
	createTestUser(t, db, 2, 100)
	createTestUser(t, db, 3, 100)
	createInitiatedMarket(t, db, 10, &creatorID, models.OutcomeYes)

	if _, err := service.OpenContest(ctx, 10, 2, decimal.NewFromInt(20)); err != nil {
		t.Fatalf("first OpenContest failed: %v", err)
	}

	_, err := service.OpenContest(ctx, 10, 3, decimal.NewFromInt(20))
	if !errors.Is(err, ErrDuplicateContest) {
		t.Fatalf("expected ErrDuplicateContest, got %v", err)
	}

	var contestCount int64
	db.Model(&models.SettlementContest{}).Where("market_id = ?", 10).Count(&contestCount)
	if contestCount != 1 {
		t.Errorf("expected exactly one contest row, got %d", contestCount)
	}
	if got := userBalance(t, db, 3); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("rejected contestant must keep their balance, got %s", got)
	}
}

func TestOpenContestBelowMinimumBond(t *testing.T) {
	db := setupTestDB(t)
	service := NewContestService(db, NewBondService(db), testSettlementConfig())

	creatorID := uint(1)
	createTestUser(t, db, creatorID, 100)
	createTestUser(t, db, 2, 100)
	createInitiatedMarket(t, db, 10, &creatorID, models.OutcomeYes)

	if _, err := service.OpenContest(context.Background(), 10, 2, decimal.NewFromInt(5)); err == nil {
		t.Fatal("expected OpenContest to reject a bond below the minimum")
	}
}

func TestOpenContestInsufficientBalanceRollsBack(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewContestService(db, NewBondService(db), testSettlementConfig())

	creatorID := uint(1)
	createTestUser(t, db, creatorID, 100)
	createTestUser(t, db, 2, 5)
	createInitiatedMarket(t, db, 10, &creatorID, models.OutcomeYes)

	_, err := service.OpenContest(ctx, 10, 2, decimal.NewFromInt(20))
	var insufficientErr *InsufficientBalanceError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}

	// The failed bond must unwind the whole contest: status reverts, no
	// contest row survives.
	var market models.Market
	if err := db.Where("id = ?", 10).First(&market).Error; err != nil {
		t.Fatalf("failed to reload market: %v", err)
	}
	if market.Status != models.MarketStatusSettlementInitiated {
		t.Errorf("expected market back in SETTLEMENT_INITIATED, got %s", market.Status)
	}
	if market.ContestRounds != 0 {
		t.Errorf("expected contest_rounds 0 after rollback, got %d", market.ContestRounds)
	}
	var contestCount int64
	db.Model(&models.SettlementContest{}).Where("market_id = ?", 10).Count(&contestCount)
	if contestCount != 0 {
		t.Errorf("expected no contest rows after rollback, got %d", contestCount)
	}
}

func TestOpenContestAfterDeadline(t *testing.T) {
	db := setupTestDB(t)
	service := NewContestService(db, NewBondService(db), testSettlementConfig())

	creatorID := uint(1)
	createTestUser(t, db, creatorID, 100)
	createTestUser(t, db, 2, 100)
	market := createInitiatedMarket(t, db, 10, &creatorID, models.OutcomeYes)

	pastDeadline := time.Now().Add(-1 * time.Minute)
	db.Model(&models.Market{}).Where("id = ?", market.ID).Update("contest_deadline", &pastDeadline)

	_, err := service.OpenContest(context.Background(), 10, 2, decimal.NewFromInt(20))
	var stateErr *InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected InvalidStateError after deadline, got %v", err)
	}
}

func TestCastVoteRejectsDuplicate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewContestService(db, NewBondService(db), testSettlementConfig())

	creatorID := uint(1)
	createTestUser(t, db, creatorID, 100)
	createTestUser(t, db, 2, 100)
	createTestUser(t, db, 3, 100)
	createInitiatedMarket(t, db, 10, &creatorID, models.OutcomeYes)

	contest, err := service.OpenContest(ctx, 10, 2, decimal.NewFromInt(20))
	if err != nil {
		t.Fatalf("OpenContest failed: %v", err)
	}

	if _, err := service.CastVote(ctx, contest.ID, 3, models.OutcomeNo); err != nil {
		t.Fatalf("first vote failed: %v", err)
	}

	// Same voter again, even with a different choice.
	_, err = service.CastVote(ctx, contest.ID, 3, models.OutcomeYes)
	if !errors.Is(err, ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}

	var voteCount int64
	db.Model(&models.ContestVote{}).Where("contest_id = ?", contest.ID).Count(&voteCount)
	if voteCount != 1 {
		t.Errorf("expected exactly one vote, got %d", voteCount)
	}
}

func TestCastVoteInvalidChoice(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewContestService(db, NewBondService(db), testSettlementConfig())

	creatorID := uint(1)
	createTestUser(t, db, creatorID, 100)
	createTestUser(t, db, 2, 100)
	createInitiatedMarket(t, db, 10, &creatorID, models.OutcomeYes)

	contest, err := service.OpenContest(ctx, 10, 2, decimal.NewFromInt(20))
	if err != nil {
		t.Fatalf("OpenContest failed: %v", err)
	}

	if _, err := service.CastVote(ctx, contest.ID, 3, "MAYBE"); err == nil {
		t.Fatal("expected CastVote to reject an invalid choice")
	}
}

func TestResolveContestMajorityOverturns(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewContestService(db, NewBondService(db), testSettlementConfig())

	creatorID := uint(1)
	createTestUser(t, db, creatorID, 100)
	createTestUser(t, db, 2, 100)
	createTestUser(t, db, 3, 100)
	createTestUser(t, db, 4, 100)
	createInitiatedMarket(t, db, 10, &creatorID, models.OutcomeYes)

	contest, err := service.OpenContest(ctx, 10, 2, decimal.NewFromInt(20))
	if err != nil {
		t.Fatalf("OpenContest failed: %v", err)
	}
	if _, err := service.CastVote(ctx, contest.ID, 3, models.OutcomeNo); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if _, err := service.CastVote(ctx, contest.ID, 4, models.OutcomeNo); err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	after := contest.VoteDeadline.Add(time.Minute)
	outcome, err := service.ResolveContest(ctx, contest.ID, after)
	if err != nil {
		t.Fatalf("ResolveContest failed: %v", err)
	}
	if outcome != models.OutcomeNo {
		t.Errorf("expected majority outcome NO, got %s", outcome)
	}

	// Overturned: the contestant gets their bond back.
	if got := userBalance(t, db, 2); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected contestant made whole at 100, got %s", got)
	}
}

func TestResolveContestZeroVotesFallsBackToCreator(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewContestService(db, NewBondService(db), testSettlementConfig())

	creatorID := uint(1)
	createTestUser(t, db, creatorID, 100)
	createTestUser(t, db, 2, 100)
	createInitiatedMarket(t, db, 10, &creatorID, models.OutcomeYes)

	contest, err := service.OpenContest(ctx, 10, 2, decimal.NewFromInt(20))
	if err != nil {
		t.Fatalf("OpenContest failed: %v", err)
	}

	after := contest.VoteDeadline.Add(time.Minute)
	outcome, err := service.ResolveContest(ctx, contest.ID, after)
	if err != nil {
		t.Fatalf("ResolveContest failed: %v", err)
	}
	if outcome != models.OutcomeYes {
		t.Errorf("expected creator fallback outcome YES, got %s", outcome)
	}

	// Upheld: the contestant's bond is slashed to the creator.
	if got := userBalance(t, db, 2); !got.Equal(decimal.NewFromInt(80)) {
		t.Errorf("expected contestant to lose their bond, balance %s", got)
	}
	if got := userBalance(t, db, creatorID); !got.Equal(decimal.NewFromInt(120)) {
		t.Errorf("expected creator to receive the slashed bond, balance %s", got)
	}

	var bond models.SettlementBond
	if err := db.Where("market_id = ? AND poster_id = ?", 10, 2).First(&bond).Error; err != nil {
		t.Fatalf("failed to reload contestant bond: %v", err)
	}
	if bond.Status != models.BondStatusSlashed {
		t.Errorf("expected bond SLASHED, got %s", bond.Status)
	}
}

func TestResolveContestRetryReturnsRecordedOutcome(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewContestService(db, NewBondService(db), testSettlementConfig())

	creatorID := uint(1)
	createTestUser(t, db, creatorID, 100)
	createTestUser(t, db, 2, 100)
	createInitiatedMarket(t, db, 10, &creatorID, models.OutcomeYes)

	contest, err := service.OpenContest(ctx, 10, 2, decimal.NewFromInt(20))
	if err != nil {
		t.Fatalf("OpenContest failed: %v", err)
	}

	after := contest.VoteDeadline.Add(time.Minute)
	first, err := service.ResolveContest(ctx, contest.ID, after)
	if err != nil {
		t.Fatalf("ResolveContest failed: %v", err)
	}

	second, err := service.ResolveContest(ctx, contest.ID, after)
	if err != nil {
		t.Fatalf("retried ResolveContest failed: %v", err)
	}
	if second != first {
		t.Errorf("retry returned %s, want recorded outcome %s", second, first)
	}

	// The retry must not settle bonds a second time.
	creatorBalance := userBalance(t, db, creatorID)
	if !creatorBalance.Equal(decimal.NewFromInt(120)) {
		t.Errorf("expected creator balance 120 after single slash, got %s", creatorBalance)
	}
}

func TestResolveContestBeforeDeadline(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewContestService(db, NewBondService(db), testSettlementConfig())

	creatorID := uint(1)
	createTestUser(t, db, creatorID, 100)
	createTestUser(t, db, 2, 100)
	createInitiatedMarket(t, db, 10, &creatorID, models.OutcomeYes)

	contest, err := service.OpenContest(ctx, 10, 2, decimal.NewFromInt(20))
	if err != nil {
		t.Fatalf("OpenContest failed: %v", err)
	}

	if _, err := service.ResolveContest(ctx, contest.ID, time.Now()); err == nil {
		t.Fatal("expected ResolveContest to refuse before the vote deadline")
	}
}
