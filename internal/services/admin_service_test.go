package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"forecast-market/internal/models"
)

func TestSuspendAndResumeMarket(t *testing.T) {
	db := setupTestDB(t)
	service := NewAdminService(db)

	market := &models.Market{
		ID:       10,
		Title:    "Admin target",
		Category: "Crypto",
		Status:   models.MarketStatusActive,
		EndTime:  time.Now().Add(time.Hour),
	}
	if err := db.Create(market).Error; err != nil {
		t.Fatalf("failed to create market: %v", err)
	}

	suspended, err := service.SuspendMarket(10, 1, "suspicious volume")
	if err != nil {
		t.Fatalf("SuspendMarket failed: %v", err)
	}
	if suspended.Status != models.MarketStatusSuspended {
		t.Errorf("expected SUSPENDED, got %s", suspended.Status)
	}

	resumed, err := service.ResumeMarket(10, 1, "cleared")
	if err != nil {
		t.Fatalf("ResumeMarket failed: %v", err)
	}
	if resumed.Status != models.MarketStatusActive {
		t.Errorf("expected ACTIVE, got %s", resumed.Status)
	}

	var logCount int64
	db.Model(&models.AdminLog{}).Count(&logCount)
	if logCount != 2 {
		t.Errorf("expected 2 audit entries, got %d", logCount)
	}
}

func TestCancelIsTerminal(t *testing.T) {
	db := setupTestDB(t)
	service := NewAdminService(db)

	market := &models.Market{
		ID:       10,
		Title:    "Doomed market",
		Category: "Sports",
		Status:   models.MarketStatusSettlementInitiated,
		EndTime:  time.Now().Add(-time.Hour),
	}
	if err := db.Create(market).Error; err != nil {
		t.Fatalf("failed to create market: %v", err)
	}

	cancelled, err := service.CancelMarket(10, 1, "ambiguous question")
	if err != nil {
		t.Fatalf("CancelMarket failed: %v", err)
	}
	if cancelled.Status != models.MarketStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", cancelled.Status)
	}

	_, err = service.SuspendMarket(10, 1, "too late")
	var stateErr *InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected InvalidStateError on a cancelled market, got %v", err)
	}

	_, err = service.ResumeMarket(10, 1, "too late")
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected InvalidStateError on resume of a cancelled market, got %v", err)
	}
}

func TestCancelRefundsHeldBonds(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewAdminService(db)
	contestService := NewContestService(db, NewBondService(db), testSettlementConfig())

	creatorID := uint(1)
	createTestUser(t, db, creatorID, 100)
	contestant := createTestUser(t, db, 2, 100)
	createInitiatedMarket(t, db, 10, &creatorID, models.OutcomeYes)

	contest, err := contestService.OpenContest(ctx, 10, contestant.ID, decimal.NewFromInt(20))
	if err != nil {
		t.Fatalf("OpenContest failed: %v", err)
	}
	if got := userBalance(t, db, contestant.ID); !got.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("expected balance 80 after posting the bond, got %s", got)
	}

	cancelled, err := service.CancelMarket(10, 1, "ambiguous question")
	if err != nil {
		t.Fatalf("CancelMarket failed: %v", err)
	}
	if cancelled.Status != models.MarketStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", cancelled.Status)
	}

	var bond models.SettlementBond
	if err := db.Where("market_id = ? AND poster_id = ?", 10, contestant.ID).First(&bond).Error; err != nil {
		t.Fatalf("failed to load bond: %v", err)
	}
	if bond.Status != models.BondStatusRefunded {
		t.Errorf("expected the held bond to be REFUNDED on cancel, got %s", bond.Status)
	}
	if got := userBalance(t, db, contestant.ID); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected the contestant made whole at 100, got %s", got)
	}

	var reloaded models.SettlementContest
	if err := db.Where("id = ?", contest.ID).First(&reloaded).Error; err != nil {
		t.Fatalf("failed to reload contest: %v", err)
	}
	if reloaded.Status != models.ContestStatusExpired {
		t.Errorf("expected the open contest to expire on cancel, got %s", reloaded.Status)
	}

	var issueCount int64
	db.Model(&models.SettlementIssue{}).Count(&issueCount)
	if issueCount != 0 {
		t.Errorf("expected no settlement issues from a clean cancel, got %d", issueCount)
	}
}

func TestCancelSettledMarketRejected(t *testing.T) {
	db := setupTestDB(t)
	service := NewAdminService(db)

	outcome := models.OutcomeYes
	market := &models.Market{
		ID:       10,
		Title:    "Finished market",
		Category: "Politics",
		Status:   models.MarketStatusSettled,
		EndTime:  time.Now().Add(-time.Hour),
		Outcome:  &outcome,
	}
	if err := db.Create(market).Error; err != nil {
		t.Fatalf("failed to create market: %v", err)
	}

	_, err := service.CancelMarket(10, 1, "nope")
	var stateErr *InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected InvalidStateError on a settled market, got %v", err)
	}
}

func TestResolveIssue(t *testing.T) {
	db := setupTestDB(t)
	service := NewAdminService(db)

	issue := &models.SettlementIssue{
		ID:       uuid.New(),
		MarketID: 10,
		Step:     "payouts",
		Detail:   "credit failed for user 2",
	}
	if err := db.Create(issue).Error; err != nil {
		t.Fatalf("failed to create issue: %v", err)
	}

	issues, err := service.OpenIssues(10)
	if err != nil {
		t.Fatalf("OpenIssues failed: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("expected 1 open issue, got %d", len(issues))
	}

	if err := service.ResolveIssue(issues[0].ID.String()); err != nil {
		t.Fatalf("ResolveIssue failed: %v", err)
	}

	issues, err = service.OpenIssues(10)
	if err != nil {
		t.Fatalf("OpenIssues failed: %v", err)
	}
	if len(issues) != 0 {
		t.Errorf("expected no open issues after resolution, got %d", len(issues))
	}

	if err := service.ResolveIssue(uuid.New().String()); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound for an unknown issue, got %v", err)
	}
}
