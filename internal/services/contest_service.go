package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"forecast-market/internal/config"
	"forecast-market/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ContestService manages the dispute window: opening a bonded contest,
// collecting votes, and tallying once the vote deadline passes.
type ContestService struct {
	db    *gorm.DB
	bonds *BondService
	cfg   config.SettlementConfig
}

func NewContestService(db *gorm.DB, bonds *BondService, cfg config.SettlementConfig) *ContestService {
	return &ContestService{db: db, bonds: bonds, cfg: cfg}
}

// OpenContest disputes a proposed settlement. The market must still be inside
// its contest window, the contestant must post the bond, and everything is
// all-or-nothing: if any step fails the whole transaction rolls back.
//
// Two guards make concurrent opens safe without client-side checks: the
// status-guarded UPDATE moving the market to CONTESTED applies for exactly
// one caller, and the unique index on settlement_contests.market_id rejects
// a second row even across resolved rounds (one contest round per market).
func (s *ContestService) OpenContest(
	ctx context.Context,
	marketID uint,
	contestantID uint,
	bondAmount decimal.Decimal,
) (*models.SettlementContest, error) {
	if bondAmount.LessThan(s.cfg.MinContestBond) {
		return nil, fmt.Errorf("bond amount %s is below the minimum contest bond %s",
			bondAmount, s.cfg.MinContestBond)
	}

	var contest *models.SettlementContest

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var market models.Market
		if err := tx.Where("id = ?", marketID).First(&market).Error; err != nil {
			return fmt.Errorf("failed to load market %d: %w", marketID, err)
		}

		now := time.Now()

		if market.Status != models.MarketStatusSettlementInitiated {
			if market.Status == models.MarketStatusContested {
				return ErrDuplicateContest
			}
			return &InvalidStateError{MarketID: marketID, Status: market.Status, Op: "open contest"}
		}
		if market.ContestDeadline == nil || !now.Before(*market.ContestDeadline) {
			return &InvalidStateError{MarketID: marketID, Status: market.Status, Op: "open contest after deadline"}
		}
		if market.ContestRounds >= s.cfg.MaxContestRounds {
			return ErrDuplicateContest
		}

		voteDeadline := now.Add(s.cfg.VoteWindow)

		// CAS on the market row: exactly one concurrent caller wins the
		// SETTLEMENT_INITIATED -> CONTESTED transition.
		res := tx.Model(&models.Market{}).
			Where("id = ? AND status = ?", marketID, models.MarketStatusSettlementInitiated).
			Updates(map[string]interface{}{
				"status":         models.MarketStatusContested,
				"contest_rounds": gorm.Expr("contest_rounds + 1"),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to mark market contested: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrDuplicateContest
		}

		contest = &models.SettlementContest{
			ID:           uuid.New(),
			MarketID:     marketID,
			ContestantID: contestantID,
			Status:       models.ContestStatusActive,
			VoteDeadline: voteDeadline,
			CreatedAt:    now,
		}
		if err := tx.Create(contest).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateContest
			}
			return fmt.Errorf("failed to create contest: %w", err)
		}

		// Bond posting failure (including insufficient balance) rolls back
		// the status change and the contest row.
		bondService := NewBondService(tx)
		if _, err := bondService.PostBond(ctx, marketID, &contest.ID, contestantID, bondAmount); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[ContestService] Contest %s opened on market %d by user %d (vote deadline %v)",
		contest.ID, marketID, contestantID, contest.VoteDeadline)

	return contest, nil
}

// CastVote records a vote on a contested market's outcome. Votes are
// immutable; a second vote from the same voter is rejected by the composite
// unique index and surfaced as ErrDuplicateVote.
func (s *ContestService) CastVote(
	ctx context.Context,
	contestID uuid.UUID,
	voterID uint,
	choice string,
) (*models.ContestVote, error) {
	if !models.ValidOutcome(choice) {
		return nil, fmt.Errorf("invalid vote choice %q", choice)
	}

	var contest models.SettlementContest
	if err := s.db.WithContext(ctx).Where("id = ?", contestID).First(&contest).Error; err != nil {
		return nil, fmt.Errorf("failed to load contest %s: %w", contestID, err)
	}

	now := time.Now()
	if contest.Status != models.ContestStatusActive {
		return nil, fmt.Errorf("contest %s is not active, current status: %s", contestID, contest.Status)
	}
	if !now.Before(contest.VoteDeadline) {
		return nil, fmt.Errorf("voting closed for contest %s at %v", contestID, contest.VoteDeadline)
	}

	vote := &models.ContestVote{
		ID:        uuid.New(),
		ContestID: contestID,
		VoterID:   voterID,
		Choice:    choice,
		CreatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(vote).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateVote
		}
		return nil, fmt.Errorf("failed to record vote: %w", err)
	}

	return vote, nil
}

// ActiveContest returns the active contest for a market, or nil
func (s *ContestService) ActiveContest(ctx context.Context, marketID uint) (*models.SettlementContest, error) {
	var contest models.SettlementContest
	err := s.db.WithContext(ctx).
		Where("market_id = ? AND status = ?", marketID, models.ContestStatusActive).
		First(&contest).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contest, nil
}

// ResolveContest tallies a contest once its vote deadline has passed and
// settles the bonds. Tally rule: majority of cast votes wins; a tie or zero
// votes falls back to the creator's originally proposed outcome (policy
// choice, not inferred). Returns the resolved outcome.
//
// Bond settlement on resolution:
//   - votes upheld the creator's outcome: contestant's bond is slashed to the
//     creator (or the treasury when the market has no creator);
//   - votes overturned it: the contestant's bond is refunded and the
//     creator's posted bond, if any, is slashed to the contestant.
func (s *ContestService) ResolveContest(
	ctx context.Context,
	contestID uuid.UUID,
	now time.Time,
) (string, error) {
	var contest models.SettlementContest
	if err := s.db.WithContext(ctx).Where("id = ?", contestID).First(&contest).Error; err != nil {
		return "", fmt.Errorf("failed to load contest %s: %w", contestID, err)
	}

	if contest.Status == models.ContestStatusResolved {
		// Safe to re-invoke after a partial failure downstream.
		if contest.ResolvedOutcome != nil {
			return *contest.ResolvedOutcome, nil
		}
		return "", fmt.Errorf("contest %s resolved without an outcome", contestID)
	}
	if contest.Status != models.ContestStatusActive {
		return "", fmt.Errorf("contest %s is not active, current status: %s", contestID, contest.Status)
	}
	if now.Before(contest.VoteDeadline) {
		return "", fmt.Errorf("contest %s vote deadline %v has not passed", contestID, contest.VoteDeadline)
	}

	var market models.Market
	if err := s.db.WithContext(ctx).Where("id = ?", contest.MarketID).First(&market).Error; err != nil {
		return "", fmt.Errorf("failed to load market %d: %w", contest.MarketID, err)
	}
	if market.CreatorSettlementOutcome == nil {
		return "", fmt.Errorf("market %d has no creator-proposed outcome to fall back to", market.ID)
	}
	creatorOutcome := *market.CreatorSettlementOutcome

	outcome, yes, no, err := s.tallyVotes(ctx, contestID, creatorOutcome)
	if err != nil {
		return "", err
	}

	// CAS so two scanners racing on the same contest produce one resolution.
	res := s.db.WithContext(ctx).Model(&models.SettlementContest{}).
		Where("id = ? AND status = ?", contestID, models.ContestStatusActive).
		Updates(map[string]interface{}{
			"status":           models.ContestStatusResolved,
			"resolved_outcome": outcome,
			"resolved_at":      &now,
		})
	if res.Error != nil {
		return "", fmt.Errorf("failed to resolve contest %s: %w", contestID, res.Error)
	}
	if res.RowsAffected == 0 {
		// Concurrent resolver won; reload its result.
		if err := s.db.WithContext(ctx).Where("id = ?", contestID).First(&contest).Error; err != nil {
			return "", err
		}
		if contest.ResolvedOutcome != nil {
			return *contest.ResolvedOutcome, nil
		}
		return "", fmt.Errorf("contest %s resolved concurrently without an outcome", contestID)
	}

	log.Printf("[ContestService] Contest %s resolved: outcome=%s (YES=%d NO=%d, creator proposed %s)",
		contestID, outcome, yes, no, creatorOutcome)

	s.settleContestBonds(ctx, &market, &contest, outcome == creatorOutcome)

	return outcome, nil
}

// tallyVotes counts votes and applies the majority rule with the creator
// outcome as the tie and zero-vote fallback.
func (s *ContestService) tallyVotes(
	ctx context.Context,
	contestID uuid.UUID,
	creatorOutcome string,
) (outcome string, yes, no int64, err error) {
	if err = s.db.WithContext(ctx).Model(&models.ContestVote{}).
		Where("contest_id = ? AND choice = ?", contestID, models.OutcomeYes).
		Count(&yes).Error; err != nil {
		return "", 0, 0, fmt.Errorf("failed to count YES votes: %w", err)
	}
	if err = s.db.WithContext(ctx).Model(&models.ContestVote{}).
		Where("contest_id = ? AND choice = ?", contestID, models.OutcomeNo).
		Count(&no).Error; err != nil {
		return "", 0, 0, fmt.Errorf("failed to count NO votes: %w", err)
	}

	switch {
	case yes > no:
		return models.OutcomeYes, yes, no, nil
	case no > yes:
		return models.OutcomeNo, yes, no, nil
	default:
		return creatorOutcome, yes, no, nil
	}
}

// settleContestBonds applies the slash/refund rules after resolution. Bond
// settlement is auxiliary to the resolution itself: failures are logged and
// left for the operator queue, never unwound.
func (s *ContestService) settleContestBonds(
	ctx context.Context,
	market *models.Market,
	contest *models.SettlementContest,
	upheld bool,
) {
	contestantBond, err := s.bonds.HeldBondByPoster(ctx, market.ID, contest.ContestantID)
	if err != nil {
		log.Printf("[ContestService] Failed to load contestant bond for market %d: %v", market.ID, err)
		s.recordIssue(ctx, market.ID, "bonds", fmt.Sprintf("load contestant bond: %v", err))
		return
	}

	var creatorBond *models.SettlementBond
	if market.CreatedBy != nil {
		creatorBond, err = s.bonds.HeldBondByPoster(ctx, market.ID, *market.CreatedBy)
		if err != nil {
			log.Printf("[ContestService] Failed to load creator bond for market %d: %v", market.ID, err)
			s.recordIssue(ctx, market.ID, "bonds", fmt.Sprintf("load creator bond: %v", err))
		}
	}

	if upheld {
		// The contest failed: the contestant's collateral goes to the creator
		// (or the treasury for creatorless markets) and the creator's bond,
		// if posted, returns home.
		beneficiary := s.cfg.TreasuryUserID
		if market.CreatedBy != nil {
			beneficiary = *market.CreatedBy
		}
		if contestantBond != nil {
			if _, err := s.bonds.SlashBond(ctx, contestantBond.ID, beneficiary); err != nil {
				log.Printf("[ContestService] Failed to slash contestant bond %s: %v", contestantBond.ID, err)
				s.recordIssue(ctx, market.ID, "bonds", fmt.Sprintf("slash contestant bond: %v", err))
			}
		}
		if creatorBond != nil {
			if _, err := s.bonds.RefundBond(ctx, creatorBond.ID); err != nil {
				log.Printf("[ContestService] Failed to refund creator bond %s: %v", creatorBond.ID, err)
				s.recordIssue(ctx, market.ID, "bonds", fmt.Sprintf("refund creator bond: %v", err))
			}
		}
		return
	}

	// Overturned: contestant gets their bond back plus the creator's
	// collateral if any was posted.
	if contestantBond != nil {
		if _, err := s.bonds.RefundBond(ctx, contestantBond.ID); err != nil {
			log.Printf("[ContestService] Failed to refund contestant bond %s: %v", contestantBond.ID, err)
			s.recordIssue(ctx, market.ID, "bonds", fmt.Sprintf("refund contestant bond: %v", err))
		}
	}
	if creatorBond != nil {
		if _, err := s.bonds.SlashBond(ctx, creatorBond.ID, contest.ContestantID); err != nil {
			log.Printf("[ContestService] Failed to slash creator bond %s: %v", creatorBond.ID, err)
			s.recordIssue(ctx, market.ID, "bonds", fmt.Sprintf("slash creator bond: %v", err))
		}
	}
}

func (s *ContestService) recordIssue(ctx context.Context, marketID uint, step, detail string) {
	issue := &models.SettlementIssue{
		ID:        uuid.New(),
		MarketID:  marketID,
		Step:      step,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(issue).Error; err != nil {
		log.Printf("[ContestService] Failed to record settlement issue for market %d: %v", marketID, err)
	}
}
