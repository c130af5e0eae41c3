package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"forecast-market/internal/config"
	"forecast-market/internal/models"
	"forecast-market/internal/oracle"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SettlementService is the settlement orchestrator: the single owner of
// market settlement status and the only writer of terminal outcomes. All of
// its entry points are safe under at-least-once, possibly-concurrent
// invocation; every transition is a status-guarded conditional update, so
// two racing scans produce one winner and one no-op.
type SettlementService struct {
	db             *gorm.DB
	bonds          *BondService
	contests       *ContestService
	payouts        *PayoutService
	adapter        oracle.Adapter
	cfg            config.SettlementConfig
	oracleLiveness time.Duration
}

func NewSettlementService(
	db *gorm.DB,
	bonds *BondService,
	contests *ContestService,
	payouts *PayoutService,
	adapter oracle.Adapter,
	cfg config.SettlementConfig,
	oracleLiveness time.Duration,
) *SettlementService {
	return &SettlementService{
		db:             db,
		bonds:          bonds,
		contests:       contests,
		payouts:        payouts,
		adapter:        adapter,
		cfg:            cfg,
		oracleLiveness: oracleLiveness,
	}
}

// BatchSummary is the structured result of a periodic trigger invocation.
type BatchSummary struct {
	Checked int           `json:"checked"`
	Settled int           `json:"settled"`
	Failed  int           `json:"failed"`
	Details []BatchDetail `json:"details"`
}

// BatchDetail records the handling of one market inside a batch scan.
type BatchDetail struct {
	MarketID uint   `json:"market_id"`
	Action   string `json:"action"`
	Error    string `json:"error,omitempty"`
}

// ProposeSettlement moves an expired market into SETTLEMENT_INITIATED with
// the creator's proposed outcome and opens the contest window. Allowed only
// when the market is ACTIVE and past its end time; anything else is an
// InvalidStateError.
func (s *SettlementService) ProposeSettlement(
	ctx context.Context,
	marketID uint,
	outcome string,
	proposerID uint,
) (*models.Market, error) {
	if !models.ValidOutcome(outcome) {
		return nil, fmt.Errorf("invalid settlement outcome %q", outcome)
	}

	var market models.Market
	if err := s.db.WithContext(ctx).Where("id = ?", marketID).First(&market).Error; err != nil {
		return nil, fmt.Errorf("failed to load market %d: %w", marketID, err)
	}

	now := time.Now()
	if market.Status != models.MarketStatusActive || !market.IsExpired(now) {
		return nil, &InvalidStateError{MarketID: marketID, Status: market.Status, Op: "propose settlement"}
	}

	contestDeadline := now.Add(s.cfg.ContestWindow)

	// The end-time predicate rides along in the guard so a clock-skewed
	// concurrent caller cannot initiate settlement on a live market.
	res := s.db.WithContext(ctx).Model(&models.Market{}).
		Where("id = ? AND status = ? AND end_time <= ?", marketID, models.MarketStatusActive, now).
		Updates(map[string]interface{}{
			"status":                     models.MarketStatusSettlementInitiated,
			"creator_settlement_outcome": outcome,
			"settlement_initiated_at":    &now,
			"contest_deadline":           &contestDeadline,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to initiate settlement: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, &InvalidStateError{MarketID: marketID, Status: market.Status, Op: "propose settlement"}
	}

	// Creator bond is optional; when configured it backs the proposal and is
	// slashed if a contest overturns the outcome.
	if s.cfg.CreatorBondAmount.IsPositive() {
		if _, err := s.bonds.PostBond(ctx, marketID, nil, proposerID, s.cfg.CreatorBondAmount); err != nil {
			log.Printf("[Settlement] Failed to post creator bond for market %d: %v", marketID, err)
			s.recordIssue(ctx, marketID, "bonds", fmt.Sprintf("creator bond: %v", err))
		}
	}

	log.Printf("[Settlement] Market %d settlement initiated by user %d: outcome=%s, contest deadline %v",
		marketID, proposerID, outcome, contestDeadline)

	if err := s.db.WithContext(ctx).Where("id = ?", marketID).First(&market).Error; err != nil {
		return nil, err
	}
	return &market, nil
}

// ScanAndAdvance is the periodic entry point. It auto-accepts uncontested
// proposals whose contest deadline has passed and resolves contests whose
// vote deadline has passed, then finalizes the affected markets. Per-market
// failures are isolated in the summary and never abort the batch.
func (s *SettlementService) ScanAndAdvance(ctx context.Context, now time.Time) BatchSummary {
	summary := BatchSummary{Details: []BatchDetail{}}

	s.advancePending(ctx, now, &summary)
	s.advanceContested(ctx, now, &summary)

	if summary.Checked > 0 {
		log.Printf("[Settlement] Scan complete: checked=%d settled=%d failed=%d",
			summary.Checked, summary.Settled, summary.Failed)
	}
	return summary
}

// advancePending auto-accepts proposals whose contest window closed with no
// active contest.
func (s *SettlementService) advancePending(ctx context.Context, now time.Time, summary *BatchSummary) {
	var markets []models.Market
	err := s.db.WithContext(ctx).
		Where("status = ? AND contest_deadline <= ?", models.MarketStatusSettlementInitiated, now).
		Order("contest_deadline ASC").
		Limit(s.cfg.ScanBatchLimit).
		Find(&markets).Error
	if err != nil {
		log.Printf("[Settlement] Failed to scan pending settlements: %v", err)
		return
	}

	for _, market := range markets {
		summary.Checked++

		contest, err := s.contests.ActiveContest(ctx, market.ID)
		if err != nil {
			summary.Failed++
			summary.Details = append(summary.Details, BatchDetail{
				MarketID: market.ID, Action: "auto_accept", Error: err.Error(),
			})
			continue
		}
		if contest != nil {
			// Should not happen while status is SETTLEMENT_INITIATED, but
			// the scan must not finalize over a live dispute.
			summary.Details = append(summary.Details, BatchDetail{
				MarketID: market.ID, Action: "skipped_active_contest",
			})
			continue
		}

		if market.OracleStatus == models.OracleStatusRequested {
			summary.Details = append(summary.Details, BatchDetail{
				MarketID: market.ID, Action: "deferred_to_oracle",
			})
			continue
		}

		if market.CreatorSettlementOutcome == nil {
			summary.Failed++
			summary.Details = append(summary.Details, BatchDetail{
				MarketID: market.ID, Action: "auto_accept", Error: "no proposed outcome recorded",
			})
			continue
		}

		settled, err := s.finalize(ctx, market.ID, *market.CreatorSettlementOutcome,
			models.MarketStatusSettlementInitiated)
		if err != nil {
			summary.Failed++
			summary.Details = append(summary.Details, BatchDetail{
				MarketID: market.ID, Action: "auto_accept", Error: err.Error(),
			})
			continue
		}
		if settled {
			summary.Settled++
			summary.Details = append(summary.Details, BatchDetail{
				MarketID: market.ID, Action: "auto_accept",
			})
		}
	}
}

// advanceContested resolves contests past their vote deadline and finalizes
// the markets with the tallied outcome. It also finishes markets whose
// contest resolved earlier but whose finalize step failed mid-way.
func (s *SettlementService) advanceContested(ctx context.Context, now time.Time, summary *BatchSummary) {
	var markets []models.Market
	err := s.db.WithContext(ctx).
		Where("status = ? AND oracle_status <> ?", models.MarketStatusContested, models.OracleStatusRequested).
		Order("updated_at ASC").
		Limit(s.cfg.ScanBatchLimit).
		Find(&markets).Error
	if err != nil {
		log.Printf("[Settlement] Failed to scan contested markets: %v", err)
		return
	}

	for _, market := range markets {
		_, outcome, ready, err := s.contestOutcome(ctx, market.ID, now)
		if err != nil {
			summary.Checked++
			summary.Failed++
			summary.Details = append(summary.Details, BatchDetail{
				MarketID: market.ID, Action: "resolve_contest", Error: err.Error(),
			})
			continue
		}
		if !ready {
			continue // vote window still open, not part of this batch
		}
		summary.Checked++

		settled, err := s.finalize(ctx, market.ID, outcome, models.MarketStatusContested)
		if err != nil {
			summary.Failed++
			summary.Details = append(summary.Details, BatchDetail{
				MarketID: market.ID, Action: "resolve_contest", Error: err.Error(),
			})
			continue
		}
		if settled {
			summary.Settled++
			summary.Details = append(summary.Details, BatchDetail{
				MarketID: market.ID, Action: "resolve_contest",
			})
		}
	}
}

// contestOutcome returns the contest's resolved outcome for a contested
// market, resolving it first if its vote deadline has passed. ready is false
// while the vote window is still open.
func (s *SettlementService) contestOutcome(
	ctx context.Context,
	marketID uint,
	now time.Time,
) (*models.SettlementContest, string, bool, error) {
	contest, err := s.contests.ActiveContest(ctx, marketID)
	if err != nil {
		return nil, "", false, err
	}

	if contest == nil {
		// Contest already resolved; the market finalize must have failed on
		// a previous run. Pick the recorded outcome back up.
		var resolved models.SettlementContest
		err := s.db.WithContext(ctx).
			Where("market_id = ? AND status = ?", marketID, models.ContestStatusResolved).
			First(&resolved).Error
		if err == gorm.ErrRecordNotFound {
			return nil, "", false, fmt.Errorf("market %d is contested but has no contest row", marketID)
		}
		if err != nil {
			return nil, "", false, err
		}
		if resolved.ResolvedOutcome == nil {
			return nil, "", false, fmt.Errorf("contest %s resolved without an outcome", resolved.ID)
		}
		return &resolved, *resolved.ResolvedOutcome, true, nil
	}

	if now.Before(contest.VoteDeadline) {
		return contest, "", false, nil
	}

	outcome, err := s.contests.ResolveContest(ctx, contest.ID, now)
	if err != nil {
		return contest, "", false, err
	}
	return contest, outcome, true, nil
}

// ForceSettle is the administrative escape hatch: it ignores deadlines and
// finalizes immediately using the best available outcome. Preference order:
// oracle answer if a request exists, then the creator-proposed outcome.
// With neither, it fails with ErrNoOutcomeAvailable.
func (s *SettlementService) ForceSettle(ctx context.Context, marketID uint, adminID uint) (*models.Market, error) {
	var market models.Market
	if err := s.db.WithContext(ctx).Where("id = ?", marketID).First(&market).Error; err != nil {
		return nil, fmt.Errorf("failed to load market %d: %w", marketID, err)
	}

	if market.Status == models.MarketStatusSettled {
		return &market, nil
	}
	if market.Status != models.MarketStatusSettlementInitiated && market.Status != models.MarketStatusContested {
		return nil, &InvalidStateError{MarketID: marketID, Status: market.Status, Op: "force settle"}
	}

	outcome := ""
	if market.OracleRequestID != nil {
		result, err := s.adapter.ForceStatus(ctx, *market.OracleRequestID)
		if err != nil {
			log.Printf("[Settlement] Force-settle oracle lookup failed for market %d: %v", marketID, err)
		} else if result.Status == oracle.StatusResolved && models.ValidOutcome(result.Answer) {
			outcome = result.Answer
		}
	}
	if outcome == "" && market.CreatorSettlementOutcome != nil {
		outcome = *market.CreatorSettlementOutcome
	}
	if outcome == "" {
		return nil, ErrNoOutcomeAvailable
	}

	settled, err := s.finalize(ctx, marketID, outcome,
		models.MarketStatusSettlementInitiated, models.MarketStatusContested)
	if err != nil {
		return nil, err
	}

	if settled {
		adminLog := &models.AdminLog{
			AdminID:   adminID,
			Action:    "force_settle",
			TargetID:  &marketID,
			Detail:    fmt.Sprintf("Market %d force-settled with outcome %s", marketID, outcome),
			CreatedAt: time.Now(),
		}
		if err := s.db.WithContext(ctx).Create(adminLog).Error; err != nil {
			log.Printf("[Settlement] Failed to write admin log for market %d: %v", marketID, err)
		}
	}

	if err := s.db.WithContext(ctx).Where("id = ?", marketID).First(&market).Error; err != nil {
		return nil, err
	}
	return &market, nil
}

// EscalateToOracle submits a market's question to the external oracle and
// records the request id plus the liveness deadline. Idempotent: a market
// with a pending request returns the existing request id.
func (s *SettlementService) EscalateToOracle(ctx context.Context, marketID uint) (string, error) {
	var market models.Market
	if err := s.db.WithContext(ctx).Where("id = ?", marketID).First(&market).Error; err != nil {
		return "", fmt.Errorf("failed to load market %d: %w", marketID, err)
	}

	if market.OracleRequestID != nil {
		return *market.OracleRequestID, nil
	}
	if market.Status != models.MarketStatusSettlementInitiated && market.Status != models.MarketStatusContested {
		return "", &InvalidStateError{MarketID: marketID, Status: market.Status, Op: "escalate to oracle"}
	}

	requestID, liveness, err := s.adapter.SubmitRequest(ctx, market.Title, fmt.Sprintf("market:%d", marketID))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExternalUnavailable, err)
	}
	if liveness <= 0 {
		liveness = s.oracleLiveness
	}
	livenessEndsAt := time.Now().Add(liveness)

	res := s.db.WithContext(ctx).Model(&models.Market{}).
		Where("id = ? AND oracle_status = ?", marketID, models.OracleStatusNone).
		Updates(map[string]interface{}{
			"oracle_status":     models.OracleStatusRequested,
			"oracle_request_id": requestID,
			"liveness_ends_at":  &livenessEndsAt,
		})
	if res.Error != nil {
		return "", fmt.Errorf("failed to record oracle request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// A concurrent escalation won; the gateway deduplicated the request,
		// so returning the stored id is correct either way.
		if err := s.db.WithContext(ctx).Where("id = ?", marketID).First(&market).Error; err != nil {
			return "", err
		}
		if market.OracleRequestID != nil {
			return *market.OracleRequestID, nil
		}
	}

	log.Printf("[Settlement] Market %d escalated to oracle: request=%s, liveness ends %v",
		marketID, requestID, livenessEndsAt)
	return requestID, nil
}

// ResolveViaOracle finalizes a market from the oracle's answer once the
// liveness window has elapsed. Returns ErrOraclePending while the oracle has
// not finalized and ErrExternalUnavailable on transient failure; both mean
// "retry on the next scheduled sweep".
func (s *SettlementService) ResolveViaOracle(ctx context.Context, marketID uint) (*models.Market, error) {
	var market models.Market
	if err := s.db.WithContext(ctx).Where("id = ?", marketID).First(&market).Error; err != nil {
		return nil, fmt.Errorf("failed to load market %d: %w", marketID, err)
	}

	if market.Status == models.MarketStatusSettled {
		return &market, nil
	}
	if market.OracleRequestID == nil {
		return nil, &InvalidStateError{MarketID: marketID, Status: market.Status, Op: "resolve via oracle"}
	}
	if market.LivenessEndsAt != nil && time.Now().Before(*market.LivenessEndsAt) {
		return nil, ErrOraclePending
	}

	result, err := s.adapter.GetStatus(ctx, *market.OracleRequestID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalUnavailable, err)
	}

	switch result.Status {
	case oracle.StatusResolved:
		// fall through to finalize below
	case oracle.StatusUnknown:
		return nil, ErrExternalUnavailable
	default:
		// Pending, or disputed inside the oracle's own process. Either way
		// finality has not arrived yet.
		return nil, ErrOraclePending
	}

	if !models.ValidOutcome(result.Answer) {
		return nil, fmt.Errorf("oracle returned unsupported answer %q for market %d", result.Answer, marketID)
	}

	if _, err := s.finalize(ctx, marketID, result.Answer,
		models.MarketStatusSettlementInitiated, models.MarketStatusContested); err != nil {
		return nil, err
	}

	// Flip oracle_status only once the market is settled. A failed finalize
	// must leave the market in REQUESTED so the sweep keeps picking it up.
	if err := s.db.WithContext(ctx).Model(&models.Market{}).
		Where("id = ? AND oracle_status = ?", marketID, models.OracleStatusRequested).
		Update("oracle_status", models.OracleStatusResolved).Error; err != nil {
		log.Printf("[Settlement] Failed to mark oracle resolved for market %d: %v", marketID, err)
	}

	if err := s.db.WithContext(ctx).Where("id = ?", marketID).First(&market).Error; err != nil {
		return nil, err
	}
	return &market, nil
}

// OracleSweep checks every market with an elapsed oracle liveness window and
// tries to finalize it from the oracle answer. Pending and transiently
// unavailable markets are deferred, not failed.
func (s *SettlementService) OracleSweep(ctx context.Context, now time.Time) BatchSummary {
	summary := BatchSummary{Details: []BatchDetail{}}

	var markets []models.Market
	err := s.db.WithContext(ctx).
		Where("oracle_status = ? AND liveness_ends_at <= ? AND status IN ?",
			models.OracleStatusRequested, now,
			[]models.MarketStatus{models.MarketStatusSettlementInitiated, models.MarketStatusContested}).
		Order("liveness_ends_at ASC").
		Limit(s.cfg.ScanBatchLimit).
		Find(&markets).Error
	if err != nil {
		log.Printf("[Settlement] Failed to scan oracle requests: %v", err)
		return summary
	}

	for _, market := range markets {
		summary.Checked++

		_, err := s.ResolveViaOracle(ctx, market.ID)
		switch {
		case err == nil:
			summary.Settled++
			summary.Details = append(summary.Details, BatchDetail{
				MarketID: market.ID, Action: "oracle_resolve",
			})
		case errors.Is(err, ErrOraclePending), errors.Is(err, ErrExternalUnavailable):
			summary.Details = append(summary.Details, BatchDetail{
				MarketID: market.ID, Action: "deferred", Error: err.Error(),
			})
		default:
			summary.Failed++
			summary.Details = append(summary.Details, BatchDetail{
				MarketID: market.ID, Action: "oracle_resolve", Error: err.Error(),
			})
		}
	}

	return summary
}

// ForceSettlePending force-settles every market whose contest deadline has
// long passed but that automated scanning failed to advance. Manual-override
// sweep for operators; normally a no-op right after a healthy scan.
func (s *SettlementService) ForceSettlePending(ctx context.Context, now time.Time, adminID uint) BatchSummary {
	summary := BatchSummary{Details: []BatchDetail{}}

	var markets []models.Market
	err := s.db.WithContext(ctx).
		Where("status IN ? AND contest_deadline <= ?",
			[]models.MarketStatus{models.MarketStatusSettlementInitiated, models.MarketStatusContested}, now).
		Order("contest_deadline ASC").
		Limit(s.cfg.ScanBatchLimit).
		Find(&markets).Error
	if err != nil {
		log.Printf("[Settlement] Failed to scan for force settlement: %v", err)
		return summary
	}

	for _, market := range markets {
		summary.Checked++

		if _, err := s.ForceSettle(ctx, market.ID, adminID); err != nil {
			summary.Failed++
			summary.Details = append(summary.Details, BatchDetail{
				MarketID: market.ID, Action: "force_settle", Error: err.Error(),
			})
			continue
		}
		summary.Settled++
		summary.Details = append(summary.Details, BatchDetail{
			MarketID: market.ID, Action: "force_settle",
		})
	}

	return summary
}

// finalize performs the authoritative settlement write: a compare-and-swap on
// the market status that sets outcome and settled_at in the same update.
// Exactly one concurrent finalize wins; losers return settled=false with no
// error. Auxiliary effects (payouts, bond settlement, notifications) run
// after the write, are best-effort, and are recorded in the operator queue
// when they fail; they never roll back the settlement.
func (s *SettlementService) finalize(
	ctx context.Context,
	marketID uint,
	outcome string,
	from ...models.MarketStatus,
) (bool, error) {
	for _, status := range from {
		if !models.CanTransition(status, models.MarketStatusSettled) {
			return false, fmt.Errorf("transition %s -> SETTLED is not allowed", status)
		}
	}

	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.Market{}).
		Where("id = ? AND status IN ?", marketID, from).
		Updates(map[string]interface{}{
			"status":     models.MarketStatusSettled,
			"outcome":    outcome,
			"settled_at": &now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to finalize market %d: %w", marketID, res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race or the market moved elsewhere. Converge silently if
		// it reached SETTLED; otherwise report the bad state.
		var market models.Market
		if err := s.db.WithContext(ctx).Where("id = ?", marketID).First(&market).Error; err != nil {
			return false, err
		}
		if market.Status == models.MarketStatusSettled {
			return false, nil
		}
		return false, &InvalidStateError{MarketID: marketID, Status: market.Status, Op: "finalize"}
	}

	log.Printf("[Settlement] Market %d settled: outcome=%s", marketID, outcome)

	s.applySideEffects(ctx, marketID, outcome)
	return true, nil
}

// applySideEffects runs the auxiliary finalize steps. Each failure is logged
// and queued for the operator; none is retried inline or rolled back.
func (s *SettlementService) applySideEffects(ctx context.Context, marketID uint, outcome string) {
	if _, err := s.payouts.ApplyPayouts(ctx, marketID, outcome); err != nil {
		log.Printf("[Settlement] Payout application failed for market %d: %v", marketID, err)
		s.recordIssue(ctx, marketID, "payouts", err.Error())
	}

	s.settleRemainingBonds(ctx, marketID, outcome)

	var market models.Market
	if err := s.db.WithContext(ctx).Where("id = ?", marketID).First(&market).Error; err == nil && market.CreatedBy != nil {
		notification := &models.Notification{
			ID:       uuid.New(),
			UserID:   *market.CreatedBy,
			Type:     models.NotificationTypeMarketSettled,
			Title:    "Your market settled",
			Message:  fmt.Sprintf("Market %q settled with outcome %s", market.Title, outcome),
			MarketID: &marketID,
		}
		if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
			log.Printf("[Settlement] Failed to notify creator of market %d: %v", marketID, err)
			s.recordIssue(ctx, marketID, "notifications", err.Error())
		}
	}
}

// settleRemainingBonds disposes of bonds still held after finalize. The
// contest path settles its bonds at resolution time, so anything left here
// belongs to a superseded or uncontested round: bonds whose poster backed
// the final outcome (or posted with no opposing claim) are refunded, and a
// contestant bond superseded by an oracle or forced outcome that upheld the
// creator's proposal is slashed to the creator.
func (s *SettlementService) settleRemainingBonds(ctx context.Context, marketID uint, outcome string) {
	var market models.Market
	if err := s.db.WithContext(ctx).Where("id = ?", marketID).First(&market).Error; err != nil {
		log.Printf("[Settlement] Failed to reload market %d for bond settlement: %v", marketID, err)
		s.recordIssue(ctx, marketID, "bonds", err.Error())
		return
	}

	// A still-active contest at this point was superseded by an oracle or
	// forced finalize; close it before touching its bond.
	var contest *models.SettlementContest
	if c, err := s.contests.ActiveContest(ctx, marketID); err == nil && c != nil {
		contest = c
		res := s.db.WithContext(ctx).Model(&models.SettlementContest{}).
			Where("id = ? AND status = ?", c.ID, models.ContestStatusActive).
			Update("status", models.ContestStatusExpired)
		if res.Error != nil {
			log.Printf("[Settlement] Failed to expire contest %s: %v", c.ID, res.Error)
			s.recordIssue(ctx, marketID, "bonds", res.Error.Error())
		}
	}

	bonds, err := s.bonds.HeldBonds(ctx, marketID)
	if err != nil {
		log.Printf("[Settlement] Failed to load held bonds for market %d: %v", marketID, err)
		s.recordIssue(ctx, marketID, "bonds", err.Error())
		return
	}

	creatorUpheld := market.CreatorSettlementOutcome != nil && *market.CreatorSettlementOutcome == outcome

	for _, bond := range bonds {
		isContestantBond := contest != nil && bond.PosterID == contest.ContestantID

		var settleErr error
		switch {
		case isContestantBond && creatorUpheld:
			beneficiary := s.cfg.TreasuryUserID
			if market.CreatedBy != nil {
				beneficiary = *market.CreatedBy
			}
			_, settleErr = s.bonds.SlashBond(ctx, bond.ID, beneficiary)
		case !isContestantBond && contest != nil && !creatorUpheld:
			// Creator's bond with an overturning final outcome.
			_, settleErr = s.bonds.SlashBond(ctx, bond.ID, contest.ContestantID)
		default:
			_, settleErr = s.bonds.RefundBond(ctx, bond.ID)
		}
		if settleErr != nil {
			log.Printf("[Settlement] Failed to settle bond %s for market %d: %v", bond.ID, marketID, settleErr)
			s.recordIssue(ctx, marketID, "bonds", settleErr.Error())
		}
	}
}

func (s *SettlementService) recordIssue(ctx context.Context, marketID uint, step, detail string) {
	issue := &models.SettlementIssue{
		ID:        uuid.New(),
		MarketID:  marketID,
		Step:      step,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(issue).Error; err != nil {
		log.Printf("[Settlement] Failed to record settlement issue for market %d: %v", marketID, err)
	}
}
