package models

import (
	"testing"
	"time"
)

func TestMarketTransitions(t *testing.T) {
	allowed := []struct {
		from, to MarketStatus
	}{
		{MarketStatusActive, MarketStatusSettlementInitiated},
		{MarketStatusActive, MarketStatusCancelled},
		{MarketStatusActive, MarketStatusSuspended},
		{MarketStatusSettlementInitiated, MarketStatusContested},
		{MarketStatusSettlementInitiated, MarketStatusSettled},
		{MarketStatusSettlementInitiated, MarketStatusCancelled},
		{MarketStatusSettlementInitiated, MarketStatusSuspended},
		{MarketStatusContested, MarketStatusSettled},
		{MarketStatusContested, MarketStatusCancelled},
		{MarketStatusContested, MarketStatusSuspended},
		{MarketStatusSuspended, MarketStatusActive},
		{MarketStatusSuspended, MarketStatusCancelled},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct {
		from, to MarketStatus
	}{
		{MarketStatusActive, MarketStatusSettled},
		{MarketStatusActive, MarketStatusContested},
		{MarketStatusContested, MarketStatusActive},
		{MarketStatusContested, MarketStatusSettlementInitiated},
		{MarketStatusSettled, MarketStatusActive},
		{MarketStatusSettled, MarketStatusCancelled},
		{MarketStatusCancelled, MarketStatusActive},
		{MarketStatusSuspended, MarketStatusSettled},
		{MarketStatusSettlementInitiated, MarketStatusActive},
	}
	for _, tc := range forbidden {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	if !MarketStatusSettled.IsTerminal() {
		t.Error("SETTLED must be terminal")
	}
	if !MarketStatusCancelled.IsTerminal() {
		t.Error("CANCELLED must be terminal")
	}
	for _, status := range []MarketStatus{
		MarketStatusActive, MarketStatusSettlementInitiated,
		MarketStatusContested, MarketStatusSuspended,
	} {
		if status.IsTerminal() {
			t.Errorf("%s must not be terminal", status)
		}
	}
}

func TestTransitionSources(t *testing.T) {
	sources := TransitionSources(MarketStatusSettled)
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources for SETTLED, got %v", sources)
	}
	found := map[MarketStatus]bool{}
	for _, s := range sources {
		found[s] = true
	}
	if !found[MarketStatusSettlementInitiated] || !found[MarketStatusContested] {
		t.Errorf("unexpected sources for SETTLED: %v", sources)
	}
}

func TestDisplayStatusDerivesExpired(t *testing.T) {
	now := time.Now()
	market := Market{Status: MarketStatusActive, EndTime: now.Add(time.Hour)}

	if got := market.DisplayStatus(now); got != string(MarketStatusActive) {
		t.Errorf("expected ACTIVE before end time, got %s", got)
	}

	market.EndTime = now.Add(-time.Hour)
	if got := market.DisplayStatus(now); got != MarketDisplayStatusExpired {
		t.Errorf("expected EXPIRED past end time, got %s", got)
	}

	// Expiry is display-only; other statuses show their persisted value.
	market.Status = MarketStatusSettlementInitiated
	if got := market.DisplayStatus(now); got != string(MarketStatusSettlementInitiated) {
		t.Errorf("expected SETTLEMENT_INITIATED, got %s", got)
	}
}

func TestBondStatusTerminal(t *testing.T) {
	if BondStatusHeld.IsTerminal() {
		t.Error("HELD must not be terminal")
	}
	if !BondStatusRefunded.IsTerminal() || !BondStatusSlashed.IsTerminal() {
		t.Error("REFUNDED and SLASHED must be terminal")
	}
}

func TestValidOutcome(t *testing.T) {
	if !ValidOutcome(OutcomeYes) || !ValidOutcome(OutcomeNo) {
		t.Error("YES and NO must be valid outcomes")
	}
	for _, bad := range []string{"", "yes", "MAYBE", "INVALID"} {
		if ValidOutcome(bad) {
			t.Errorf("%q must not be a valid outcome", bad)
		}
	}
}
