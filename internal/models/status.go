package models

import "time"

// MarketStatus is the persisted settlement status of a market. Only statuses
// listed in the transition table below are ever written to the database.
type MarketStatus string

const (
	MarketStatusActive              MarketStatus = "ACTIVE"
	MarketStatusSettlementInitiated MarketStatus = "SETTLEMENT_INITIATED"
	MarketStatusContested           MarketStatus = "CONTESTED"
	MarketStatusSettled             MarketStatus = "SETTLED"
	MarketStatusCancelled           MarketStatus = "CANCELLED"
	MarketStatusSuspended           MarketStatus = "SUSPENDED"
)

// MarketDisplayStatusExpired is a derived, display-only status: an ACTIVE
// market whose end time has passed. It is computed from the clock and never
// persisted in the status column.
const MarketDisplayStatusExpired = "EXPIRED"

// marketTransitions maps each status to the set of statuses it may move to.
// Any update not present here must be rejected.
var marketTransitions = map[MarketStatus][]MarketStatus{
	MarketStatusActive:              {MarketStatusSettlementInitiated, MarketStatusCancelled, MarketStatusSuspended},
	MarketStatusSettlementInitiated: {MarketStatusContested, MarketStatusSettled, MarketStatusCancelled, MarketStatusSuspended},
	MarketStatusContested:           {MarketStatusSettled, MarketStatusCancelled, MarketStatusSuspended},
	MarketStatusSuspended:           {MarketStatusActive, MarketStatusCancelled},
	MarketStatusSettled:             {},
	MarketStatusCancelled:           {},
}

// CanTransition reports whether moving a market from one persisted status to
// another is allowed by the transition table.
func CanTransition(from, to MarketStatus) bool {
	for _, next := range marketTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionSources returns every status allowed to move to the given target.
func TransitionSources(to MarketStatus) []MarketStatus {
	var sources []MarketStatus
	for from := range marketTransitions {
		if CanTransition(from, to) {
			sources = append(sources, from)
		}
	}
	return sources
}

// IsTerminal reports whether a market status admits no further transitions.
func (s MarketStatus) IsTerminal() bool {
	return len(marketTransitions[s]) == 0
}

// DisplayStatus returns the status to show for a market, substituting the
// derived EXPIRED state for an ACTIVE market whose end time has passed.
func (m *Market) DisplayStatus(now time.Time) string {
	if m.Status == MarketStatusActive && !m.EndTime.After(now) {
		return MarketDisplayStatusExpired
	}
	return string(m.Status)
}

// IsExpired reports whether the market is past its end time. Expiry is purely
// a wall-clock comparison, independent of the persisted status.
func (m *Market) IsExpired(now time.Time) bool {
	return !m.EndTime.After(now)
}

// BondStatus is the lifecycle state of a settlement bond. HELD is the only
// non-terminal state; a bond moves to exactly one of REFUNDED or SLASHED.
type BondStatus string

const (
	BondStatusHeld     BondStatus = "HELD"
	BondStatusRefunded BondStatus = "REFUNDED"
	BondStatusSlashed  BondStatus = "SLASHED"
)

// IsTerminal reports whether the bond has reached a final state.
func (s BondStatus) IsTerminal() bool {
	return s == BondStatusRefunded || s == BondStatusSlashed
}

// ContestStatus is the lifecycle state of a settlement contest.
type ContestStatus string

const (
	ContestStatusActive   ContestStatus = "ACTIVE"
	ContestStatusResolved ContestStatus = "RESOLVED"
	ContestStatusExpired  ContestStatus = "EXPIRED"
)

// OracleStatus tracks a market's progress through the external oracle path.
type OracleStatus string

const (
	OracleStatusNone      OracleStatus = "NONE"
	OracleStatusRequested OracleStatus = "REQUESTED"
	OracleStatusResolved  OracleStatus = "RESOLVED"
)

// Outcome values for binary markets.
const (
	OutcomeYes = "YES"
	OutcomeNo  = "NO"
)

// ValidOutcome reports whether the given value is a settleable outcome.
func ValidOutcome(outcome string) bool {
	return outcome == OutcomeYes || outcome == OutcomeNo
}
