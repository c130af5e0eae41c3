package services

import (
	"errors"
	"fmt"
	"strings"

	"forecast-market/internal/models"

	"github.com/lib/pq"
)

// Sentinel errors for the settlement path. Callers match them with errors.Is.
var (
	// ErrDuplicateVote is returned when a voter casts a second vote in the
	// same contest. Benign; surfaced to the user, never retried.
	ErrDuplicateVote = errors.New("voter has already voted in this contest")

	// ErrDuplicateContest is returned when a contest is opened on a market
	// that already has (or had) one. Benign idempotency rejection.
	ErrDuplicateContest = errors.New("market already has a contest")

	// ErrOraclePending means the external oracle has not finalized yet. The
	// caller should retry on the next scheduled scan, not treat it as failure.
	ErrOraclePending = errors.New("oracle resolution still pending")

	// ErrExternalUnavailable marks a transient I/O or timeout failure talking
	// to an external collaborator. Retried by the next scheduled invocation.
	ErrExternalUnavailable = errors.New("external service unavailable")

	// ErrNoOutcomeAvailable means force-settle was invoked with no oracle
	// answer and no creator-proposed outcome. Requires manual intervention.
	ErrNoOutcomeAvailable = errors.New("no outcome available to settle with")
)

// InvalidStateError reports an operation attempted from the wrong market
// status. Always rejected, never retried automatically.
type InvalidStateError struct {
	MarketID uint
	Status   models.MarketStatus
	Op       string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("market %d: cannot %s from status %s", e.MarketID, e.Op, e.Status)
}

// InsufficientBalanceError reports a bond posting that exceeds the poster's
// available balance.
type InsufficientBalanceError struct {
	UserID uint
	Amount string
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("user %d: insufficient balance to post bond of %s", e.UserID, e.Amount)
}

// isUniqueViolation reports whether err is a unique-constraint violation from
// the underlying database. Postgres reports SQLSTATE 23505 via lib/pq; the
// sqlite driver used in tests reports a plain constraint message.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}
	if err != nil && strings.Contains(err.Error(), "duplicate key value") {
		return true
	}
	return false
}
