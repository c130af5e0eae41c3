// Package oracle abstracts the external asynchronous resolution source: an
// on-chain optimistic oracle reached through an HTTP gateway, with answer
// attestations confirmed on Solana before they are treated as final.
package oracle

import (
	"context"
	"time"
)

// Status is the tri-state (plus transient) result of polling a resolution
// request. A network or infra failure maps to StatusUnknown so the caller
// retries later instead of treating it as authoritative non-resolution.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusResolved Status = "RESOLVED"
	StatusDisputed Status = "DISPUTED"
	StatusUnknown  Status = "UNKNOWN"
)

// Result is the outcome of a status query against the oracle.
type Result struct {
	Status Status
	Answer string // YES or NO, set when Status is RESOLVED (or on force)
}

// Adapter is the resolution contract the settlement orchestrator consumes.
// Both operations are idempotent and retry-safe from the caller's side.
type Adapter interface {
	// SubmitRequest submits a question to the oracle and returns the request
	// identifier and the liveness window the oracle will hold the proposed
	// answer open for dispute.
	SubmitRequest(ctx context.Context, question, marketRef string) (requestID string, liveness time.Duration, err error)

	// GetStatus polls the oracle for the state of a request. It never blocks
	// longer than the configured timeout.
	GetStatus(ctx context.Context, requestID string) (Result, error)

	// ForceStatus returns the oracle's best locally-known answer without
	// waiting for on-chain finality. Used by administrative force-settle.
	ForceStatus(ctx context.Context, requestID string) (Result, error)
}

// TxConfirmer checks whether an attestation transaction has been confirmed
// on chain. Split out so tests can substitute a fake chain.
type TxConfirmer interface {
	Confirmed(ctx context.Context, signature string) (bool, error)
}
