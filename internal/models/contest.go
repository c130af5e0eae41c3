package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementContest represents a bonded dispute of a proposed settlement
// outcome. The unique index on MarketID is the hard guard behind the
// at-most-one-contest-per-market rule: a second insert fails at the database
// regardless of what the caller checked first.
type SettlementContest struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	MarketID        uint          `gorm:"uniqueIndex;not null" json:"market_id"`
	ContestantID    uint          `gorm:"not null;index" json:"contestant_id"`
	Status          ContestStatus `gorm:"size:50;not null;default:ACTIVE;index" json:"status"`
	VoteDeadline    time.Time     `gorm:"not null;index" json:"vote_deadline"`
	ResolvedOutcome *string       `gorm:"size:10" json:"resolved_outcome,omitempty"`
	CreatedAt       time.Time     `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	ResolvedAt      *time.Time    `json:"resolved_at,omitempty"`
}

// TableName specifies the table name for SettlementContest
func (SettlementContest) TableName() string {
	return "settlement_contests"
}

// ContestVote is a single immutable vote cast during a contest's voting
// window. The composite unique index rejects a second vote from the same
// voter at the database level.
type ContestVote struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ContestID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_contest_voter" json:"contest_id"`
	VoterID   uint      `gorm:"not null;uniqueIndex:idx_contest_voter" json:"voter_id"`
	Choice    string    `gorm:"size:10;not null" json:"choice"` // YES, NO
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName specifies the table name for ContestVote
func (ContestVote) TableName() string {
	return "contest_votes"
}

// OpenContestRequest represents a request to contest a proposed settlement
type OpenContestRequest struct {
	BondAmount decimal.Decimal `json:"bond_amount" binding:"required"`
}

// CastVoteRequest represents a vote on a contested market outcome
type CastVoteRequest struct {
	Choice string `json:"choice" binding:"required,oneof=YES NO"`
}
