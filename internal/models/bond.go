package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementBond represents collateral held while a settlement proposal or a
// contest is pending. A bond in HELD status moves to exactly one of REFUNDED
// or SLASHED and never back.
type SettlementBond struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	MarketID      uint            `gorm:"not null;index" json:"market_id"`
	ContestID     *uuid.UUID      `gorm:"type:uuid;index" json:"contest_id,omitempty"`
	PosterID      uint            `gorm:"not null;index" json:"poster_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Status        BondStatus      `gorm:"size:50;not null;default:HELD;index" json:"status"`
	BeneficiaryID *uint           `json:"beneficiary_id,omitempty"` // set on slash
	CreatedAt     time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	SettledAt     *time.Time      `json:"settled_at,omitempty"`
}

// TableName specifies the table name for SettlementBond
func (SettlementBond) TableName() string {
	return "settlement_bonds"
}
