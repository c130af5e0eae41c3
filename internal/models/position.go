package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserPosition represents a position in a prediction market. Settlement reads
// positions to compute payouts and closes them when the market settles; it
// never creates them.
type UserPosition struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uint            `gorm:"not null;index" json:"user_id"`
	MarketID     uint            `gorm:"not null;index" json:"market_id"`
	Outcome      string          `gorm:"not null;check:outcome IN ('YES', 'NO')" json:"outcome"`
	Quantity     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"quantity"`
	AveragePrice decimal.Decimal `gorm:"type:decimal(10,6);not null" json:"average_price"`
	Status       string          `gorm:"size:50;not null;default:OPEN;index" json:"status"` // OPEN, CLOSED
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName specifies the table name for UserPosition
func (UserPosition) TableName() string {
	return "user_positions"
}

// UserPayout records the settlement payout computed for one position holder
type UserPayout struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uint            `gorm:"not null;index" json:"user_id"`
	MarketID     uint            `gorm:"not null;index" json:"market_id"`
	PayoutAmount decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"payout_amount"`
	PnL          decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"pnl"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName specifies the table name for UserPayout
func (UserPayout) TableName() string {
	return "user_payouts"
}
