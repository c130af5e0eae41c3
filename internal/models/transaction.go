package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types written by the bond and payout paths.
const (
	TransactionTypeBondPosted   = "bond_posted"
	TransactionTypeBondRefunded = "bond_refunded"
	TransactionTypeBondAwarded  = "bond_awarded"
	TransactionTypePayout       = "payout"
)

// Transaction represents a virtual currency transaction
type Transaction struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	User        User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Type        string          `gorm:"size:50;not null;index" json:"type"`
	Amount      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	MarketID    *uint           `gorm:"index" json:"market_id,omitempty"`
	Description string          `gorm:"type:text" json:"description"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for Transaction model
func (Transaction) TableName() string {
	return "transactions"
}
