package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification types emitted by the settlement path.
const (
	NotificationTypeMarketSettled = "market_settled"
	NotificationTypePayout        = "payout"
	NotificationTypeBondSlashed   = "bond_slashed"
	NotificationTypeBondRefunded  = "bond_refunded"
)

// Notification is a best-effort message to a user. Delivery is handled
// elsewhere; settlement only creates rows.
type Notification struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Type      string    `gorm:"size:50;not null;index" json:"type"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Message   string    `gorm:"type:text" json:"message"`
	MarketID  *uint     `gorm:"index" json:"market_id,omitempty"`
	Read      bool      `gorm:"default:false;index" json:"read"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName specifies the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}

// SettlementIssue records an auxiliary side effect that failed after the
// authoritative settlement write succeeded. Rows here feed an operator queue
// for out-of-band retry; they never block or roll back the settlement itself.
type SettlementIssue struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MarketID  uint      `gorm:"not null;index" json:"market_id"`
	Step      string    `gorm:"size:100;not null" json:"step"` // payouts, bonds, notifications
	Detail    string    `gorm:"type:text" json:"detail"`
	Resolved  bool      `gorm:"default:false;index" json:"resolved"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName specifies the table name for SettlementIssue
func (SettlementIssue) TableName() string {
	return "settlement_issues"
}
