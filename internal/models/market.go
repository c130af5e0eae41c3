package models

import (
	"time"
)

// Market represents a prediction market
type Market struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Title       string       `gorm:"size:500;not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	Category    string       `gorm:"size:50;not null;index" json:"category"` // Politics, Sports, Crypto, Solana
	Status      MarketStatus `gorm:"size:50;not null;default:ACTIVE;index" json:"status"`
	EndTime     time.Time    `gorm:"not null;index" json:"end_time"`

	// Settlement fields. Outcome is set exactly when Status becomes SETTLED.
	Outcome                  *string    `gorm:"size:10" json:"outcome,omitempty"`
	CreatorSettlementOutcome *string    `gorm:"size:10" json:"creator_settlement_outcome,omitempty"`
	SettlementInitiatedAt    *time.Time `json:"settlement_initiated_at,omitempty"`
	ContestDeadline          *time.Time `gorm:"index" json:"contest_deadline,omitempty"`
	ContestRounds            int        `gorm:"default:0" json:"contest_rounds"`
	SettledAt                *time.Time `json:"settled_at,omitempty"`

	// Oracle escalation fields.
	OracleStatus    OracleStatus `gorm:"size:50;not null;default:NONE;index" json:"oracle_status"`
	OracleRequestID *string      `gorm:"size:255" json:"oracle_request_id,omitempty"`
	LivenessEndsAt  *time.Time   `gorm:"index" json:"liveness_ends_at,omitempty"`

	CreatedBy *uint `gorm:"index" json:"created_by,omitempty"`
	Creator   *User `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	IsPrivate bool  `gorm:"default:false" json:"is_private"`
	GroupID   *uint `gorm:"index" json:"group_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Market model
func (Market) TableName() string {
	return "markets"
}

// CreateMarketRequest represents a request to create a new market
type CreateMarketRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Category    string    `json:"category" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
	IsPrivate   bool      `json:"is_private"`
	GroupID     *uint     `json:"group_id"`
}

// ProposeSettlementRequest represents a creator's proposed settlement outcome
type ProposeSettlementRequest struct {
	Outcome string `json:"outcome" binding:"required,oneof=YES NO"`
}

// MarketResponse represents a market in API responses, with the derived
// display status substituted for the raw persisted status
type MarketResponse struct {
	ID                       uint       `json:"id"`
	Title                    string     `json:"title"`
	Description              string     `json:"description"`
	Category                 string     `json:"category"`
	Status                   string     `json:"status"`
	EndTime                  time.Time  `json:"end_time"`
	Outcome                  *string    `json:"outcome,omitempty"`
	CreatorSettlementOutcome *string    `json:"creator_settlement_outcome,omitempty"`
	ContestDeadline          *time.Time `json:"contest_deadline,omitempty"`
	SettledAt                *time.Time `json:"settled_at,omitempty"`
	CreatedAt                time.Time  `json:"created_at"`
}

// ToResponse converts a market to its API representation at the given time
func (m *Market) ToResponse(now time.Time) MarketResponse {
	return MarketResponse{
		ID:                       m.ID,
		Title:                    m.Title,
		Description:              m.Description,
		Category:                 m.Category,
		Status:                   m.DisplayStatus(now),
		EndTime:                  m.EndTime,
		Outcome:                  m.Outcome,
		CreatorSettlementOutcome: m.CreatorSettlementOutcome,
		ContestDeadline:          m.ContestDeadline,
		SettledAt:                m.SettledAt,
		CreatedAt:                m.CreatedAt,
	}
}
