package models

import (
	"time"
)

// AdminUser marks a user as an administrator
type AdminUser struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      string    `gorm:"size:50;not null;default:ADMIN" json:"role"` // ADMIN, SUPER_ADMIN
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for AdminUser
func (AdminUser) TableName() string {
	return "admin_users"
}

// AdminLog records an administrative action for audit
type AdminLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AdminID   uint      `gorm:"not null;index" json:"admin_id"`
	Admin     AdminUser `gorm:"foreignKey:AdminID" json:"admin,omitempty"`
	Action    string    `gorm:"size:100;not null" json:"action"`
	TargetID  *uint     `json:"target_id,omitempty"`
	Detail    string    `gorm:"type:text" json:"detail"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for AdminLog
func (AdminLog) TableName() string {
	return "admin_logs"
}
