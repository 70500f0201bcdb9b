package models

import (
	"time"

	"gorm.io/gorm"

	"peerhelp/internal/core/domain"
)

// ============================================================
// Auth & User Tables
// ============================================================

// User represents users table
type User struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	MemberCode           string         `gorm:"uniqueIndex;size:20;not null" json:"member_code"`
	AccountID            string         `gorm:"uniqueIndex;size:40;not null" json:"account_id"`
	Username             string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email                string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password             string         `gorm:"size:255;not null" json:"-"`
	Role                 string         `gorm:"size:20;default:'USER'" json:"role"`
	Level                string         `gorm:"size:20;default:'STAR';index" json:"level"`
	HelpReceivedCount    int            `gorm:"default:0" json:"help_received_count"`
	IsActivated          bool           `gorm:"default:false" json:"is_activated"`
	IsBlocked            bool           `gorm:"default:false" json:"is_blocked"`
	BlockReason          string         `gorm:"size:255" json:"block_reason,omitempty"`
	IsOnHold             bool           `gorm:"default:false" json:"is_on_hold"`
	IsReceivingHeld      bool           `gorm:"default:false" json:"is_receiving_held"`
	HelpVisibility       bool           `gorm:"default:true" json:"help_visibility"`
	ForceReceiveOverride bool           `gorm:"default:false" json:"force_receive_override"`
	ReferralCount        int            `gorm:"default:0" json:"referral_count"`
	ReferredBy           *uint          `gorm:"index" json:"referred_by,omitempty"`
	CreatedAt            time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// LevelValue returns the user's level as a domain type. Stored values come
// from the closed level table, so failure here indicates corrupt data.
func (u *User) LevelValue() domain.Level {
	l, err := domain.ParseLevel(u.Level)
	if err != nil {
		return domain.EntryLevel()
	}
	return l
}

// UserResponse DTO
type UserResponse struct {
	ID                uint      `json:"id"`
	MemberCode        string    `json:"member_code"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	Role              string    `json:"role"`
	Level             string    `json:"level"`
	HelpReceivedCount int       `json:"help_received_count"`
	IsActivated       bool      `json:"is_activated"`
	IsBlocked         bool      `json:"is_blocked"`
	IsOnHold          bool      `json:"is_on_hold"`
	IsReceivingHeld   bool      `json:"is_receiving_held"`
	HelpVisibility    bool      `json:"help_visibility"`
	ReferralCount     int       `json:"referral_count"`
	CreatedAt         time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:                u.ID,
		MemberCode:        u.MemberCode,
		Username:          u.Username,
		Email:             u.Email,
		Role:              u.Role,
		Level:             u.Level,
		HelpReceivedCount: u.HelpReceivedCount,
		IsActivated:       u.IsActivated,
		IsBlocked:         u.IsBlocked,
		IsOnHold:          u.IsOnHold,
		IsReceivingHeld:   u.IsReceivingHeld,
		HelpVisibility:    u.HelpVisibility,
		ReferralCount:     u.ReferralCount,
		CreatedAt:         u.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&HelpRecord{},
		&UnblockPayment{},
	)
}
