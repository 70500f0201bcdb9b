package models

import (
	"time"

	"peerhelp/internal/core/domain"
)

// ============================================================
// Help Transaction Tables
// ============================================================

// View roles for a help record pair. One logical transaction is stored as
// two rows sharing a TxID: the sender's view and the receiver's view. Both
// rows must always carry identical status, amount and payment proof; every
// write path updates the pair inside one DB transaction.
const (
	ViewRoleSend    = "SEND"
	ViewRoleReceive = "RECEIVE"
)

// HelpRecord is one view of a help transaction
type HelpRecord struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	TxID                 string     `gorm:"size:36;not null;index:idx_tx_view,unique,priority:1" json:"tx_id"`
	ViewRole             string     `gorm:"size:8;not null;index:idx_tx_view,unique,priority:2" json:"view_role"`
	SenderID             uint       `gorm:"not null;index" json:"sender_id"`
	ReceiverID           uint       `gorm:"not null;index" json:"receiver_id"`
	Amount               float64    `gorm:"type:decimal(15,2);not null" json:"amount"`
	Status               string     `gorm:"size:20;not null;default:'ASSIGNED';index" json:"status"`
	AssignedAt           time.Time  `gorm:"not null" json:"assigned_at"`
	ExpiresAt            time.Time  `gorm:"not null;index" json:"expires_at"`
	PaymentUTR           *string    `gorm:"size:50" json:"payment_utr,omitempty"`
	PaymentScreenshot    *string    `gorm:"size:255" json:"payment_screenshot,omitempty"`
	PaymentMethod        *string    `gorm:"size:30" json:"payment_method,omitempty"`
	ProofSubmittedAt     *time.Time `json:"proof_submitted_at,omitempty"`
	ConfirmedAt          *time.Time `json:"confirmed_at,omitempty"`
	DisputeReason        *string    `gorm:"size:255" json:"dispute_reason,omitempty"`
	LastPaymentRequestAt *time.Time `json:"last_payment_request_at,omitempty"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Sender   *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver *User `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
}

func (HelpRecord) TableName() string {
	return "help_records"
}

// StatusValue parses the stored status. Stored values come from the closed
// enum; an error here means corrupt data, not bad input.
func (h *HelpRecord) StatusValue() (domain.HelpStatus, error) {
	return domain.ParseHelpStatus(h.Status)
}

// IsExpired reports whether the payment deadline has elapsed
func (h *HelpRecord) IsExpired(now time.Time) bool {
	return now.After(h.ExpiresAt)
}

// HelpRecordResponse DTO
type HelpRecordResponse struct {
	TxID                 string     `json:"tx_id"`
	ViewRole             string     `json:"view_role"`
	SenderID             uint       `json:"sender_id"`
	ReceiverID           uint       `json:"receiver_id"`
	Amount               float64    `json:"amount"`
	Status               string     `json:"status"`
	AssignedAt           time.Time  `json:"assigned_at"`
	ExpiresAt            time.Time  `json:"expires_at"`
	PaymentUTR           *string    `json:"payment_utr,omitempty"`
	PaymentScreenshot    *string    `json:"payment_screenshot,omitempty"`
	PaymentMethod        *string    `json:"payment_method,omitempty"`
	ProofSubmittedAt     *time.Time `json:"proof_submitted_at,omitempty"`
	ConfirmedAt          *time.Time `json:"confirmed_at,omitempty"`
	DisputeReason        *string    `json:"dispute_reason,omitempty"`
	LastPaymentRequestAt *time.Time `json:"last_payment_request_at,omitempty"`
}

func (h *HelpRecord) ToResponse() *HelpRecordResponse {
	return &HelpRecordResponse{
		TxID:                 h.TxID,
		ViewRole:             h.ViewRole,
		SenderID:             h.SenderID,
		ReceiverID:           h.ReceiverID,
		Amount:               h.Amount,
		Status:               h.Status,
		AssignedAt:           h.AssignedAt,
		ExpiresAt:            h.ExpiresAt,
		PaymentUTR:           h.PaymentUTR,
		PaymentScreenshot:    h.PaymentScreenshot,
		PaymentMethod:        h.PaymentMethod,
		ProofSubmittedAt:     h.ProofSubmittedAt,
		ConfirmedAt:          h.ConfirmedAt,
		DisputeReason:        h.DisputeReason,
		LastPaymentRequestAt: h.LastPaymentRequestAt,
	}
}

// ============================================================
// Unblock Payments
// ============================================================

// Unblock payment statuses
const (
	UnblockStatusPending   = "PENDING"
	UnblockStatusConfirmed = "CONFIRMED"
	UnblockStatusRejected  = "REJECTED"
)

// UnblockPayment records an upgrade or sponsor payment submitted to lift an
// income block. Only admin confirmation mutates the user's holds/level.
type UnblockPayment struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	Type        string     `gorm:"size:10;not null" json:"type"`
	Amount      float64    `gorm:"type:decimal(15,2);not null" json:"amount"`
	Checkpoint  int        `gorm:"not null" json:"checkpoint"`
	ProofRef    string     `gorm:"size:255" json:"proof_ref"`
	Status      string     `gorm:"size:10;not null;default:'PENDING';index" json:"status"`
	ConfirmedBy *uint      `json:"confirmed_by,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (UnblockPayment) TableName() string {
	return "unblock_payments"
}
