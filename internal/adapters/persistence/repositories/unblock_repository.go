package repositories

import (
	"context"

	"peerhelp/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// unblockRepository implements UnblockPaymentRepository interface
type unblockRepository struct {
	db *gorm.DB
}

// NewUnblockPaymentRepository creates a new unblock payment repository
func NewUnblockPaymentRepository(db *gorm.DB) UnblockPaymentRepository {
	return &unblockRepository{db: db}
}

// Create records a submitted unblock payment
func (r *unblockRepository) Create(ctx context.Context, payment *models.UnblockPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// GetByID gets an unblock payment by ID
func (r *unblockRepository) GetByID(ctx context.Context, id uint) (*models.UnblockPayment, error) {
	var payment models.UnblockPayment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPendingByUser returns the user's pending submission for a checkpoint, if
// any. At most one pending payment per checkpoint is allowed.
func (r *unblockRepository) GetPendingByUser(ctx context.Context, userID uint, checkpoint int) (*models.UnblockPayment, error) {
	var payment models.UnblockPayment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("checkpoint = ?", checkpoint).
		Where("status = ?", models.UnblockStatusPending).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListPending lists pending submissions for admin review, oldest first
func (r *unblockRepository) ListPending(ctx context.Context, offset, limit int) ([]*models.UnblockPayment, int64, error) {
	var payments []*models.UnblockPayment
	var total int64

	query := r.db.WithContext(ctx).Model(&models.UnblockPayment{}).
		Where("status = ?", models.UnblockStatusPending)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("User").Order("created_at ASC").Offset(offset).Limit(limit).Find(&payments).Error
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// ListByUser lists the user's submissions, newest first
func (r *unblockRepository) ListByUser(ctx context.Context, userID uint) ([]*models.UnblockPayment, error) {
	var payments []*models.UnblockPayment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

// UpdateFields applies a partial update
func (r *unblockRepository) UpdateFields(ctx context.Context, tx *gorm.DB, id uint, fields map[string]interface{}) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Model(&models.UnblockPayment{}).Where("id = ?", id).Updates(fields).Error
}
