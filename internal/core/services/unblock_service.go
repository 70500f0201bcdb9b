package services

import (
	"context"
	"errors"
	"log"
	"time"

	"peerhelp/internal/adapters/persistence/models"
	"peerhelp/internal/adapters/persistence/repositories"
	"peerhelp/internal/core/domain"
	"peerhelp/internal/pkg/metrics"

	"gorm.io/gorm"
)

// Unblock errors
var (
	ErrUnblockPending    = errors.New("an unblock payment is already pending for this checkpoint")
	ErrUnblockNotPending = errors.New("unblock payment is not pending")
	ErrWrongUnblockType  = errors.New("payment type does not match the checkpoint")
)

// UnblockService handles the payments that lift income blocks. Submissions
// only record intent; nothing on the user changes until an admin confirms.
type UnblockService struct {
	userRepo    repositories.UserRepository
	unblockRepo repositories.UnblockPaymentRepository
	helpRepo    repositories.HelpRepository
	notify      *NotifyService
}

// NewUnblockService creates a new unblock service
func NewUnblockService(
	userRepo repositories.UserRepository,
	unblockRepo repositories.UnblockPaymentRepository,
	helpRepo repositories.HelpRepository,
	notify *NotifyService,
) *UnblockService {
	return &UnblockService{
		userRepo:    userRepo,
		unblockRepo: unblockRepo,
		helpRepo:    helpRepo,
		notify:      notify,
	}
}

// SubmitInput represents an unblock payment submission
type SubmitInput struct {
	Type     string `json:"type" validate:"required,oneof=UPGRADE SPONSOR"`
	ProofRef string `json:"proof_ref" validate:"required,min=6,max=255"`
}

// Submit records an unblock payment for the checkpoint the user is stuck at.
// The checkpoint, and with it the required type and amount, is derived from
// the user's level and counter, never from client input.
func (s *UnblockService) Submit(ctx context.Context, userID uint, input *SubmitInput) (*models.UnblockPayment, error) {
	if err := validate.Struct(input); err != nil {
		return nil, &domain.ValidationError{Field: "unblock payment", Reason: err.Error()}
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsOnHold {
		return nil, domain.ErrNotIncomeBlocked
	}

	checkpoint, ok := domain.CheckpointAt(user.LevelValue(), user.HelpReceivedCount)
	if !ok {
		return nil, domain.ErrNotIncomeBlocked
	}
	if string(checkpoint.Action.Type) != input.Type {
		return nil, ErrWrongUnblockType
	}

	if _, err := s.unblockRepo.GetPendingByUser(ctx, userID, checkpoint.Count); err == nil {
		return nil, ErrUnblockPending
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	payment := &models.UnblockPayment{
		UserID:     userID,
		Type:       input.Type,
		Amount:     checkpoint.Action.Amount,
		Checkpoint: checkpoint.Count,
		ProofRef:   input.ProofRef,
		Status:     models.UnblockStatusPending,
	}
	if err := s.unblockRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	log.Printf("✅ Unblock payment submitted: user=%d type=%s amount=%.2f checkpoint=%d",
		userID, payment.Type, payment.Amount, payment.Checkpoint)
	return payment, nil
}

// Confirm approves a pending unblock payment and lifts the block. An UPGRADE
// payment additionally advances the user one level and resets the help
// counter, so the new level's quota starts from zero.
func (s *UnblockService) Confirm(ctx context.Context, paymentID uint, adminID uint) (*models.UnblockPayment, error) {
	payment, err := s.unblockRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if payment.Status != models.UnblockStatusPending {
		return nil, ErrUnblockNotPending
	}

	user, err := s.userRepo.GetByID(ctx, payment.UserID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.helpRepo.DB().Transaction(func(tx *gorm.DB) error {
		if err := s.unblockRepo.UpdateFields(ctx, tx, payment.ID, map[string]interface{}{
			"status":       models.UnblockStatusConfirmed,
			"confirmed_by": adminID,
			"confirmed_at": now,
		}); err != nil {
			return err
		}

		userFields := map[string]interface{}{
			"is_on_hold":        false,
			"is_receiving_held": false,
		}
		if payment.Type == string(domain.UnblockUpgrade) {
			if next, ok := domain.NextLevel(user.LevelValue()); ok {
				userFields["level"] = string(next)
				userFields["help_received_count"] = 0
			}
		}
		return tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(userFields).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.UsersUnblocked.Inc()
	s.notify.Emit(domain.Event{Name: domain.EventUnblocked, UserID: user.ID})
	log.Printf("✅ Unblock payment confirmed: payment=%d user=%d (admin=%d)", payment.ID, user.ID, adminID)

	return s.unblockRepo.GetByID(ctx, paymentID)
}

// Reject declines a pending unblock payment; the block stays in place
func (s *UnblockService) Reject(ctx context.Context, paymentID uint, adminID uint) (*models.UnblockPayment, error) {
	payment, err := s.unblockRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if payment.Status != models.UnblockStatusPending {
		return nil, ErrUnblockNotPending
	}

	now := time.Now()
	if err := s.unblockRepo.UpdateFields(ctx, nil, payment.ID, map[string]interface{}{
		"status":       models.UnblockStatusRejected,
		"confirmed_by": adminID,
		"confirmed_at": now,
	}); err != nil {
		return nil, err
	}

	log.Printf("🗑️ Unblock payment rejected: payment=%d user=%d (admin=%d)", payment.ID, payment.UserID, adminID)
	return s.unblockRepo.GetByID(ctx, paymentID)
}

// ListPending lists pending submissions for admin review
func (s *UnblockService) ListPending(ctx context.Context, page, limit int) ([]*models.UnblockPayment, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return s.unblockRepo.ListPending(ctx, (page-1)*limit, limit)
}

// ListMine lists the caller's submissions
func (s *UnblockService) ListMine(ctx context.Context, userID uint) ([]*models.UnblockPayment, error) {
	return s.unblockRepo.ListByUser(ctx, userID)
}
