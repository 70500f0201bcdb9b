package services

import (
	"context"
	"errors"
	"log"
	"time"

	"peerhelp/internal/adapters/persistence/models"
	"peerhelp/internal/adapters/persistence/repositories"
	"peerhelp/internal/config"
	"peerhelp/internal/core/domain"
	"peerhelp/internal/pkg/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var validate = validator.New()

// HelpService coordinates the help transaction lifecycle.
//
// Every mutation follows the same shape: load the pair, check the guard
// outside, then re-apply the status precondition as a conditional UPDATE on
// both rows inside one DB transaction. Zero rows affected means another
// writer won the race. Events and metrics fire only after commit.
type HelpService struct {
	userRepo    repositories.UserRepository
	helpRepo    repositories.HelpRepository
	eligibility *EligibilityService
	selector    *SelectorService
	notify      *NotifyService
	cfg         *config.Config
}

// NewHelpService creates a new help service
func NewHelpService(
	userRepo repositories.UserRepository,
	helpRepo repositories.HelpRepository,
	eligibility *EligibilityService,
	selector *SelectorService,
	notify *NotifyService,
	cfg *config.Config,
) *HelpService {
	return &HelpService{
		userRepo:    userRepo,
		helpRepo:    helpRepo,
		eligibility: eligibility,
		selector:    selector,
		notify:      notify,
		cfg:         cfg,
	}
}

// ============================================================
// Assignment
// ============================================================

// AssignResponse returns the sender's view of the new transaction plus the
// receiver's payout details
type AssignResponse struct {
	Record   *models.HelpRecordResponse `json:"record"`
	Receiver *models.UserResponse       `json:"receiver"`
}

// Assign opens a new help transaction for the sender. The amount is fixed by
// the sender's level; the receiver comes from the selector. Slot capacity is
// verified again after the insert so two concurrent assigns cannot
// oversubscribe a receiver.
func (s *HelpService) Assign(ctx context.Context, senderID uint) (*AssignResponse, error) {
	sender, err := s.userRepo.GetByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	activeSend, err := s.helpRepo.CountActiveBySender(ctx, nil, senderID)
	if err != nil {
		return nil, err
	}
	if err := s.eligibility.CheckSender(sender, activeSend); err != nil {
		return nil, err
	}

	receiver, err := s.selector.Pick(ctx, senderID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	amount := domain.FixedAmount(sender.LevelValue())
	txID := uuid.New().String()
	expiresAt := now.Add(time.Duration(s.cfg.Help.DeadlineHours) * time.Hour)
	limit := int64(domain.HelpLimit(receiver.LevelValue()))

	base := models.HelpRecord{
		TxID:       txID,
		SenderID:   senderID,
		ReceiverID: receiver.ID,
		Amount:     amount,
		Status:     string(domain.StatusAssigned),
		AssignedAt: now,
		ExpiresAt:  expiresAt,
	}
	send, recv := base, base
	send.ViewRole = models.ViewRoleSend
	recv.ViewRole = models.ViewRoleReceive

	err = s.helpRepo.DB().Transaction(func(tx *gorm.DB) error {
		// Sender single-active rule, re-checked inside the transaction
		count, err := s.helpRepo.CountActiveBySender(ctx, tx, senderID)
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrDuplicateActiveTransaction
		}

		if err := s.helpRepo.CreatePair(ctx, tx, &send, &recv); err != nil {
			return err
		}

		// Count again with our row included. Over the limit means a
		// concurrent assign landed on the same receiver first.
		after, err := s.helpRepo.CountActiveByReceiver(ctx, tx, receiver.ID)
		if err != nil {
			return err
		}
		if after > limit {
			return domain.ErrConcurrencyConflict
		}

		// The override is one-shot: when it gated this selection it is
		// consumed in the same write that creates the pair.
		if receiver.ForceReceiveOverride && (receiver.IsOnHold || receiver.IsReceivingHeld) {
			if err := tx.Model(&models.User{}).
				Where("id = ? AND force_receive_override = ?", receiver.ID, true).
				Update("force_receive_override", false).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			metrics.AssignConflicts.Inc()
		}
		return nil, err
	}

	metrics.HelpAssigned.Inc()
	s.notify.EmitPair(domain.EventAssigned, txID, senderID, receiver.ID, map[string]interface{}{
		"amount":     amount,
		"expires_at": expiresAt,
	})
	log.Printf("✅ Help assigned: %s (sender=%d → receiver=%d, amount=%.2f)", txID, senderID, receiver.ID, amount)

	return &AssignResponse{
		Record:   send.ToResponse(),
		Receiver: receiver.ToResponse(),
	}, nil
}

// ============================================================
// Receiver actions
// ============================================================

// RequestPayment lets the receiver nudge the sender. Repeated requests on the
// same transaction are legal but gated by the cooldown.
func (s *HelpService) RequestPayment(ctx context.Context, txID string, receiverID uint) (*models.HelpRecordResponse, error) {
	record, err := s.loadForParty(ctx, txID, receiverID, models.ViewRoleReceive)
	if err != nil {
		return nil, err
	}

	status, err := record.StatusValue()
	if err != nil {
		return nil, err
	}
	if status.IsTerminal() {
		return nil, &domain.TerminalStateError{Status: status}
	}
	if !domain.CanTransition(status, domain.StatusPaymentRequested) {
		return nil, domain.ErrInvalidTransition
	}

	now := time.Now()
	cooldown := time.Duration(s.cfg.Help.CooldownHours) * time.Hour
	if record.LastPaymentRequestAt != nil {
		if remaining := cooldown - now.Sub(*record.LastPaymentRequestAt); remaining > 0 {
			return nil, &domain.CooldownError{Remaining: remaining}
		}
	}

	fields := map[string]interface{}{
		"status":                  string(domain.StatusPaymentRequested),
		"last_payment_request_at": now,
	}
	allowed := []string{string(domain.StatusAssigned), string(domain.StatusPaymentRequested)}
	if err := s.updatePair(ctx, txID, allowed, fields); err != nil {
		return nil, err
	}

	s.notify.EmitPair(domain.EventPaymentRequested, txID, record.SenderID, record.ReceiverID, nil)
	log.Printf("✅ Payment requested: %s (receiver=%d)", txID, receiverID)

	return s.refreshView(ctx, txID, models.ViewRoleReceive)
}

// ConfirmInput is empty today; confirmation needs no payload beyond identity
type ConfirmInput struct{}

// Confirm acknowledges receipt of the payment. Idempotent: confirming an
// already-confirmed transaction returns it unchanged. The receiver's counter,
// the status flip and any checkpoint hold commit atomically.
func (s *HelpService) Confirm(ctx context.Context, txID string, receiverID uint) (*models.HelpRecordResponse, error) {
	record, err := s.loadForParty(ctx, txID, receiverID, models.ViewRoleReceive)
	if err != nil {
		return nil, err
	}

	status, err := record.StatusValue()
	if err != nil {
		return nil, err
	}
	if status == domain.StatusConfirmed {
		return record.ToResponse(), nil
	}
	if status.IsTerminal() {
		return nil, &domain.TerminalStateError{Status: status}
	}
	if status != domain.StatusPaymentDone {
		return nil, domain.ErrInvalidTransition
	}

	receiver, err := s.userRepo.GetByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	// The override only widens assignment; a blocked receiver cannot settle
	// until the checkpoint is paid.
	if receiver.IsBlocked || receiver.IsOnHold {
		return nil, domain.ErrReceiverIncomeBlocked
	}

	blocked, err := s.settleConfirm(ctx, txID, receiver, string(domain.StatusConfirmed),
		[]string{string(domain.StatusPaymentDone)})
	if err != nil {
		return nil, err
	}

	metrics.HelpConfirmed.WithLabelValues("normal").Inc()
	s.notify.EmitPair(domain.EventConfirmed, txID, record.SenderID, record.ReceiverID, nil)
	if blocked {
		metrics.UsersBlocked.WithLabelValues("checkpoint").Inc()
		s.notify.Emit(domain.Event{Name: domain.EventBlocked, UserID: receiverID, TxID: txID})
	}
	log.Printf("✅ Help confirmed: %s (receiver=%d)", txID, receiverID)

	return s.refreshView(ctx, txID, models.ViewRoleReceive)
}

// DisputeInput carries the receiver's dispute reason
type DisputeInput struct {
	Reason string `json:"reason" validate:"required,min=5,max=255"`
}

// Dispute flags a submitted payment as not received. The sender resolves it
// by submitting proof again, which moves the pair back to PAYMENT_DONE.
func (s *HelpService) Dispute(ctx context.Context, txID string, receiverID uint, input *DisputeInput) (*models.HelpRecordResponse, error) {
	if err := validate.Struct(input); err != nil {
		return nil, &domain.ValidationError{Field: "reason", Reason: err.Error()}
	}

	record, err := s.loadForParty(ctx, txID, receiverID, models.ViewRoleReceive)
	if err != nil {
		return nil, err
	}

	status, err := record.StatusValue()
	if err != nil {
		return nil, err
	}
	if status.IsTerminal() {
		return nil, &domain.TerminalStateError{Status: status}
	}
	if !domain.CanTransition(status, domain.StatusDisputed) {
		return nil, domain.ErrInvalidTransition
	}

	fields := map[string]interface{}{
		"status":         string(domain.StatusDisputed),
		"dispute_reason": input.Reason,
	}
	if err := s.updatePair(ctx, txID, []string{string(domain.StatusPaymentDone)}, fields); err != nil {
		return nil, err
	}

	metrics.HelpDisputed.Inc()
	s.notify.EmitPair(domain.EventDisputed, txID, record.SenderID, record.ReceiverID, map[string]interface{}{
		"reason": input.Reason,
	})
	log.Printf("⚠️ Help disputed: %s (receiver=%d): %s", txID, receiverID, input.Reason)

	return s.refreshView(ctx, txID, models.ViewRoleReceive)
}

// ============================================================
// Sender actions
// ============================================================

// SubmitProofInput carries the sender's payment evidence
type SubmitProofInput struct {
	PaymentUTR        string `json:"payment_utr" validate:"required,min=6,max=50"`
	PaymentScreenshot string `json:"payment_screenshot" validate:"omitempty,max=255"`
	PaymentMethod     string `json:"payment_method" validate:"required,oneof=UPI BANK WALLET"`
}

// SubmitProof marks the payment as done. Legal from ASSIGNED,
// PAYMENT_REQUESTED and DISPUTED; resubmission after a dispute clears the
// dispute reason.
func (s *HelpService) SubmitProof(ctx context.Context, txID string, senderID uint, input *SubmitProofInput) (*models.HelpRecordResponse, error) {
	if err := validate.Struct(input); err != nil {
		return nil, &domain.ValidationError{Field: "payment proof", Reason: err.Error()}
	}

	record, err := s.loadForParty(ctx, txID, senderID, models.ViewRoleSend)
	if err != nil {
		return nil, err
	}

	status, err := record.StatusValue()
	if err != nil {
		return nil, err
	}
	if status.IsTerminal() {
		return nil, &domain.TerminalStateError{Status: status}
	}
	if !domain.CanTransition(status, domain.StatusPaymentDone) {
		return nil, domain.ErrInvalidTransition
	}

	now := time.Now()
	fields := map[string]interface{}{
		"status":             string(domain.StatusPaymentDone),
		"payment_utr":        input.PaymentUTR,
		"payment_method":     input.PaymentMethod,
		"proof_submitted_at": now,
		"dispute_reason":     nil,
	}
	if input.PaymentScreenshot != "" {
		fields["payment_screenshot"] = input.PaymentScreenshot
	}
	allowed := []string{
		string(domain.StatusAssigned),
		string(domain.StatusPaymentRequested),
		string(domain.StatusDisputed),
	}
	if err := s.updatePair(ctx, txID, allowed, fields); err != nil {
		return nil, err
	}

	s.notify.EmitPair(domain.EventPaymentDone, txID, record.SenderID, record.ReceiverID, map[string]interface{}{
		"payment_utr": input.PaymentUTR,
	})
	log.Printf("✅ Payment proof submitted: %s (sender=%d, utr=%s)", txID, senderID, input.PaymentUTR)

	return s.refreshView(ctx, txID, models.ViewRoleSend)
}

// ============================================================
// Admin actions
// ============================================================

// Cancel voids an open transaction. Admin only; the receiver's counter never
// moves.
func (s *HelpService) Cancel(ctx context.Context, txID string, adminID uint) (*models.HelpRecordResponse, error) {
	record, _, err := s.loadPair(ctx, txID)
	if err != nil {
		return nil, err
	}

	status, err := record.StatusValue()
	if err != nil {
		return nil, err
	}
	if status.IsTerminal() {
		return nil, &domain.TerminalStateError{Status: status}
	}

	fields := map[string]interface{}{"status": string(domain.StatusCancelled)}
	if err := s.updatePair(ctx, txID, domain.NonTerminalStatuses(), fields); err != nil {
		return nil, err
	}

	metrics.HelpCancelled.Inc()
	log.Printf("🗑️ Help cancelled: %s (admin=%d)", txID, adminID)
	return s.refreshView(ctx, txID, models.ViewRoleSend)
}

// ForceConfirm settles a stuck transaction administratively. Counts toward
// the receiver's quota like a normal confirm, but skips the income-block
// guard: an admin override settles even a blocked receiver's transaction.
func (s *HelpService) ForceConfirm(ctx context.Context, txID string, adminID uint) (*models.HelpRecordResponse, error) {
	record, _, err := s.loadPair(ctx, txID)
	if err != nil {
		return nil, err
	}

	status, err := record.StatusValue()
	if err != nil {
		return nil, err
	}
	if status.IsTerminal() {
		return nil, &domain.TerminalStateError{Status: status}
	}

	receiver, err := s.userRepo.GetByID(ctx, record.ReceiverID)
	if err != nil {
		return nil, err
	}

	blocked, err := s.settleConfirm(ctx, txID, receiver, string(domain.StatusForceConfirmed),
		domain.NonTerminalStatuses())
	if err != nil {
		return nil, err
	}

	metrics.HelpConfirmed.WithLabelValues("forced").Inc()
	s.notify.EmitPair(domain.EventConfirmed, txID, record.SenderID, record.ReceiverID, map[string]interface{}{
		"forced": true,
	})
	if blocked {
		metrics.UsersBlocked.WithLabelValues("checkpoint").Inc()
		s.notify.Emit(domain.Event{Name: domain.EventBlocked, UserID: receiver.ID, TxID: txID})
	}
	log.Printf("✅ Help force-confirmed: %s (admin=%d)", txID, adminID)

	return s.refreshView(ctx, txID, models.ViewRoleSend)
}

// ============================================================
// Queries
// ============================================================

// GetForUser returns the caller's view of a transaction. Admins may read
// either view through GetPair instead.
func (s *HelpService) GetForUser(ctx context.Context, txID string, userID uint) (*models.HelpRecordResponse, error) {
	send, recv, err := s.loadPair(ctx, txID)
	if err != nil {
		return nil, err
	}
	switch userID {
	case send.SenderID:
		return send.ToResponse(), nil
	case recv.ReceiverID:
		return recv.ToResponse(), nil
	}
	return nil, domain.ErrForbidden
}

// GetPair returns both views of a transaction (admin)
func (s *HelpService) GetPair(ctx context.Context, txID string) (send, recv *models.HelpRecordResponse, err error) {
	sendRec, recvRec, err := s.loadPair(ctx, txID)
	if err != nil {
		return nil, nil, err
	}
	return sendRec.ToResponse(), recvRec.ToResponse(), nil
}

// HistoryInput represents a history listing request
type HistoryInput struct {
	Page   int
	Limit  int
	Status string
}

// HistoryOutput represents a paginated history listing
type HistoryOutput struct {
	Records    []*models.HelpRecordResponse `json:"records"`
	Total      int64                        `json:"total"`
	Page       int                          `json:"page"`
	Limit      int                          `json:"limit"`
	TotalPages int                          `json:"total_pages"`
}

// ListSent returns the user's sent transactions, newest first
func (s *HelpService) ListSent(ctx context.Context, userID uint, input *HistoryInput) (*HistoryOutput, error) {
	return s.listHistory(ctx, userID, input, s.helpRepo.ListBySender)
}

// ListReceived returns the user's received transactions, newest first
func (s *HelpService) ListReceived(ctx context.Context, userID uint, input *HistoryInput) (*HistoryOutput, error) {
	return s.listHistory(ctx, userID, input, s.helpRepo.ListByReceiver)
}

type listFn func(ctx context.Context, userID uint, status string, offset, limit int) ([]*models.HelpRecord, int64, error)

func (s *HelpService) listHistory(ctx context.Context, userID uint, input *HistoryInput, list listFn) (*HistoryOutput, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.Limit < 1 {
		input.Limit = 10
	}
	if input.Limit > 100 {
		input.Limit = 100
	}
	if input.Status != "" {
		if _, err := domain.ParseHelpStatus(input.Status); err != nil {
			return nil, &domain.ValidationError{Field: "status", Reason: "unknown status filter"}
		}
	}

	offset := (input.Page - 1) * input.Limit
	records, total, err := list(ctx, userID, input.Status, offset, input.Limit)
	if err != nil {
		return nil, err
	}

	responses := make([]*models.HelpRecordResponse, len(records))
	for i, r := range records {
		responses[i] = r.ToResponse()
	}

	totalPages := int(total) / input.Limit
	if int(total)%input.Limit > 0 {
		totalPages++
	}

	return &HistoryOutput{
		Records:    responses,
		Total:      total,
		Page:       input.Page,
		Limit:      input.Limit,
		TotalPages: totalPages,
	}, nil
}

// ============================================================
// Internals
// ============================================================

// loadPair fetches both rows and rejects a diverged pair outright
func (s *HelpService) loadPair(ctx context.Context, txID string) (send, recv *models.HelpRecord, err error) {
	send, recv, err = s.helpRepo.GetPair(ctx, txID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrTxNotFound
		}
		return nil, nil, err
	}
	if send.Status != recv.Status || send.Amount != recv.Amount ||
		!strPtrEqual(send.PaymentUTR, recv.PaymentUTR) ||
		!strPtrEqual(send.PaymentScreenshot, recv.PaymentScreenshot) ||
		!timePtrEqual(send.ProofSubmittedAt, recv.ProofSubmittedAt) {
		return nil, nil, domain.ErrPairDiverged
	}
	return send, recv, nil
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// loadForParty fetches the caller's view and verifies ownership
func (s *HelpService) loadForParty(ctx context.Context, txID string, userID uint, viewRole string) (*models.HelpRecord, error) {
	record, err := s.helpRepo.GetView(ctx, txID, viewRole)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTxNotFound
		}
		return nil, err
	}
	owner := record.SenderID
	if viewRole == models.ViewRoleReceive {
		owner = record.ReceiverID
	}
	if owner != userID {
		return nil, domain.ErrForbidden
	}
	return record, nil
}

// updatePair runs the conditional pair update in its own DB transaction and
// translates a lost race into ErrConcurrencyConflict
func (s *HelpService) updatePair(ctx context.Context, txID string, allowed []string, fields map[string]interface{}) error {
	return s.helpRepo.DB().Transaction(func(tx *gorm.DB) error {
		affected, err := s.helpRepo.UpdatePairIf(ctx, tx, txID, allowed, fields)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrConcurrencyConflict
		}
		if affected != 2 {
			return domain.ErrPairDiverged
		}
		return nil
	})
}

// settleConfirm flips the pair to a confirmed status, bumps the receiver's
// counter and applies any checkpoint hold, all in one DB transaction.
// Returns whether a new income block was applied.
func (s *HelpService) settleConfirm(ctx context.Context, txID string, receiver *models.User, newStatus string, allowed []string) (bool, error) {
	now := time.Now()
	newCount := receiver.HelpReceivedCount + 1
	level := receiver.LevelValue()

	checkpoint, hitCheckpoint := s.eligibility.BlockCheckpointHit(level, newCount)
	quotaExhausted := newCount >= domain.HelpQuota(level)

	err := s.helpRepo.DB().Transaction(func(tx *gorm.DB) error {
		affected, err := s.helpRepo.UpdatePairIf(ctx, tx, txID, allowed, map[string]interface{}{
			"status":       newStatus,
			"confirmed_at": now,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrConcurrencyConflict
		}
		if affected != 2 {
			return domain.ErrPairDiverged
		}

		userFields := map[string]interface{}{
			"help_received_count": gorm.Expr("help_received_count + ?", 1),
		}
		if hitCheckpoint {
			userFields["is_on_hold"] = true
			userFields["is_receiving_held"] = true
		} else if quotaExhausted {
			userFields["is_receiving_held"] = true
		}
		return tx.Model(&models.User{}).Where("id = ?", receiver.ID).Updates(userFields).Error
	})
	if err != nil {
		return false, err
	}

	if hitCheckpoint {
		log.Printf("🔒 Income block applied: user=%d level=%s checkpoint=%d requires %s %.2f",
			receiver.ID, level, newCount, checkpoint.Action.Type, checkpoint.Action.Amount)
	}
	return hitCheckpoint, nil
}

// refreshView reloads one view after a mutation
func (s *HelpService) refreshView(ctx context.Context, txID, viewRole string) (*models.HelpRecordResponse, error) {
	record, err := s.helpRepo.GetView(ctx, txID, viewRole)
	if err != nil {
		return nil, err
	}
	return record.ToResponse(), nil
}
