package services

import (
	"context"
	"testing"
	"time"

	"peerhelp/internal/adapters/persistence/models"
	"peerhelp/internal/core/domain"

	"github.com/stretchr/testify/require"
)

func TestAssignCreatesConsistentPair(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	receiver := seedUser(t, env.db, "receiver", domain.LevelStar)

	result, err := env.help.Assign(ctx, sender.ID)
	require.NoError(t, err)
	require.Equal(t, receiver.ID, result.Receiver.ID)
	require.Equal(t, 300.0, result.Record.Amount)
	require.Equal(t, string(domain.StatusAssigned), result.Record.Status)
	require.True(t, result.Record.ExpiresAt.After(time.Now().Add(23*time.Hour)))

	send, recv := pairStatuses(t, env.db, result.Record.TxID)
	require.Equal(t, string(domain.StatusAssigned), send)
	require.Equal(t, string(domain.StatusAssigned), recv)
}

func TestAssignAmountFollowsSenderLevel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "goldsender", domain.LevelGold)
	seedUser(t, env.db, "receiver", domain.LevelStar)

	result, err := env.help.Assign(ctx, sender.ID)
	require.NoError(t, err)
	require.Equal(t, 2000.0, result.Record.Amount)
}

func TestAssignRejectsSecondActiveTransaction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	seedUser(t, env.db, "r1", domain.LevelStar)
	seedUser(t, env.db, "r2", domain.LevelStar)

	_, err := env.help.Assign(ctx, sender.ID)
	require.NoError(t, err)

	_, err = env.help.Assign(ctx, sender.ID)
	require.ErrorIs(t, err, domain.ErrDuplicateActiveTransaction)
}

func TestAssignRejectsBlockedSender(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar, func(u *models.User) {
		u.IsBlocked = true
		u.BlockReason = "payment not completed within deadline"
	})
	seedUser(t, env.db, "receiver", domain.LevelStar)

	_, err := env.help.Assign(ctx, sender.ID)
	require.ErrorIs(t, err, domain.ErrIneligibleSender)
}

func TestAssignNoEligibleReceiver(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)

	_, err := env.help.Assign(ctx, sender.ID)
	require.ErrorIs(t, err, domain.ErrNoEligibleReceiver)
}

func TestAssignRejectsIncomeBlockedSender(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// SILVER held at the upgrade checkpoint cannot open new transactions
	sender := seedUser(t, env.db, "sender", domain.LevelSilver, func(u *models.User) {
		u.HelpReceivedCount = 4
		u.IsOnHold = true
		u.IsReceivingHeld = true
	})
	seedUser(t, env.db, "receiver", domain.LevelStar)

	_, err := env.help.Assign(ctx, sender.ID)
	require.ErrorIs(t, err, domain.ErrIneligibleSender)
}

func TestAssignConsumesForceReceiveOverride(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar, func(u *models.User) {
		u.HelpVisibility = false
	})
	held := seedUser(t, env.db, "held", domain.LevelSilver, func(u *models.User) {
		u.IsOnHold = true
		u.IsReceivingHeld = true
		u.ForceReceiveOverride = true
		u.HelpReceivedCount = 4
	})

	result, err := env.help.Assign(ctx, sender.ID)
	require.NoError(t, err)
	require.Equal(t, held.ID, result.Receiver.ID)

	// The override is spent by the assignment it gated
	require.False(t, reloadUser(t, env.db, held.ID).ForceReceiveOverride)

	// Without it the held receiver drops back out of the pool
	other := seedUser(t, env.db, "other", domain.LevelStar)
	_, err = env.help.Assign(ctx, other.ID)
	require.ErrorIs(t, err, domain.ErrNoEligibleReceiver)
}

func TestDivergedPairIsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	receiver := seedUser(t, env.db, "receiver", domain.LevelStar)
	txID := seedPair(t, env.db, sender.ID, receiver.ID, domain.StatusPaymentDone, time.Now().Add(time.Hour))

	// Proof landing on only one view means the pair write was torn
	require.NoError(t, env.db.Model(&models.HelpRecord{}).
		Where("tx_id = ? AND view_role = ?", txID, models.ViewRoleSend).
		Update("payment_utr", "UTR1234567890").Error)

	_, err := env.help.GetForUser(ctx, txID, sender.ID)
	require.ErrorIs(t, err, domain.ErrPairDiverged)
}

func TestFullLifecycleToConfirmed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	receiver := seedUser(t, env.db, "receiver", domain.LevelStar)

	result, err := env.help.Assign(ctx, sender.ID)
	require.NoError(t, err)
	txID := result.Record.TxID

	// Receiver nudges the sender
	record, err := env.help.RequestPayment(ctx, txID, receiver.ID)
	require.NoError(t, err)
	require.Equal(t, string(domain.StatusPaymentRequested), record.Status)
	require.NotNil(t, record.LastPaymentRequestAt)

	// Sender pays and submits proof
	record, err = env.help.SubmitProof(ctx, txID, sender.ID, &SubmitProofInput{
		PaymentUTR:    "UTR1234567890",
		PaymentMethod: "UPI",
	})
	require.NoError(t, err)
	require.Equal(t, string(domain.StatusPaymentDone), record.Status)
	require.NotNil(t, record.ProofSubmittedAt)

	// Receiver confirms
	record, err = env.help.Confirm(ctx, txID, receiver.ID)
	require.NoError(t, err)
	require.Equal(t, string(domain.StatusConfirmed), record.Status)
	require.NotNil(t, record.ConfirmedAt)

	// Both views moved together and the counter advanced
	send, recv := pairStatuses(t, env.db, txID)
	require.Equal(t, send, recv)
	require.Equal(t, 1, reloadUser(t, env.db, receiver.ID).HelpReceivedCount)
}

func TestConfirmIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	receiver := seedUser(t, env.db, "receiver", domain.LevelStar)
	txID := seedPair(t, env.db, sender.ID, receiver.ID, domain.StatusPaymentDone, time.Now().Add(time.Hour))

	_, err := env.help.Confirm(ctx, txID, receiver.ID)
	require.NoError(t, err)
	require.Equal(t, 1, reloadUser(t, env.db, receiver.ID).HelpReceivedCount)

	// Confirming again succeeds without touching the counter
	record, err := env.help.Confirm(ctx, txID, receiver.ID)
	require.NoError(t, err)
	require.Equal(t, string(domain.StatusConfirmed), record.Status)
	require.Equal(t, 1, reloadUser(t, env.db, receiver.ID).HelpReceivedCount)
}

func TestConfirmRequiresPaymentDone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	receiver := seedUser(t, env.db, "receiver", domain.LevelStar)
	txID := seedPair(t, env.db, sender.ID, receiver.ID, domain.StatusAssigned, time.Now().Add(time.Hour))

	_, err := env.help.Confirm(ctx, txID, receiver.ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	require.Equal(t, 0, reloadUser(t, env.db, receiver.ID).HelpReceivedCount)
}

func TestConfirmRejectsStranger(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	receiver := seedUser(t, env.db, "receiver", domain.LevelStar)
	stranger := seedUser(t, env.db, "stranger", domain.LevelStar)
	txID := seedPair(t, env.db, sender.ID, receiver.ID, domain.StatusPaymentDone, time.Now().Add(time.Hour))

	_, err := env.help.Confirm(ctx, txID, stranger.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestConfirmBlockedReceiver(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	receiver := seedUser(t, env.db, "receiver", domain.LevelSilver, func(u *models.User) {
		u.IsOnHold = true
		u.IsReceivingHeld = true
		u.HelpReceivedCount = 4
	})
	txID := seedPair(t, env.db, sender.ID, receiver.ID, domain.StatusPaymentDone, time.Now().Add(time.Hour))

	_, err := env.help.Confirm(ctx, txID, receiver.ID)
	require.ErrorIs(t, err, domain.ErrReceiverIncomeBlocked)

	// The pair stays where it was
	send, _ := pairStatuses(t, env.db, txID)
	require.Equal(t, string(domain.StatusPaymentDone), send)
}

func TestConfirmRejectsHeldReceiverDespiteOverride(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	// The override widens assignment only; settling still needs the
	// checkpoint paid first
	receiver := seedUser(t, env.db, "receiver", domain.LevelSilver, func(u *models.User) {
		u.IsOnHold = true
		u.IsReceivingHeld = true
		u.ForceReceiveOverride = true
		u.HelpReceivedCount = 4
	})
	txID := seedPair(t, env.db, sender.ID, receiver.ID, domain.StatusPaymentDone, time.Now().Add(time.Hour))

	_, err := env.help.Confirm(ctx, txID, receiver.ID)
	require.ErrorIs(t, err, domain.ErrReceiverIncomeBlocked)

	send, _ := pairStatuses(t, env.db, txID)
	require.Equal(t, string(domain.StatusPaymentDone), send)
	require.Equal(t, 4, reloadUser(t, env.db, receiver.ID).HelpReceivedCount)
}

func TestConfirmAppliesCheckpointHold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	// SILVER blocks at the 4th confirmed receipt (upgrade checkpoint)
	receiver := seedUser(t, env.db, "receiver", domain.LevelSilver, func(u *models.User) {
		u.HelpReceivedCount = 3
	})
	txID := seedPair(t, env.db, sender.ID, receiver.ID, domain.StatusPaymentDone, time.Now().Add(time.Hour))

	_, err := env.help.Confirm(ctx, txID, receiver.ID)
	require.NoError(t, err)

	after := reloadUser(t, env.db, receiver.ID)
	require.Equal(t, 4, after.HelpReceivedCount)
	require.True(t, after.IsOnHold)
	require.True(t, after.IsReceivingHeld)
	require.False(t, after.IsBlocked, "checkpoint hold is not an admin/timeout block")
}

func TestConfirmQuotaExhaustionHoldsReceivingOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	// STAR quota is 3 and STAR has no checkpoints
	receiver := seedUser(t, env.db, "receiver", domain.LevelStar, func(u *models.User) {
		u.HelpReceivedCount = 2
	})
	txID := seedPair(t, env.db, sender.ID, receiver.ID, domain.StatusPaymentDone, time.Now().Add(time.Hour))

	_, err := env.help.Confirm(ctx, txID, receiver.ID)
	require.NoError(t, err)

	after := reloadUser(t, env.db, receiver.ID)
	require.Equal(t, 3, after.HelpReceivedCount)
	require.True(t, after.IsReceivingHeld)
	require.False(t, after.IsOnHold, "quota exhaustion has no checkpoint to settle")
}

func TestRequestPaymentCooldown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	receiver := seedUser(t, env.db, "receiver", domain.LevelStar)
	txID := seedPair(t, env.db, sender.ID, receiver.ID, domain.StatusAssigned, time.Now().Add(time.Hour))

	_, err := env.help.RequestPayment(ctx, txID, receiver.ID)
	require.NoError(t, err)

	// Immediately again: cooldown blocks it and reports the remaining wait
	_, err = env.help.RequestPayment(ctx, txID, receiver.ID)
	require.ErrorIs(t, err, domain.ErrCooldownActive)
	var cooldown *domain.CooldownError
	require.ErrorAs(t, err, &cooldown)
	require.Greater(t, cooldown.Remaining, time.Duration(0))

	// Once the cooldown has elapsed the request goes through again
	stale := time.Now().Add(-3 * time.Hour)
	require.NoError(t, env.db.Model(&models.HelpRecord{}).
		Where("tx_id = ?", txID).
		Update("last_payment_request_at", stale).Error)

	record, err := env.help.RequestPayment(ctx, txID, receiver.ID)
	require.NoError(t, err)
	require.Equal(t, string(domain.StatusPaymentRequested), record.Status)
}

func TestDisputeAndResubmitLoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	receiver := seedUser(t, env.db, "receiver", domain.LevelStar)
	txID := seedPair(t, env.db, sender.ID, receiver.ID, domain.StatusPaymentDone, time.Now().Add(time.Hour))

	record, err := env.help.Dispute(ctx, txID, receiver.ID, &DisputeInput{Reason: "payment never arrived"})
	require.NoError(t, err)
	require.Equal(t, string(domain.StatusDisputed), record.Status)
	require.NotNil(t, record.DisputeReason)

	// Disputing twice is illegal, DISPUTED only goes back through PAYMENT_DONE
	_, err = env.help.Dispute(ctx, txID, receiver.ID, &DisputeInput{Reason: "still nothing"})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Sender resubmits proof, clearing the dispute
	record, err = env.help.SubmitProof(ctx, txID, sender.ID, &SubmitProofInput{
		PaymentUTR:    "UTR9876543210",
		PaymentMethod: "BANK",
	})
	require.NoError(t, err)
	require.Equal(t, string(domain.StatusPaymentDone), record.Status)
	require.Nil(t, record.DisputeReason)

	// And the receiver can now confirm
	record, err = env.help.Confirm(ctx, txID, receiver.ID)
	require.NoError(t, err)
	require.Equal(t, string(domain.StatusConfirmed), record.Status)
}

func TestDisputeRequiresReason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	receiver := seedUser(t, env.db, "receiver", domain.LevelStar)
	txID := seedPair(t, env.db, sender.ID, receiver.ID, domain.StatusPaymentDone, time.Now().Add(time.Hour))

	_, err := env.help.Dispute(ctx, txID, receiver.ID, &DisputeInput{Reason: "nah"})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestSubmitProofValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	receiver := seedUser(t, env.db, "receiver", domain.LevelStar)
	txID := seedPair(t, env.db, sender.ID, receiver.ID, domain.StatusAssigned, time.Now().Add(time.Hour))

	_, err := env.help.SubmitProof(ctx, txID, sender.ID, &SubmitProofInput{
		PaymentUTR:    "123", // too short
		PaymentMethod: "UPI",
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.help.SubmitProof(ctx, txID, sender.ID, &SubmitProofInput{
		PaymentUTR:    "UTR1234567890",
		PaymentMethod: "CASH", // not an accepted method
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestCancelAndTerminalGuard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	receiver := seedUser(t, env.db, "receiver", domain.LevelStar)
	admin := seedUser(t, env.db, "admin", domain.LevelStar, func(u *models.User) { u.Role = "ADMIN" })
	txID := seedPair(t, env.db, sender.ID, receiver.ID, domain.StatusPaymentRequested, time.Now().Add(time.Hour))

	record, err := env.help.Cancel(ctx, txID, admin.ID)
	require.NoError(t, err)
	require.Equal(t, string(domain.StatusCancelled), record.Status)

	// Every later mutation bounces off the terminal state
	_, err = env.help.RequestPayment(ctx, txID, receiver.ID)
	require.ErrorIs(t, err, domain.ErrTerminalState)
	_, err = env.help.Confirm(ctx, txID, receiver.ID)
	require.ErrorIs(t, err, domain.ErrTerminalState)
	_, err = env.help.Cancel(ctx, txID, admin.ID)
	require.ErrorIs(t, err, domain.ErrTerminalState)

	// Cancel never moves the receiver's counter
	require.Equal(t, 0, reloadUser(t, env.db, receiver.ID).HelpReceivedCount)
}

func TestForceConfirmSettlesFromAnyOpenState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	receiver := seedUser(t, env.db, "receiver", domain.LevelStar)
	admin := seedUser(t, env.db, "admin", domain.LevelStar, func(u *models.User) { u.Role = "ADMIN" })
	txID := seedPair(t, env.db, sender.ID, receiver.ID, domain.StatusAssigned, time.Now().Add(time.Hour))

	record, err := env.help.ForceConfirm(ctx, txID, admin.ID)
	require.NoError(t, err)
	require.Equal(t, string(domain.StatusForceConfirmed), record.Status)

	// Counts toward the quota like a normal confirm
	require.Equal(t, 1, reloadUser(t, env.db, receiver.ID).HelpReceivedCount)
}

func TestGetForUserOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	receiver := seedUser(t, env.db, "receiver", domain.LevelStar)
	stranger := seedUser(t, env.db, "stranger", domain.LevelStar)
	txID := seedPair(t, env.db, sender.ID, receiver.ID, domain.StatusAssigned, time.Now().Add(time.Hour))

	record, err := env.help.GetForUser(ctx, txID, sender.ID)
	require.NoError(t, err)
	require.Equal(t, "SEND", record.ViewRole)

	record, err = env.help.GetForUser(ctx, txID, receiver.ID)
	require.NoError(t, err)
	require.Equal(t, "RECEIVE", record.ViewRole)

	_, err = env.help.GetForUser(ctx, txID, stranger.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = env.help.GetForUser(ctx, "no-such-tx", sender.ID)
	require.ErrorIs(t, err, domain.ErrTxNotFound)
}

func TestListHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	receiver := seedUser(t, env.db, "receiver", domain.LevelStar)
	seedPair(t, env.db, sender.ID, receiver.ID, domain.StatusConfirmed, time.Now().Add(time.Hour))
	seedPair(t, env.db, sender.ID, receiver.ID, domain.StatusCancelled, time.Now().Add(time.Hour))
	seedPair(t, env.db, sender.ID, receiver.ID, domain.StatusAssigned, time.Now().Add(time.Hour))

	sent, err := env.help.ListSent(ctx, sender.ID, &HistoryInput{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(3), sent.Total)
	for _, r := range sent.Records {
		require.Equal(t, "SEND", r.ViewRole)
	}

	received, err := env.help.ListReceived(ctx, receiver.ID, &HistoryInput{Page: 1, Limit: 10, Status: "CONFIRMED"})
	require.NoError(t, err)
	require.Equal(t, int64(1), received.Total)
	require.Equal(t, "RECEIVE", received.Records[0].ViewRole)

	_, err = env.help.ListSent(ctx, sender.ID, &HistoryInput{Page: 1, Limit: 10, Status: "BOGUS"})
	require.ErrorIs(t, err, domain.ErrValidation)
}
