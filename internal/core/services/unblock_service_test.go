package services

import (
	"context"
	"testing"

	"peerhelp/internal/adapters/persistence/models"
	"peerhelp/internal/core/domain"

	"github.com/stretchr/testify/require"
)

// silverAtUpgradeCheckpoint seeds a SILVER user held at the upgrade checkpoint
// (4th confirmed receipt, 2000 due)
func silverAtUpgradeCheckpoint(t *testing.T, env *testEnv, name string) *models.User {
	t.Helper()
	return seedUser(t, env.db, name, domain.LevelSilver, func(u *models.User) {
		u.HelpReceivedCount = 4
		u.IsOnHold = true
		u.IsReceivingHeld = true
	})
}

func TestSubmitUnblockPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := silverAtUpgradeCheckpoint(t, env, "held")

	payment, err := env.unblock.Submit(ctx, user.ID, &SubmitInput{
		Type:     "UPGRADE",
		ProofRef: "TXN-12345678",
	})
	require.NoError(t, err)
	require.Equal(t, models.UnblockStatusPending, payment.Status)
	require.Equal(t, 2000.0, payment.Amount, "amount comes from the checkpoint, not the client")
	require.Equal(t, 4, payment.Checkpoint)

	// Submission alone changes nothing on the user
	after := reloadUser(t, env.db, user.ID)
	require.True(t, after.IsOnHold)
	require.Equal(t, string(domain.LevelSilver), after.Level)
}

func TestSubmitRejectsWrongType(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := silverAtUpgradeCheckpoint(t, env, "held")

	// Checkpoint 4 demands an UPGRADE payment
	_, err := env.unblock.Submit(ctx, user.ID, &SubmitInput{
		Type:     "SPONSOR",
		ProofRef: "TXN-12345678",
	})
	require.ErrorIs(t, err, ErrWrongUnblockType)
}

func TestSubmitRequiresHold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	free := seedUser(t, env.db, "free", domain.LevelSilver)
	_, err := env.unblock.Submit(ctx, free.ID, &SubmitInput{
		Type:     "UPGRADE",
		ProofRef: "TXN-12345678",
	})
	require.ErrorIs(t, err, domain.ErrNotIncomeBlocked)

	// Quota exhaustion holds receiving but is not a checkpoint block
	quotaDone := seedUser(t, env.db, "quota", domain.LevelStar, func(u *models.User) {
		u.HelpReceivedCount = 3
		u.IsReceivingHeld = true
	})
	_, err = env.unblock.Submit(ctx, quotaDone.ID, &SubmitInput{
		Type:     "UPGRADE",
		ProofRef: "TXN-12345678",
	})
	require.ErrorIs(t, err, domain.ErrNotIncomeBlocked)
}

func TestSubmitRejectsDuplicatePending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := silverAtUpgradeCheckpoint(t, env, "held")

	_, err := env.unblock.Submit(ctx, user.ID, &SubmitInput{Type: "UPGRADE", ProofRef: "TXN-11111111"})
	require.NoError(t, err)

	_, err = env.unblock.Submit(ctx, user.ID, &SubmitInput{Type: "UPGRADE", ProofRef: "TXN-22222222"})
	require.ErrorIs(t, err, ErrUnblockPending)
}

func TestConfirmUpgradeLiftsHoldAndAdvancesLevel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := silverAtUpgradeCheckpoint(t, env, "held")
	admin := seedUser(t, env.db, "admin", domain.LevelStar, func(u *models.User) { u.Role = "ADMIN" })

	payment, err := env.unblock.Submit(ctx, user.ID, &SubmitInput{Type: "UPGRADE", ProofRef: "TXN-12345678"})
	require.NoError(t, err)

	confirmed, err := env.unblock.Confirm(ctx, payment.ID, admin.ID)
	require.NoError(t, err)
	require.Equal(t, models.UnblockStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)
	require.Equal(t, admin.ID, *confirmed.ConfirmedBy)

	after := reloadUser(t, env.db, user.ID)
	require.False(t, after.IsOnHold)
	require.False(t, after.IsReceivingHeld)
	require.Equal(t, string(domain.LevelGold), after.Level, "upgrade advances one level")
	require.Equal(t, 0, after.HelpReceivedCount, "the new level's quota starts from zero")

	// A settled payment cannot be reviewed again
	_, err = env.unblock.Confirm(ctx, payment.ID, admin.ID)
	require.ErrorIs(t, err, ErrUnblockNotPending)
}

func TestConfirmSponsorKeepsLevel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// SILVER sponsor checkpoint at the 7th receipt
	user := seedUser(t, env.db, "held", domain.LevelSilver, func(u *models.User) {
		u.HelpReceivedCount = 7
		u.IsOnHold = true
		u.IsReceivingHeld = true
	})
	admin := seedUser(t, env.db, "admin", domain.LevelStar, func(u *models.User) { u.Role = "ADMIN" })

	payment, err := env.unblock.Submit(ctx, user.ID, &SubmitInput{Type: "SPONSOR", ProofRef: "TXN-12345678"})
	require.NoError(t, err)
	require.Equal(t, 1000.0, payment.Amount)

	_, err = env.unblock.Confirm(ctx, payment.ID, admin.ID)
	require.NoError(t, err)

	after := reloadUser(t, env.db, user.ID)
	require.False(t, after.IsOnHold)
	require.Equal(t, string(domain.LevelSilver), after.Level, "sponsor payment never upgrades")
	require.Equal(t, 7, after.HelpReceivedCount, "sponsor payment keeps the counter")
}

func TestRejectKeepsBlockInPlace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := silverAtUpgradeCheckpoint(t, env, "held")
	admin := seedUser(t, env.db, "admin", domain.LevelStar, func(u *models.User) { u.Role = "ADMIN" })

	payment, err := env.unblock.Submit(ctx, user.ID, &SubmitInput{Type: "UPGRADE", ProofRef: "TXN-12345678"})
	require.NoError(t, err)

	rejected, err := env.unblock.Reject(ctx, payment.ID, admin.ID)
	require.NoError(t, err)
	require.Equal(t, models.UnblockStatusRejected, rejected.Status)

	after := reloadUser(t, env.db, user.ID)
	require.True(t, after.IsOnHold)
	require.Equal(t, string(domain.LevelSilver), after.Level)

	// A rejected payment frees the checkpoint for a new submission
	_, err = env.unblock.Submit(ctx, user.ID, &SubmitInput{Type: "UPGRADE", ProofRef: "TXN-87654321"})
	require.NoError(t, err)
}

func TestReviewMissingPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := seedUser(t, env.db, "admin", domain.LevelStar, func(u *models.User) { u.Role = "ADMIN" })

	_, err := env.unblock.Confirm(ctx, 9999, admin.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.unblock.Reject(ctx, 9999, admin.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
