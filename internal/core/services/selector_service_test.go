package services

import (
	"context"
	"testing"
	"time"

	"peerhelp/internal/adapters/persistence/models"
	"peerhelp/internal/core/domain"

	"github.com/stretchr/testify/require"
)

func TestPickExcludesIneligibleCandidates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	seedUser(t, env.db, "hidden", domain.LevelStar, func(u *models.User) { u.HelpVisibility = false })
	seedUser(t, env.db, "blocked", domain.LevelStar, func(u *models.User) { u.IsBlocked = true })
	seedUser(t, env.db, "held", domain.LevelStar, func(u *models.User) { u.IsOnHold = true; u.IsReceivingHeld = true })
	seedUser(t, env.db, "inactive", domain.LevelStar, func(u *models.User) { u.IsActivated = false })
	eligible := seedUser(t, env.db, "eligible", domain.LevelStar)

	winner, err := env.selector.Pick(ctx, sender.ID)
	require.NoError(t, err)
	require.Equal(t, eligible.ID, winner.ID)
}

func TestPickNeverReturnsSender(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "lonely", domain.LevelStar)

	_, err := env.selector.Pick(ctx, sender.ID)
	require.ErrorIs(t, err, domain.ErrNoEligibleReceiver)
}

func TestPickPrefersMostFreeSlots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	busy := seedUser(t, env.db, "busy", domain.LevelStar)
	idle := seedUser(t, env.db, "idle", domain.LevelStar)

	// Two of busy's three STAR slots are taken
	other := seedUser(t, env.db, "other", domain.LevelStar)
	seedPair(t, env.db, other.ID, busy.ID, domain.StatusAssigned, time.Now().Add(time.Hour))
	seedPair(t, env.db, other.ID, busy.ID, domain.StatusPaymentDone, time.Now().Add(time.Hour))

	winner, err := env.selector.Pick(ctx, sender.ID)
	require.NoError(t, err)
	require.Equal(t, idle.ID, winner.ID)
}

func TestPickBreaksTiesByReferralsThenAge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	older := seedUser(t, env.db, "older", domain.LevelStar)
	popular := seedUser(t, env.db, "popular", domain.LevelStar, func(u *models.User) { u.ReferralCount = 5 })

	winner, err := env.selector.Pick(ctx, sender.ID)
	require.NoError(t, err)
	require.Equal(t, popular.ID, winner.ID, "higher referral count wins the slot tie")

	// With referrals equal, the older account wins
	require.NoError(t, env.db.Model(&models.User{}).
		Where("id = ?", popular.ID).
		Update("referral_count", 0).Error)

	winner, err = env.selector.Pick(ctx, sender.ID)
	require.NoError(t, err)
	require.Equal(t, older.ID, winner.ID)
}

func TestPickSkipsFullReceivers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	full := seedUser(t, env.db, "full", domain.LevelStar)
	other := seedUser(t, env.db, "other", domain.LevelStar)

	// STAR takes at most three concurrent receives
	for i := 0; i < 3; i++ {
		seedPair(t, env.db, other.ID, full.ID, domain.StatusAssigned, time.Now().Add(time.Hour))
	}

	winner, err := env.selector.Pick(ctx, sender.ID)
	require.NoError(t, err)
	require.Equal(t, other.ID, winner.ID)
}

func TestPickFallbackWidensPool(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Help.ReceiverFallback = true
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	// Only candidate is on hold: strict pool is empty, fallback takes them
	held := seedUser(t, env.db, "held", domain.LevelStar, func(u *models.User) {
		u.IsOnHold = true
		u.IsReceivingHeld = true
	})

	winner, err := env.selector.Pick(ctx, sender.ID)
	require.NoError(t, err)
	require.Equal(t, held.ID, winner.ID)
}

func TestPickFallbackStillExcludesBlocked(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Help.ReceiverFallback = true
	ctx := context.Background()

	sender := seedUser(t, env.db, "sender", domain.LevelStar)
	seedUser(t, env.db, "blocked", domain.LevelStar, func(u *models.User) { u.IsBlocked = true })

	_, err := env.selector.Pick(ctx, sender.ID)
	require.ErrorIs(t, err, domain.ErrNoEligibleReceiver)
}
