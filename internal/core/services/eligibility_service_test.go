package services

import (
	"testing"

	"peerhelp/internal/adapters/persistence/models"
	"peerhelp/internal/core/domain"

	"github.com/stretchr/testify/require"
)

func TestCheckSender(t *testing.T) {
	svc := NewEligibilityService()

	ok := &models.User{IsActivated: true, Level: string(domain.LevelStar)}
	require.NoError(t, svc.CheckSender(ok, 0))

	require.ErrorIs(t,
		svc.CheckSender(&models.User{IsActivated: false}, 0),
		domain.ErrIneligibleSender)

	require.ErrorIs(t,
		svc.CheckSender(&models.User{IsActivated: true, IsBlocked: true}, 0),
		domain.ErrIneligibleSender)

	// An income block stops sending until the checkpoint is settled
	require.ErrorIs(t,
		svc.CheckSender(&models.User{IsActivated: true, IsOnHold: true}, 0),
		domain.ErrIneligibleSender)

	require.ErrorIs(t,
		svc.CheckSender(ok, 1),
		domain.ErrDuplicateActiveTransaction)
}

func TestCheckReceiver(t *testing.T) {
	svc := NewEligibilityService()

	base := func() *models.User {
		return &models.User{
			ID:             2,
			IsActivated:    true,
			HelpVisibility: true,
			Level:          string(domain.LevelStar),
		}
	}

	require.True(t, svc.CheckReceiver(base(), 1, 0))

	// Self-exclusion
	require.False(t, svc.CheckReceiver(base(), 2, 0))

	// Flag filters
	u := base()
	u.IsActivated = false
	require.False(t, svc.CheckReceiver(u, 1, 0))

	u = base()
	u.IsBlocked = true
	require.False(t, svc.CheckReceiver(u, 1, 0))

	u = base()
	u.HelpVisibility = false
	require.False(t, svc.CheckReceiver(u, 1, 0))

	u = base()
	u.IsOnHold = true
	require.False(t, svc.CheckReceiver(u, 1, 0))

	u = base()
	u.IsReceivingHeld = true
	require.False(t, svc.CheckReceiver(u, 1, 0))

	// Override trumps holds
	u = base()
	u.IsOnHold = true
	u.ForceReceiveOverride = true
	require.True(t, svc.CheckReceiver(u, 1, 0))

	// Slot capacity (STAR limit is 3)
	require.True(t, svc.CheckReceiver(base(), 1, 2))
	require.False(t, svc.CheckReceiver(base(), 1, 3))
}

func TestFreeSlots(t *testing.T) {
	svc := NewEligibilityService()
	u := &models.User{Level: string(domain.LevelGold)} // limit 4

	require.Equal(t, int64(4), svc.FreeSlots(u, 0))
	require.Equal(t, int64(1), svc.FreeSlots(u, 3))
	require.Equal(t, int64(0), svc.FreeSlots(u, 4))
	require.Equal(t, int64(0), svc.FreeSlots(u, 9), "never negative")
}

func TestBlockCheckpointHit(t *testing.T) {
	svc := NewEligibilityService()

	cp, hit := svc.BlockCheckpointHit(domain.LevelSilver, 4)
	require.True(t, hit)
	require.Equal(t, domain.UnblockUpgrade, cp.Action.Type)

	_, hit = svc.BlockCheckpointHit(domain.LevelSilver, 5)
	require.False(t, hit)

	_, hit = svc.BlockCheckpointHit(domain.LevelStar, 3)
	require.False(t, hit, "STAR has no checkpoints")
}
