package services

import (
	"peerhelp/internal/adapters/persistence/models"
	"peerhelp/internal/core/domain"
)

// EligibilityService holds the sender and receiver gating rules. It is pure
// policy over already-loaded rows; callers fetch state and re-verify counts
// inside their own DB transaction.
type EligibilityService struct{}

// NewEligibilityService creates a new eligibility service
func NewEligibilityService() *EligibilityService {
	return &EligibilityService{}
}

// CheckSender verifies a user may open a new help transaction. A sender may
// hold at most one open transaction at a time; an income block stops sending
// too, since blocked accounts must settle their checkpoint first.
func (s *EligibilityService) CheckSender(user *models.User, activeSendCount int64) error {
	if !user.IsActivated {
		return domain.ErrIneligibleSender
	}
	if user.IsBlocked {
		return domain.ErrIneligibleSender
	}
	if user.IsOnHold {
		return domain.ErrIneligibleSender
	}
	if activeSendCount > 0 {
		return domain.ErrDuplicateActiveTransaction
	}
	return nil
}

// CheckReceiver verifies a candidate can take one more open receive slot.
// Persistent filters (activated, visibility, blocked, holds) are applied by
// the candidate query; this recheck keeps the rule in one reviewable place
// and guards the per-request parts: self-exclusion and slot capacity.
func (s *EligibilityService) CheckReceiver(candidate *models.User, senderID uint, activeReceiveCount int64) bool {
	if candidate.ID == senderID {
		return false
	}
	if !candidate.IsActivated || candidate.IsBlocked || !candidate.HelpVisibility {
		return false
	}
	if (candidate.IsOnHold || candidate.IsReceivingHeld) && !candidate.ForceReceiveOverride {
		return false
	}
	return activeReceiveCount < int64(domain.HelpLimit(candidate.LevelValue()))
}

// FreeSlots returns the open receive slots left for a candidate
func (s *EligibilityService) FreeSlots(candidate *models.User, activeReceiveCount int64) int64 {
	free := int64(domain.HelpLimit(candidate.LevelValue())) - activeReceiveCount
	if free < 0 {
		return 0
	}
	return free
}

// BlockCheckpointHit returns the checkpoint action due at the receiver's new
// confirmed count, if the count lands exactly on one. STAR has no
// checkpoints; counts past a checkpoint are never retroactively blocked.
func (s *EligibilityService) BlockCheckpointHit(level domain.Level, newCount int) (domain.Checkpoint, bool) {
	return domain.CheckpointAt(level, newCount)
}
