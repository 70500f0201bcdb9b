package services

import (
	"context"
	"sort"

	"peerhelp/internal/adapters/persistence/models"
	"peerhelp/internal/adapters/persistence/repositories"
	"peerhelp/internal/config"
	"peerhelp/internal/core/domain"
)

// SelectorService picks the receiver for a new help transaction.
//
// Ranking is deterministic: most free receive slots first, then highest
// referral count, then oldest account. The selector only proposes; the
// coordinator re-verifies the winner's slot count inside its DB transaction.
type SelectorService struct {
	userRepo    repositories.UserRepository
	helpRepo    repositories.HelpRepository
	eligibility *EligibilityService
	cfg         *config.Config
}

// NewSelectorService creates a new selector service
func NewSelectorService(
	userRepo repositories.UserRepository,
	helpRepo repositories.HelpRepository,
	eligibility *EligibilityService,
	cfg *config.Config,
) *SelectorService {
	return &SelectorService{
		userRepo:    userRepo,
		helpRepo:    helpRepo,
		eligibility: eligibility,
		cfg:         cfg,
	}
}

// rankedCandidate pairs a candidate with its current free slot count
type rankedCandidate struct {
	user      *models.User
	freeSlots int64
}

// Pick returns the best receiver for the sender, or ErrNoEligibleReceiver.
// When the strict pool is empty and the fallback knob is on, the pool widens
// to every activated visible user; blocked users stay excluded even there.
func (s *SelectorService) Pick(ctx context.Context, senderID uint) (*models.User, error) {
	counts, err := s.helpRepo.ActiveReceiveCounts(ctx)
	if err != nil {
		return nil, err
	}

	candidates, err := s.userRepo.ListReceiverCandidates(ctx, senderID)
	if err != nil {
		return nil, err
	}

	if winner := s.rank(candidates, senderID, counts); winner != nil {
		return winner, nil
	}

	if s.cfg.Help.ReceiverFallback {
		widened, err := s.userRepo.ListActivated(ctx, senderID)
		if err != nil {
			return nil, err
		}
		if winner := s.rankFallback(widened, senderID, counts); winner != nil {
			return winner, nil
		}
	}

	return nil, domain.ErrNoEligibleReceiver
}

// rank filters candidates through the eligibility rules and returns the top
// of the deterministic ordering
func (s *SelectorService) rank(candidates []*models.User, senderID uint, counts map[uint]int64) *models.User {
	ranked := make([]rankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		active := counts[c.ID]
		if !s.eligibility.CheckReceiver(c, senderID, active) {
			continue
		}
		ranked = append(ranked, rankedCandidate{user: c, freeSlots: s.eligibility.FreeSlots(c, active)})
	}
	return top(ranked)
}

// rankFallback applies the widened rules: visibility and hold flags are
// ignored, slot capacity and self-exclusion are not
func (s *SelectorService) rankFallback(candidates []*models.User, senderID uint, counts map[uint]int64) *models.User {
	ranked := make([]rankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == senderID {
			continue
		}
		active := counts[c.ID]
		free := s.eligibility.FreeSlots(c, active)
		if free <= 0 {
			continue
		}
		ranked = append(ranked, rankedCandidate{user: c, freeSlots: free})
	}
	return top(ranked)
}

func top(ranked []rankedCandidate) *models.User {
	if len(ranked) == 0 {
		return nil
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.freeSlots != b.freeSlots {
			return a.freeSlots > b.freeSlots
		}
		if a.user.ReferralCount != b.user.ReferralCount {
			return a.user.ReferralCount > b.user.ReferralCount
		}
		return a.user.CreatedAt.Before(b.user.CreatedAt)
	})

	return ranked[0].user
}
