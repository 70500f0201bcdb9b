package services

import (
	"context"

	"peerhelp/internal/adapters/persistence/repositories"
)

// StatsService aggregates platform counters for the admin dashboard
type StatsService struct {
	userRepo repositories.UserRepository
	helpRepo repositories.HelpRepository
}

// NewStatsService creates a new stats service
func NewStatsService(userRepo repositories.UserRepository, helpRepo repositories.HelpRepository) *StatsService {
	return &StatsService{
		userRepo: userRepo,
		helpRepo: helpRepo,
	}
}

// PlatformStats represents the admin overview
type PlatformStats struct {
	UsersByLevel map[string]int64 `json:"users_by_level"`
	HelpByStatus map[string]int64 `json:"help_by_status"`
	TotalUsers   int64            `json:"total_users"`
	TotalHelp    int64            `json:"total_help"`
}

// GetPlatformStats returns user counts by level and help transaction counts
// by status
func (s *StatsService) GetPlatformStats(ctx context.Context) (*PlatformStats, error) {
	usersByLevel, err := s.userRepo.CountByLevel(ctx)
	if err != nil {
		return nil, err
	}

	helpByStatus, err := s.helpRepo.StatusCounts(ctx)
	if err != nil {
		return nil, err
	}

	stats := &PlatformStats{
		UsersByLevel: usersByLevel,
		HelpByStatus: helpByStatus,
	}
	for _, c := range usersByLevel {
		stats.TotalUsers += c
	}
	for _, c := range helpByStatus {
		stats.TotalHelp += c
	}
	return stats, nil
}
