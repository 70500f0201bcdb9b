package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"peerhelp/internal/adapters/persistence/models"
	"peerhelp/internal/adapters/persistence/repositories"
	"peerhelp/internal/config"
	"peerhelp/internal/core/domain"
	"peerhelp/internal/pkg/metrics"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// ============================================================
// Deadline Watcher
// ============================================================

// DeadlineService expires help transactions whose payment deadline passed
// and blocks the defaulting sender. It runs on a cron schedule; SweepOnce is
// also callable directly, which keeps the sweep testable without timers.
type DeadlineService struct {
	helpRepo  repositories.HelpRepository
	tokenRepo repositories.RefreshTokenRepository
	notify    *NotifyService
	cfg       *config.Config
	cron      *cron.Cron
}

// NewDeadlineService creates a new deadline service
func NewDeadlineService(
	helpRepo repositories.HelpRepository,
	tokenRepo repositories.RefreshTokenRepository,
	notify *NotifyService,
	cfg *config.Config,
) *DeadlineService {
	return &DeadlineService{
		helpRepo:  helpRepo,
		tokenRepo: tokenRepo,
		notify:    notify,
		cfg:       cfg,
		cron:      cron.New(),
	}
}

// Start schedules the sweep and the daily token cleanup
func (s *DeadlineService) Start() error {
	spec := fmt.Sprintf("@every %dm", s.cfg.Help.SweepIntervalMins)
	if _, err := s.cron.AddFunc(spec, func() {
		if _, err := s.SweepOnce(context.Background()); err != nil {
			log.Printf("❌ Deadline sweep error: %v", err)
		}
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc("@daily", func() {
		if err := s.tokenRepo.DeleteExpired(context.Background()); err != nil {
			log.Printf("❌ Token cleanup error: %v", err)
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("🚀 DeadlineService started (sweep %s)", spec)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish
func (s *DeadlineService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("🛑 DeadlineService stopped")
}

// SweepOnce expires every overdue transaction and returns how many it timed
// out. Each transaction is settled independently; one failure never stops
// the rest of the batch. A record already moved by a concurrent writer is
// skipped silently.
func (s *DeadlineService) SweepOnce(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	records, err := s.helpRepo.FindExpired(ctx, start, s.cfg.Help.SweepBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, record := range records {
		timedOut, err := s.expireOne(ctx, record)
		if err != nil {
			log.Printf("❌ Deadline expire %s error: %v", record.TxID, err)
			continue
		}
		if timedOut {
			expired++
		}
	}

	if expired > 0 {
		log.Printf("⏱️ Deadline sweep: timed out %d transaction(s)", expired)
	}
	return expired, nil
}

// expireOne flips one pair to TIMEOUT and blocks its sender. The conditional
// update makes re-sweeping a no-op: once the pair reached a terminal status
// nothing happens here.
func (s *DeadlineService) expireOne(ctx context.Context, record *models.HelpRecord) (bool, error) {
	allowed := domain.NonTerminalStatuses()

	var timedOut bool
	err := s.helpRepo.DB().Transaction(func(tx *gorm.DB) error {
		affected, err := s.helpRepo.UpdatePairIf(ctx, tx, record.TxID, allowed, map[string]interface{}{
			"status": string(domain.StatusTimeout),
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil // moved on since the query, leave it alone
		}
		if affected != 2 {
			return domain.ErrPairDiverged
		}
		timedOut = true

		return tx.Model(&models.User{}).Where("id = ?", record.SenderID).Updates(map[string]interface{}{
			"is_blocked":   true,
			"block_reason": "payment not completed within deadline",
		}).Error
	})
	if err != nil || !timedOut {
		return false, err
	}

	metrics.HelpTimedOut.Inc()
	metrics.UsersBlocked.WithLabelValues("timeout").Inc()
	s.notify.EmitPair(domain.EventTimedOut, record.TxID, record.SenderID, record.ReceiverID, nil)
	s.notify.Emit(domain.Event{Name: domain.EventBlocked, UserID: record.SenderID, TxID: record.TxID})
	log.Printf("⏱️ Help timed out: %s (sender=%d blocked)", record.TxID, record.SenderID)
	return true, nil
}
