package services

import (
	"fmt"
	"testing"
	"time"

	"peerhelp/internal/adapters/persistence/models"
	"peerhelp/internal/adapters/persistence/repositories"
	"peerhelp/internal/config"
	"peerhelp/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv wires the full service stack over a per-test in-memory database
type testEnv struct {
	db       *gorm.DB
	cfg      *config.Config
	users    repositories.UserRepository
	helps    repositories.HelpRepository
	unblocks repositories.UnblockPaymentRepository
	tokens   repositories.RefreshTokenRepository

	notify   *NotifyService
	help     *HelpService
	deadline *DeadlineService
	unblock  *UnblockService
	selector *SelectorService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	// Per-test in-memory database to avoid cross-test interference
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	cfg := &config.Config{
		AppMode: "dev",
		Help: config.HelpConfig{
			DeadlineHours:     24,
			CooldownHours:     2,
			SweepIntervalMins: 5,
			SweepBatchSize:    200,
			ReceiverFallback:  false,
		},
	}

	users := repositories.NewUserRepository(db)
	helps := repositories.NewHelpRepository(db)
	unblocks := repositories.NewUnblockPaymentRepository(db)
	tokens := repositories.NewRefreshTokenRepository(db)

	notify := NewNotifyService()
	eligibility := NewEligibilityService()
	selector := NewSelectorService(users, helps, eligibility, cfg)

	return &testEnv{
		db:       db,
		cfg:      cfg,
		users:    users,
		helps:    helps,
		unblocks: unblocks,
		tokens:   tokens,
		notify:   notify,
		help:     NewHelpService(users, helps, eligibility, selector, notify, cfg),
		deadline: NewDeadlineService(helps, tokens, notify, cfg),
		unblock:  NewUnblockService(users, unblocks, helps, notify),
		selector: selector,
	}
}

// seedUser creates an activated visible user. Mutators run before the insert;
// fields whose zero value collides with a gorm default (help_visibility)
// must be flipped through seedUser's explicit update instead.
func seedUser(t *testing.T, db *gorm.DB, username string, level domain.Level, mut ...func(*models.User)) *models.User {
	t.Helper()

	u := &models.User{
		MemberCode:     "PH-" + username,
		AccountID:      "acct-" + username,
		Username:       username,
		Email:          username + "@test.local",
		Password:       "hashed",
		Role:           "USER",
		Level:          string(level),
		IsActivated:    true,
		HelpVisibility: true,
	}
	for _, m := range mut {
		m(u)
	}
	// Create refills defaulted columns from the DB, so capture the intent first
	wantHidden := !u.HelpVisibility
	require.NoError(t, db.Create(u).Error)

	// gorm skips zero values on defaulted columns, so force them after insert
	if wantHidden {
		require.NoError(t, db.Model(u).Update("help_visibility", false).Error)
		u.HelpVisibility = false
	}
	return u
}

// seedPair inserts both views of a transaction directly, bypassing Assign
func seedPair(t *testing.T, db *gorm.DB, senderID, receiverID uint, status domain.HelpStatus, expiresAt time.Time) string {
	t.Helper()

	txID := uuid.New().String()
	base := models.HelpRecord{
		TxID:       txID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     300,
		Status:     string(status),
		AssignedAt: time.Now().Add(-time.Hour),
		ExpiresAt:  expiresAt,
	}
	send, recv := base, base
	send.ViewRole = models.ViewRoleSend
	recv.ViewRole = models.ViewRoleReceive

	require.NoError(t, db.Create(&send).Error)
	require.NoError(t, db.Create(&recv).Error)
	return txID
}

// pairStatuses returns the statuses of both views of a transaction
func pairStatuses(t *testing.T, db *gorm.DB, txID string) (send, recv string) {
	t.Helper()

	var records []models.HelpRecord
	require.NoError(t, db.Where("tx_id = ?", txID).Order("view_role DESC").Find(&records).Error)
	require.Len(t, records, 2)
	return records[0].Status, records[1].Status
}

// reloadUser fetches the latest user row
func reloadUser(t *testing.T, db *gorm.DB, id uint) *models.User {
	t.Helper()

	var u models.User
	require.NoError(t, db.First(&u, id).Error)
	return &u
}
