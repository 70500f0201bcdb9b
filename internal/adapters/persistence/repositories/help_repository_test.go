package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"peerhelp/internal/adapters/persistence/models"
	"peerhelp/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func insertPair(t *testing.T, db *gorm.DB, senderID, receiverID uint, status string, expiresAt time.Time) string {
	t.Helper()

	txID := uuid.New().String()
	base := models.HelpRecord{
		TxID:       txID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     300,
		Status:     status,
		AssignedAt: time.Now(),
		ExpiresAt:  expiresAt,
	}
	send, recv := base, base
	send.ViewRole = models.ViewRoleSend
	recv.ViewRole = models.ViewRoleReceive
	require.NoError(t, db.Create(&send).Error)
	require.NoError(t, db.Create(&recv).Error)
	return txID
}

func TestGetPairOrdersSendFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewHelpRepository(db)
	ctx := context.Background()

	txID := insertPair(t, db, 1, 2, string(domain.StatusAssigned), time.Now().Add(time.Hour))

	send, recv, err := repo.GetPair(ctx, txID)
	require.NoError(t, err)
	require.Equal(t, models.ViewRoleSend, send.ViewRole)
	require.Equal(t, models.ViewRoleReceive, recv.ViewRole)

	_, _, err = repo.GetPair(ctx, "missing")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUpdatePairIfConditionalWrite(t *testing.T) {
	db := newTestDB(t)
	repo := NewHelpRepository(db)
	ctx := context.Background()

	txID := insertPair(t, db, 1, 2, string(domain.StatusAssigned), time.Now().Add(time.Hour))

	// Precondition holds: both rows move
	err := db.Transaction(func(tx *gorm.DB) error {
		affected, err := repo.UpdatePairIf(ctx, tx, txID,
			[]string{string(domain.StatusAssigned)},
			map[string]interface{}{"status": string(domain.StatusPaymentDone)})
		require.NoError(t, err)
		require.Equal(t, int64(2), affected)
		return nil
	})
	require.NoError(t, err)

	// Precondition no longer holds: zero rows, nothing changes
	err = db.Transaction(func(tx *gorm.DB) error {
		affected, err := repo.UpdatePairIf(ctx, tx, txID,
			[]string{string(domain.StatusAssigned)},
			map[string]interface{}{"status": string(domain.StatusCancelled)})
		require.NoError(t, err)
		require.Zero(t, affected)
		return nil
	})
	require.NoError(t, err)

	send, recv, err := repo.GetPair(ctx, txID)
	require.NoError(t, err)
	require.Equal(t, string(domain.StatusPaymentDone), send.Status)
	require.Equal(t, string(domain.StatusPaymentDone), recv.Status)
}

func TestCountActiveSkipsTerminal(t *testing.T) {
	db := newTestDB(t)
	repo := NewHelpRepository(db)
	ctx := context.Background()

	insertPair(t, db, 1, 2, string(domain.StatusAssigned), time.Now().Add(time.Hour))
	insertPair(t, db, 1, 2, string(domain.StatusConfirmed), time.Now().Add(time.Hour))
	insertPair(t, db, 1, 2, string(domain.StatusTimeout), time.Now().Add(time.Hour))

	sent, err := repo.CountActiveBySender(ctx, nil, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), sent)

	recv, err := repo.CountActiveByReceiver(ctx, nil, 2)
	require.NoError(t, err)
	require.Equal(t, int64(1), recv)

	counts, err := repo.ActiveReceiveCounts(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), counts[2])
}

func TestFindExpiredCoversOpenStatesOnly(t *testing.T) {
	db := newTestDB(t)
	repo := NewHelpRepository(db)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	overdue := insertPair(t, db, 1, 2, string(domain.StatusAssigned), past)
	overdueRequested := insertPair(t, db, 3, 2, string(domain.StatusPaymentRequested), past)
	overduePaid := insertPair(t, db, 4, 2, string(domain.StatusPaymentDone), past)
	insertPair(t, db, 5, 2, string(domain.StatusAssigned), future)  // not due yet
	insertPair(t, db, 6, 2, string(domain.StatusConfirmed), past)   // settled
	insertPair(t, db, 7, 2, string(domain.StatusCancelled), past)   // terminal

	records, err := repo.FindExpired(ctx, time.Now(), 100)
	require.NoError(t, err)
	require.Len(t, records, 3)

	got := make([]string, 0, len(records))
	for _, r := range records {
		got = append(got, r.TxID)
		require.Equal(t, models.ViewRoleSend, r.ViewRole, "sweeper works off SEND views only")
	}
	require.ElementsMatch(t, []string{overdue, overdueRequested, overduePaid}, got)
}

func TestStatusCountsOneViewPerTransaction(t *testing.T) {
	db := newTestDB(t)
	repo := NewHelpRepository(db)
	ctx := context.Background()

	insertPair(t, db, 1, 2, string(domain.StatusAssigned), time.Now().Add(time.Hour))
	insertPair(t, db, 3, 2, string(domain.StatusAssigned), time.Now().Add(time.Hour))
	insertPair(t, db, 4, 2, string(domain.StatusConfirmed), time.Now().Add(time.Hour))

	counts, err := repo.StatusCounts(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), counts[string(domain.StatusAssigned)])
	require.Equal(t, int64(1), counts[string(domain.StatusConfirmed)])
}
