package repositories

import (
	"context"
	"time"

	"peerhelp/internal/adapters/persistence/models"
	"peerhelp/internal/core/domain"

	"gorm.io/gorm"
)

// helpRepository implements HelpRepository interface.
//
// One logical help transaction is two help_records rows sharing a TxID, one
// per view role. Reads that drive state decisions use the SEND row as the
// canonical view; writes always touch both rows inside the caller's DB
// transaction so the pair can never diverge.
type helpRepository struct {
	db *gorm.DB
}

// NewHelpRepository creates a new help repository
func NewHelpRepository(db *gorm.DB) HelpRepository {
	return &helpRepository{db: db}
}

// DB exposes the underlying handle so services can open transactions that
// span users and help_records.
func (r *helpRepository) DB() *gorm.DB {
	return r.db
}

// CreatePair inserts both views of a new transaction
func (r *helpRepository) CreatePair(ctx context.Context, tx *gorm.DB, send, recv *models.HelpRecord) error {
	if err := tx.WithContext(ctx).Create(send).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Create(recv).Error
}

// GetPair loads both views of a transaction, SEND first
func (r *helpRepository) GetPair(ctx context.Context, txID string) (send, recv *models.HelpRecord, err error) {
	var records []*models.HelpRecord
	err = r.db.WithContext(ctx).
		Where("tx_id = ?", txID).
		Order("view_role DESC"). // RECEIVE < SEND lexically, DESC puts SEND first
		Find(&records).Error
	if err != nil {
		return nil, nil, err
	}
	if len(records) != 2 {
		return nil, nil, gorm.ErrRecordNotFound
	}
	return records[0], records[1], nil
}

// GetView loads a single view of a transaction
func (r *helpRepository) GetView(ctx context.Context, txID, viewRole string) (*models.HelpRecord, error) {
	var record models.HelpRecord
	err := r.db.WithContext(ctx).
		Where("tx_id = ? AND view_role = ?", txID, viewRole).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdatePairIf applies fields to both views of a transaction, but only while
// the pair still sits in one of the allowed statuses. Returns the number of
// rows touched: 2 means the transition won, 0 means another writer got there
// first. Must run inside the caller's DB transaction.
func (r *helpRepository) UpdatePairIf(ctx context.Context, tx *gorm.DB, txID string, allowed []string, fields map[string]interface{}) (int64, error) {
	res := tx.WithContext(ctx).Model(&models.HelpRecord{}).
		Where("tx_id = ?", txID).
		Where("status IN ?", allowed).
		Updates(fields)
	return res.RowsAffected, res.Error
}

// CountActiveBySender counts the sender's non-terminal SEND views
func (r *helpRepository) CountActiveBySender(ctx context.Context, tx *gorm.DB, senderID uint) (int64, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var count int64
	err := db.WithContext(ctx).Model(&models.HelpRecord{}).
		Where("view_role = ?", models.ViewRoleSend).
		Where("sender_id = ?", senderID).
		Where("status IN ?", domain.NonTerminalStatuses()).
		Count(&count).Error
	return count, err
}

// CountActiveByReceiver counts the receiver's non-terminal RECEIVE views
func (r *helpRepository) CountActiveByReceiver(ctx context.Context, tx *gorm.DB, receiverID uint) (int64, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var count int64
	err := db.WithContext(ctx).Model(&models.HelpRecord{}).
		Where("view_role = ?", models.ViewRoleReceive).
		Where("receiver_id = ?", receiverID).
		Where("status IN ?", domain.NonTerminalStatuses()).
		Count(&count).Error
	return count, err
}

// ActiveReceiveCounts returns receiver_id -> open RECEIVE views for the whole
// candidate pool in one query, so the selector does not fire N counts.
func (r *helpRepository) ActiveReceiveCounts(ctx context.Context) (map[uint]int64, error) {
	type Result struct {
		ReceiverID uint
		Count      int64
	}
	var results []Result

	err := r.db.WithContext(ctx).Model(&models.HelpRecord{}).
		Select("receiver_id, COUNT(*) as count").
		Where("view_role = ?", models.ViewRoleReceive).
		Where("status IN ?", domain.NonTerminalStatuses()).
		Group("receiver_id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(results))
	for _, res := range results {
		counts[res.ReceiverID] = res.Count
	}
	return counts, nil
}

// ListBySender lists the sender's SEND views, newest first, with an optional
// status filter and pagination
func (r *helpRepository) ListBySender(ctx context.Context, senderID uint, status string, offset, limit int) ([]*models.HelpRecord, int64, error) {
	return r.listByView(ctx, models.ViewRoleSend, "sender_id", senderID, status, offset, limit)
}

// ListByReceiver lists the receiver's RECEIVE views, newest first
func (r *helpRepository) ListByReceiver(ctx context.Context, receiverID uint, status string, offset, limit int) ([]*models.HelpRecord, int64, error) {
	return r.listByView(ctx, models.ViewRoleReceive, "receiver_id", receiverID, status, offset, limit)
}

func (r *helpRepository) listByView(ctx context.Context, viewRole, column string, userID uint, status string, offset, limit int) ([]*models.HelpRecord, int64, error) {
	var records []*models.HelpRecord
	var total int64

	query := r.db.WithContext(ctx).Model(&models.HelpRecord{}).
		Where("view_role = ?", viewRole).
		Where(column+" = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// FindExpired returns SEND views of every non-terminal transaction whose
// deadline has passed. Terminal records are already settled and never time
// out.
func (r *helpRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]*models.HelpRecord, error) {
	var records []*models.HelpRecord
	err := r.db.WithContext(ctx).
		Where("view_role = ?", models.ViewRoleSend).
		Where("status IN ?", domain.NonTerminalStatuses()).
		Where("expires_at < ?", now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// StatusCounts returns SEND-view counts grouped by status (for the stats
// dashboard; counting one view per transaction keeps the numbers honest)
func (r *helpRepository) StatusCounts(ctx context.Context) (map[string]int64, error) {
	type Result struct {
		Status string
		Count  int64
	}
	var results []Result

	err := r.db.WithContext(ctx).Model(&models.HelpRecord{}).
		Select("status, COUNT(*) as count").
		Where("view_role = ?", models.ViewRoleSend).
		Group("status").
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(results))
	for _, res := range results {
		counts[res.Status] = res.Count
	}
	return counts, nil
}
