package repositories

import (
	"context"
	"time"

	"peerhelp/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByMemberCode(ctx context.Context, memberCode string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	IncrementReferralCount(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, offset, limit int) ([]*models.User, int64, error)
	ListReceiverCandidates(ctx context.Context, excludeID uint) ([]*models.User, error)
	ListActivated(ctx context.Context, excludeID uint) ([]*models.User, error)
	CountByLevel(ctx context.Context) (map[string]int64, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByMemberCode(ctx context.Context, memberCode string) (bool, error)
}

// HelpRepository defines help record repository interface. Pair-mutating
// methods take the caller's *gorm.DB transaction handle so sender counters,
// receiver counters and both record views commit together.
type HelpRepository interface {
	DB() *gorm.DB
	CreatePair(ctx context.Context, tx *gorm.DB, send, recv *models.HelpRecord) error
	GetPair(ctx context.Context, txID string) (send, recv *models.HelpRecord, err error)
	GetView(ctx context.Context, txID, viewRole string) (*models.HelpRecord, error)
	UpdatePairIf(ctx context.Context, tx *gorm.DB, txID string, allowed []string, fields map[string]interface{}) (int64, error)
	CountActiveBySender(ctx context.Context, tx *gorm.DB, senderID uint) (int64, error)
	CountActiveByReceiver(ctx context.Context, tx *gorm.DB, receiverID uint) (int64, error)
	ActiveReceiveCounts(ctx context.Context) (map[uint]int64, error)
	ListBySender(ctx context.Context, senderID uint, status string, offset, limit int) ([]*models.HelpRecord, int64, error)
	ListByReceiver(ctx context.Context, receiverID uint, status string, offset, limit int) ([]*models.HelpRecord, int64, error)
	FindExpired(ctx context.Context, now time.Time, limit int) ([]*models.HelpRecord, error)
	StatusCounts(ctx context.Context) (map[string]int64, error)
}

// UnblockPaymentRepository defines unblock payment repository interface
type UnblockPaymentRepository interface {
	Create(ctx context.Context, payment *models.UnblockPayment) error
	GetByID(ctx context.Context, id uint) (*models.UnblockPayment, error)
	GetPendingByUser(ctx context.Context, userID uint, checkpoint int) (*models.UnblockPayment, error)
	ListPending(ctx context.Context, offset, limit int) ([]*models.UnblockPayment, int64, error)
	ListByUser(ctx context.Context, userID uint) ([]*models.UnblockPayment, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uint, fields map[string]interface{}) error
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	GetByUserID(ctx context.Context, userID uint) ([]*models.RefreshToken, error)
	Revoke(ctx context.Context, id uint) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context) error
	CountActiveByUserID(ctx context.Context, userID uint) (int64, error)
}
