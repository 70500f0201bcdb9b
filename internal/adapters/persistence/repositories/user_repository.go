package repositories

import (
	"context"

	"peerhelp/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID gets a user by ID
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername gets a user by username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail gets a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByMemberCode gets a user by member code
func (r *userRepository) GetByMemberCode(ctx context.Context, memberCode string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("member_code = ?", memberCode).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update saves a full user record
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// UpdateFields applies a partial update atomically
func (r *userRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields).Error
}

// IncrementReferralCount bumps the referral counter without a read-modify-write
func (r *userRepository) IncrementReferralCount(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		UpdateColumn("referral_count", gorm.Expr("referral_count + ?", 1)).Error
}

// Delete soft deletes a user
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.User{}, id).Error
}

// List lists users with pagination
func (r *userRepository) List(ctx context.Context, offset, limit int) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// ListReceiverCandidates returns users that pass the persistent receiver
// filters: activated, visible, not blocked, and either free of MLM holds or
// carrying a force-receive override. Per-request filters (self-exclusion is
// applied here; slot capacity is not) are the selector's job.
func (r *userRepository) ListReceiverCandidates(ctx context.Context, excludeID uint) ([]*models.User, error) {
	var users []*models.User
	err := r.db.WithContext(ctx).
		Where("id != ?", excludeID).
		Where("is_activated = ?", true).
		Where("help_visibility = ?", true).
		Where("is_blocked = ?", false).
		Where("(is_on_hold = ? AND is_receiving_held = ?) OR force_receive_override = ?", false, false, true).
		Order("created_at ASC").
		Find(&users).Error
	return users, err
}

// ListActivated returns every activated, non-blocked user except excludeID.
// Used by the permissive receiver fallback only.
func (r *userRepository) ListActivated(ctx context.Context, excludeID uint) ([]*models.User, error) {
	var users []*models.User
	err := r.db.WithContext(ctx).
		Where("id != ?", excludeID).
		Where("is_activated = ?", true).
		Where("is_blocked = ?", false).
		Where("member_code != ?", "").
		Order("created_at ASC").
		Find(&users).Error
	return users, err
}

// CountByLevel returns user counts grouped by level (for the stats dashboard)
func (r *userRepository) CountByLevel(ctx context.Context) (map[string]int64, error) {
	type Result struct {
		Level string
		Count int64
	}
	var results []Result

	err := r.db.WithContext(ctx).Model(&models.User{}).
		Select("level, COUNT(*) as count").
		Group("level").
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(results))
	for _, res := range results {
		counts[res.Level] = res.Count
	}
	return counts, nil
}

// ExistsByUsername checks if username exists
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// ExistsByEmail checks if email exists
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// ExistsByMemberCode checks if member code exists
func (r *userRepository) ExistsByMemberCode(ctx context.Context, memberCode string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("member_code = ?", memberCode).Count(&count).Error
	return count > 0, err
}
