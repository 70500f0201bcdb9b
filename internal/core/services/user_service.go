package services

import (
	"context"
	"errors"

	"peerhelp/internal/adapters/persistence/models"
	"peerhelp/internal/adapters/persistence/repositories"
	"peerhelp/internal/core/domain"
	"peerhelp/internal/pkg/password"

	"gorm.io/gorm"
)

// User service errors
var (
	ErrUserNotFoundSvc     = errors.New("user not found")
	ErrEmailAlreadyExists  = errors.New("email already exists")
	ErrOldPasswordWrong    = errors.New("old password is incorrect")
	ErrCannotDeleteSelf    = errors.New("cannot delete your own account")
	ErrCannotChangeOwnRole = errors.New("cannot change your own role")
)

// UserService handles user management business logic
type UserService struct {
	userRepo repositories.UserRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo repositories.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// ListUsersInput represents list users input
type ListUsersInput struct {
	Page  int
	Limit int
}

// ListUsersOutput represents list users output
type ListUsersOutput struct {
	Users      []*models.UserResponse `json:"users"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	TotalPages int                    `json:"total_pages"`
}

// UpdateUserByAdminInput represents update user input (for admin)
type UpdateUserByAdminInput struct {
	Email                *string `json:"email"`
	Role                 *string `json:"role"`
	IsActivated          *bool   `json:"is_activated"`
	ForceReceiveOverride *bool   `json:"force_receive_override"`
}

// UpdateProfileInput represents update profile input (for self)
type UpdateProfileInput struct {
	Email          *string `json:"email"`
	HelpVisibility *bool   `json:"help_visibility"`
}

// ChangePasswordInput represents change password input
type ChangePasswordInput struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ListUsers lists all users with pagination
func (s *UserService) ListUsers(ctx context.Context, input *ListUsersInput) (*ListUsersOutput, error) {
	// Set defaults
	if input.Page < 1 {
		input.Page = 1
	}
	if input.Limit < 1 {
		input.Limit = 10
	}
	if input.Limit > 100 {
		input.Limit = 100
	}

	offset := (input.Page - 1) * input.Limit

	users, total, err := s.userRepo.List(ctx, offset, input.Limit)
	if err != nil {
		return nil, err
	}

	userResponses := make([]*models.UserResponse, len(users))
	for i, user := range users {
		userResponses[i] = user.ToResponse()
	}

	totalPages := int(total) / input.Limit
	if int(total)%input.Limit > 0 {
		totalPages++
	}

	return &ListUsersOutput{
		Users:      userResponses,
		Total:      total,
		Page:       input.Page,
		Limit:      input.Limit,
		TotalPages: totalPages,
	}, nil
}

// GetUserByID gets a user by ID
func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFoundSvc
		}
		return nil, err
	}
	return user.ToResponse(), nil
}

// UpdateUserByAdmin updates a user by admin
func (s *UserService) UpdateUserByAdmin(ctx context.Context, id uint, adminID uint, input *UpdateUserByAdminInput) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFoundSvc
		}
		return nil, err
	}

	// Prevent admin from changing own role
	if id == adminID && input.Role != nil {
		return nil, ErrCannotChangeOwnRole
	}

	// Update fields
	if input.Email != nil && *input.Email != user.Email {
		// Check if email already exists
		exists, _ := s.userRepo.ExistsByEmail(ctx, *input.Email)
		if exists {
			return nil, ErrEmailAlreadyExists
		}
		user.Email = *input.Email
	}

	if input.Role != nil {
		if *input.Role != string(domain.RoleUser) && *input.Role != string(domain.RoleAdmin) {
			return nil, errors.New("invalid role")
		}
		user.Role = *input.Role
	}

	if input.IsActivated != nil {
		user.IsActivated = *input.IsActivated
	}

	if input.ForceReceiveOverride != nil {
		user.ForceReceiveOverride = *input.ForceReceiveOverride
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user.ToResponse(), nil
}

// BlockUser blocks a user administratively with a reason
func (s *UserService) BlockUser(ctx context.Context, id uint, reason string) error {
	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFoundSvc
		}
		return err
	}
	return s.userRepo.UpdateFields(ctx, id, map[string]interface{}{
		"is_blocked":   true,
		"block_reason": reason,
	})
}

// UnblockUser clears an administrative or timeout block
func (s *UserService) UnblockUser(ctx context.Context, id uint) error {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFoundSvc
		}
		return err
	}
	if !user.IsBlocked {
		return domain.ErrNotIncomeBlocked
	}
	return s.userRepo.UpdateFields(ctx, id, map[string]interface{}{
		"is_blocked":   false,
		"block_reason": "",
	})
}

// DeleteUser deletes a user (soft delete)
func (s *UserService) DeleteUser(ctx context.Context, id uint, adminID uint) error {
	// Prevent admin from deleting self
	if id == adminID {
		return ErrCannotDeleteSelf
	}

	// Check if user exists
	_, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFoundSvc
		}
		return err
	}

	return s.userRepo.Delete(ctx, id)
}

// GetProfile gets own profile
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.UserResponse, error) {
	return s.GetUserByID(ctx, userID)
}

// LevelInfo describes the caller's position in the level ladder
type LevelInfo struct {
	Level         string              `json:"level"`
	FixedAmount   float64             `json:"fixed_amount"`
	HelpQuota     int                 `json:"help_quota"`
	HelpLimit     int                 `json:"help_limit"`
	HelpReceived  int                 `json:"help_received"`
	Checkpoints   []domain.Checkpoint `json:"checkpoints"`
	NextLevel     string              `json:"next_level,omitempty"`
	PendingAction *domain.Checkpoint  `json:"pending_action,omitempty"`
}

// GetLevelInfo returns the user's level policy and progress, including the
// checkpoint currently blocking them, if any
func (s *UserService) GetLevelInfo(ctx context.Context, userID uint) (*LevelInfo, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFoundSvc
		}
		return nil, err
	}

	level := user.LevelValue()
	cfg, _ := domain.Config(level)

	info := &LevelInfo{
		Level:        string(level),
		FixedAmount:  cfg.FixedAmount,
		HelpQuota:    cfg.HelpQuota,
		HelpLimit:    cfg.HelpLimit,
		HelpReceived: user.HelpReceivedCount,
		Checkpoints:  cfg.Checkpoints,
		NextLevel:    string(cfg.Next),
	}
	if user.IsOnHold {
		if cp, ok := domain.CheckpointAt(level, user.HelpReceivedCount); ok {
			info.PendingAction = &cp
		}
	}
	return info, nil
}

// UpdateProfile updates own profile
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, input *UpdateProfileInput) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFoundSvc
	}

	if input.Email != nil && *input.Email != user.Email {
		// Check if email already exists
		exists, _ := s.userRepo.ExistsByEmail(ctx, *input.Email)
		if exists {
			return nil, ErrEmailAlreadyExists
		}
		user.Email = *input.Email
	}

	if input.HelpVisibility != nil {
		user.HelpVisibility = *input.HelpVisibility
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user.ToResponse(), nil
}

// ChangePassword changes user's password
func (s *UserService) ChangePassword(ctx context.Context, userID uint, input *ChangePasswordInput) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return ErrUserNotFoundSvc
	}

	// Verify old password
	if !password.Verify(input.OldPassword, user.Password) {
		return ErrOldPasswordWrong
	}

	// Validate new password
	if len(input.NewPassword) < 8 {
		return errors.New("new password must be at least 8 characters")
	}

	// Hash new password
	hashedPassword, err := password.Hash(input.NewPassword)
	if err != nil {
		return err
	}

	user.Password = hashedPassword
	return s.userRepo.Update(ctx, user)
}

// SetUserRole sets user role (for admin seeding)
func (s *UserService) SetUserRole(ctx context.Context, userID uint, role string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	user.Role = role
	return s.userRepo.Update(ctx, user)
}
