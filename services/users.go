package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LovationAdmin/giftlist-api/models"
	"github.com/LovationAdmin/giftlist-api/utils"

	"github.com/google/uuid"
)

type UserService struct {
	users     UserRepository
	jwtSecret string
	now       func() time.Time
}

func NewUserService(users UserRepository, jwtSecret string) *UserService {
	return &UserService{users: users, jwtSecret: jwtSecret, now: time.Now}
}

func (s *UserService) SetClock(now func() time.Time) {
	s.now = now
}

// Signup creates an account and returns a session token.
func (s *UserService) Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	utils.LogAuthAction("SIGNUP", email, true)
	return s.session(user)
}

// Login checks the password and, when 2FA is enabled, the TOTP code.
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if user == nil || !utils.CheckPassword(req.Password, user.PasswordHash) {
		utils.LogAuthAction("LOGIN", email, false)
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	if user.TOTPEnabled {
		if req.TOTPCode == "" {
			return nil, ErrTOTPRequired
		}
		if !s.checkTOTP(user, req.TOTPCode) {
			utils.LogAuthAction("LOGIN_2FA", email, false)
			return nil, fmt.Errorf("%w: invalid 2FA code", ErrUnauthorized)
		}
	}

	utils.LogAuthAction("LOGIN", email, true)
	return s.session(user)
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	if err := s.users.UpdateProfile(ctx, userID, strings.TrimSpace(req.Name), req.Avatar); err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return s.GetProfile(ctx, userID)
}

func (s *UserService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		return validationError("current_password", "is incorrect")
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

// ============================================================================
// 2FA
// ============================================================================

// SetupTOTP stores a new, not yet enabled, encrypted TOTP secret.
func (s *UserService) SetupTOTP(ctx context.Context, userID string) (*models.TOTPSetupResponse, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TOTPEnabled {
		return nil, fmt.Errorf("%w: 2FA already enabled", ErrInvalidState)
	}

	secret, url, err := utils.GenerateTOTPSecret(user.Email)
	if err != nil {
		return nil, fmt.Errorf("generating TOTP secret: %w", err)
	}
	encrypted, err := utils.Encrypt([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("encrypting TOTP secret: %w", err)
	}
	if err := s.users.SetTOTP(ctx, userID, encrypted, false); err != nil {
		return nil, fmt.Errorf("storing TOTP secret: %w", err)
	}

	return &models.TOTPSetupResponse{Secret: secret, URL: url}, nil
}

// VerifyTOTP enables 2FA once the user proves they hold the secret.
func (s *UserService) VerifyTOTP(ctx context.Context, userID, code string) error {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if user.TOTPSecret == "" {
		return fmt.Errorf("%w: 2FA setup not started", ErrInvalidState)
	}
	if !s.checkTOTP(user, code) {
		return validationError("code", "is invalid")
	}
	return s.users.SetTOTP(ctx, userID, user.TOTPSecret, true)
}

func (s *UserService) DisableTOTP(ctx context.Context, userID string, req models.DisableTOTPRequest) error {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled {
		return fmt.Errorf("%w: 2FA is not enabled", ErrInvalidState)
	}
	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		return validationError("password", "is incorrect")
	}
	if !s.checkTOTP(user, req.Code) {
		return validationError("code", "is invalid")
	}
	return s.users.SetTOTP(ctx, userID, "", false)
}

func (s *UserService) checkTOTP(user *models.User, code string) bool {
	secret, err := utils.Decrypt(user.TOTPSecret)
	if err != nil {
		utils.SafeError("Decrypting TOTP secret for user %s: %v", utils.MaskID(user.ID), err)
		return false
	}
	return utils.VerifyTOTP(string(secret), code)
}

func (s *UserService) session(user *models.User) (*models.AuthResponse, error) {
	token, err := utils.GenerateAccessToken(s.jwtSecret, user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: *user}, nil
}
