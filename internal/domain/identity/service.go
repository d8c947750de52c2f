package identity

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthsync/healthsync/internal/platform/auth"
	"github.com/healthsync/healthsync/pkg/apperrors"
)

const minPasswordLength = 8

const invalidCredentials = "Invalid email or password"

// dummyHash is compared against when the email is unknown so that both
// login failure paths pay for one bcrypt comparison.
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3k3rJQ5r1YpE5k6x9x5bX5a"

type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName string  `json:"full_name"`
	Phone    *string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User *Profile `json:"user"`
	auth.TokenPair
}

type Service struct {
	users      UserRepository
	tokens     *auth.TokenManager
	bcryptCost int
	now        func() time.Time
}

func NewService(users UserRepository, tokens *auth.TokenManager, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = auth.DefaultBcryptCost
	}
	return &Service{users: users, tokens: tokens, bcryptCost: bcryptCost, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(req *RegisterRequest) error {
	req.Email = normalizeEmail(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Email == "" {
		return apperrors.Validation("email is required")
	}
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		return apperrors.Validation("email must be a valid address")
	}
	if len(req.Password) < minPasswordLength {
		return apperrors.Validation("password must be at least 8 characters")
	}
	if req.FullName == "" {
		return apperrors.Validation("full_name is required")
	}
	return nil
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if err := validateRegistration(&req); err != nil {
		return nil, err
	}

	taken, err := s.users.EmailTaken(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.Conflict("Email already registered")
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.Internal("Registration failed", err)
	}

	u := &User{
		Email:                   req.Email,
		Phone:                   req.Phone,
		PasswordHash:            hash,
		FullName:                req.FullName,
		Allergies:               []string{},
		MedicalConditions:       []string{},
		IsActive:                true,
		NotificationPreferences: DefaultNotificationPreferences(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssuePair(u.ID.String())
	if err != nil {
		return nil, apperrors.Internal("Registration failed", err)
	}

	zerolog.Ctx(ctx).Info().Str("user_id", u.ID.String()).Msg("user registered")
	return &AuthResult{User: PublicProfile(u), TokenPair: pair}, nil
}

// Login verifies credentials. Unknown emails, wrong passwords and
// deactivated accounts fail with the same error.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if apperrors.Is(err, apperrors.TypeNotFound) {
			auth.CheckPassword(dummyHash, req.Password)
			return nil, apperrors.Unauthorized(invalidCredentials)
		}
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) || !u.IsActive {
		return nil, apperrors.Unauthorized(invalidCredentials)
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, u.ID, now); err != nil {
		return nil, err
	}
	u.LastLogin = &now

	pair, err := s.tokens.IssuePair(u.ID.String())
	if err != nil {
		return nil, apperrors.Internal("Login failed", err)
	}

	zerolog.Ctx(ctx).Info().Str("user_id", u.ID.String()).Msg("user logged in")
	return &AuthResult{User: PublicProfile(u), TokenPair: pair}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// not revoked.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperrors.Validation("Refresh token required")
	}
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized(auth.ErrInvalidToken.Error())
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperrors.Unauthorized(auth.ErrInvalidToken.Error())
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if apperrors.Is(err, apperrors.TypeNotFound) {
			return nil, apperrors.Unauthorized(auth.ErrInvalidToken.Error())
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, apperrors.Unauthorized(auth.ErrInvalidToken.Error())
	}

	pair, err := s.tokens.IssuePair(u.ID.String())
	if err != nil {
		return nil, apperrors.Internal("Token refresh failed", err)
	}
	return &pair, nil
}

// Logout is stateless; it only records the event.
func (s *Service) Logout(ctx context.Context) error {
	id, err := auth.RequireUserID(ctx)
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("user_id", id.String()).Msg("user logged out")
	return nil
}

// -- Profile --

func (s *Service) GetProfile(ctx context.Context) (*Profile, error) {
	id, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return PublicProfile(u), nil
}

func validateProfileUpdate(upd *ProfileUpdate) error {
	if upd.FullName != nil {
		name := strings.TrimSpace(*upd.FullName)
		if name == "" {
			return apperrors.Validation("full_name cannot be empty")
		}
		upd.FullName = &name
	}
	if upd.Gender != nil && !validGenders[*upd.Gender] {
		return apperrors.Validation("gender must be one of M, F, O")
	}
	if upd.DateOfBirth != nil && upd.DateOfBirth.After(time.Now()) {
		return apperrors.Validation("date_of_birth cannot be in the future")
	}
	return nil
}

func (s *Service) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*Profile, error) {
	id, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateProfileUpdate(&upd); err != nil {
		return nil, err
	}
	if upd.Empty() {
		return s.GetProfile(ctx)
	}
	u, err := s.users.UpdateProfile(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	return PublicProfile(u), nil
}

// DeleteProfile soft-deletes the caller's account.
func (s *Service) DeleteProfile(ctx context.Context) error {
	id, err := auth.RequireUserID(ctx)
	if err != nil {
		return err
	}
	if err := s.users.SoftDelete(ctx, id, s.now().UTC()); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("user_id", id.String()).Msg("user account deleted")
	return nil
}
