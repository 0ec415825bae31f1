package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/avtoline/avtoline-api/internal/domain/user"
	"github.com/avtoline/avtoline-api/internal/pkg/jwt"
	"github.com/avtoline/avtoline-api/internal/pkg/password"
)

// Service handles authentication business logic
type Service struct {
	users      user.Repository
	jwtService *jwt.Service
	tokens     TokenStore // nil if Redis disabled
}

// NewService creates auth service
func NewService(users user.Repository, jwtService *jwt.Service, tokens TokenStore) *Service {
	return &Service{users: users, jwtService: jwtService, tokens: tokens}
}

// Register creates new user account
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	phone, err := normalizePhone(req.PhoneNumber)
	if err != nil {
		return nil, err
	}

	existing, _ := s.users.GetByPhone(ctx, phone)
	if existing != nil {
		return nil, ErrPhoneAlreadyExists
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	u := &user.User{
		ID:           uuid.New(),
		PhoneNumber:  phone,
		Name:         req.Name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if err == user.ErrPhoneExists {
			return nil, ErrPhoneAlreadyExists
		}
		return nil, err
	}

	return s.generateTokens(ctx, u)
}

// Login authenticates user by phone number and password
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	phone, err := normalizePhone(req.PhoneNumber)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	u, err := s.users.GetByPhone(ctx, phone)
	if err != nil || u == nil {
		return nil, ErrInvalidCredentials
	}
	if !password.Verify(req.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.generateTokens(ctx, u)
}

// Refresh rotates the refresh token and issues a new token pair
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	if _, err := s.jwtService.ValidateRefreshToken(refreshToken); err != nil {
		return nil, ErrInvalidRefreshToken
	}

	refreshHash := jwt.HashRefreshToken(refreshToken)
	userID, err := s.getRefreshToken(ctx, refreshHash)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}

	// Token rotation: the presented token cannot be reused
	_ = s.deleteRefreshToken(ctx, refreshHash)

	return s.generateTokens(ctx, u)
}

// Logout invalidates refresh token
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.deleteRefreshToken(ctx, jwt.HashRefreshToken(refreshToken))
}

// Me returns the authenticated user
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// UpdateName changes the user's display name
func (s *Service) UpdateName(ctx context.Context, userID uuid.UUID, name string) (*user.User, error) {
	if err := s.users.UpdateName(ctx, userID, name); err != nil {
		if err == user.ErrNotFound {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.Me(ctx, userID)
}

// SaveFCMToken stores the device push token for the user
func (s *Service) SaveFCMToken(ctx context.Context, userID uuid.UUID, token string) error {
	if err := s.users.SaveFCMToken(ctx, userID, token); err != nil {
		if err == user.ErrNotFound {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *Service) generateTokens(ctx context.Context, u *user.User) (*AuthResponse, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(u.ID, u.IsBusiness, u.IsStaff)
	if err != nil {
		return nil, err
	}

	refreshToken, _, _, err := s.jwtService.GenerateRefreshToken(u.ID)
	if err != nil {
		return nil, err
	}

	// Store hash(refresh) in Redis, return the raw token to the client
	refreshHash := jwt.HashRefreshToken(refreshToken)
	if err := s.storeRefreshToken(ctx, refreshHash, u.ID); err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:         u,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtService.GetAccessTTL().Seconds()),
	}, nil
}

// Store helpers (handle nil store gracefully)
func (s *Service) storeRefreshToken(ctx context.Context, tokenHash string, userID uuid.UUID) error {
	if s.tokens == nil {
		return nil
	}
	return s.tokens.Set(ctx, "refresh:"+tokenHash, userID.String(), s.jwtService.GetRefreshTTL())
}

func (s *Service) getRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	if s.tokens == nil {
		// Without a token store, refresh tokens don't work
		return uuid.Nil, ErrInvalidRefreshToken
	}
	val, err := s.tokens.Get(ctx, "refresh:"+tokenHash)
	if err != nil {
		return uuid.Nil, ErrInvalidRefreshToken
	}
	return uuid.Parse(val)
}

func (s *Service) deleteRefreshToken(ctx context.Context, tokenHash string) error {
	if s.tokens == nil {
		return nil
	}
	return s.tokens.Del(ctx, "refresh:"+tokenHash)
}
