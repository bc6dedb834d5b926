package auth

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Service authenticates the single configured admin operator. There is no
// user table: operator identity lives in configuration (email plus bcrypt
// password hash), which is all a single-tenant back office needs.
type Service struct {
	jwtManager      *JWTManager
	passwordManager *PasswordManager
	adminEmail      string
	adminPassHash   string
	logger          zerolog.Logger
}

// NewService creates the auth service for the configured admin account
func NewService(secret, adminEmail, adminPassHash string, accessDuration time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		jwtManager:      NewJWTManager(secret, accessDuration, 7*24*time.Hour),
		passwordManager: NewPasswordManager(DefaultBcryptCost),
		adminEmail:      strings.ToLower(adminEmail),
		adminPassHash:   adminPassHash,
		logger:          logger.With().Str("component", "auth").Logger(),
	}
}

// JWTManager exposes the token manager for middleware wiring
func (s *Service) JWTManager() *JWTManager {
	return s.jwtManager
}

// Login validates the admin credentials and issues a token pair
func (s *Service) Login(email, password string) (*LoginResponse, error) {
	if strings.ToLower(email) != s.adminEmail || !s.passwordManager.VerifyPassword(password, s.adminPassHash) {
		s.logger.Warn().Str("email", email).Msg("failed login attempt")
		return nil, ErrInvalidCredentials
	}

	pair, err := s.jwtManager.GenerateTokenPair(UserClaims{
		UserID:  "admin",
		Email:   s.adminEmail,
		IsAdmin: true,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("email", s.adminEmail).Msg("admin logged in")
	return &LoginResponse{
		Email:        s.adminEmail,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}
