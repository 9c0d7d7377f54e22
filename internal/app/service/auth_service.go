package service

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/ekaty/ekaty-backend/pkg/logger"
	"github.com/ekaty/ekaty-backend/pkg/util"
)

const RoleAdmin = "admin"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAdminNotConfigured = errors.New("admin account is not configured")
)

type AuthService interface {
	Login(email, password string) (*util.TokenPair, error)
	Refresh(refreshToken string) (*util.TokenPair, error)
}

// authService authenticates the single operator account configured by
// ADMIN_EMAIL and ADMIN_PASSWORD_HASH.
type authService struct {
	adminEmail    string
	passwordHash  string
	jwtSecret     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewAuthService(
	adminEmail, passwordHash string,
	jwtSecret string,
	accessExpiry, refreshExpiry time.Duration,
) AuthService {
	return &authService{
		adminEmail:    strings.ToLower(strings.TrimSpace(adminEmail)),
		passwordHash:  passwordHash,
		jwtSecret:     jwtSecret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

func (s *authService) Login(email, password string) (*util.TokenPair, error) {
	logger.Info("Login attempt", map[string]interface{}{
		"email": email,
	})

	if s.adminEmail == "" || s.passwordHash == "" {
		logger.Warn("Login rejected: admin account not configured")
		return nil, ErrAdminNotConfigured
	}

	normalized := strings.ToLower(strings.TrimSpace(email))
	if subtle.ConstantTimeCompare([]byte(normalized), []byte(s.adminEmail)) != 1 {
		logger.Warn("Login failed: unknown email", map[string]interface{}{
			"email": email,
		})
		return nil, ErrInvalidCredentials
	}

	if err := util.CheckPassword(s.passwordHash, password); err != nil {
		logger.Warn("Login failed: invalid password", map[string]interface{}{
			"email": email,
		})
		return nil, ErrInvalidCredentials
	}

	tokens, err := util.GenerateTokenPair(s.adminEmail, RoleAdmin, s.jwtSecret, s.accessExpiry, s.refreshExpiry)
	if err != nil {
		logger.Error("Failed to generate tokens", err)
		return nil, err
	}

	logger.Info("Login succeeded", map[string]interface{}{
		"email": s.adminEmail,
	})
	return tokens, nil
}

// Refresh exchanges a valid refresh token for a new pair.
func (s *authService) Refresh(refreshToken string) (*util.TokenPair, error) {
	claims, err := util.ValidateToken(refreshToken, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != util.TokenTypeRefresh || claims.Email != s.adminEmail {
		return nil, util.ErrInvalidToken
	}
	return util.GenerateTokenPair(claims.Email, claims.Role, s.jwtSecret, s.accessExpiry, s.refreshExpiry)
}
